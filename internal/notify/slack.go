package notify

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// webhookPoster abstracts the Slack webhook call, enabling test fakes.
type webhookPoster func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error

// Slack delivers events through an incoming webhook.
type Slack struct {
	webhookURL string
	post       webhookPoster
}

// NewSlack creates a Slack webhook adapter.
func NewSlack(webhookURL string) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		post:       slackapi.PostWebhookContext,
	}
}

// Send posts the event as a single attachment message.
func (s *Slack) Send(ctx context.Context, e Event) error {
	fields := make([]slackapi.AttachmentField, len(e.Fields))
	for i, f := range e.Fields {
		fields[i] = slackapi.AttachmentField{Title: f.Name, Value: f.Value, Short: true}
	}
	msg := &slackapi.WebhookMessage{
		Attachments: []slackapi.Attachment{{
			Color:  severityColor(e.Severity),
			Title:  e.Title,
			Text:   e.Body,
			Fields: fields,
		}},
	}
	if err := s.post(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("notify: slack webhook: %w", err)
	}
	return nil
}

// Close is a no-op; webhooks hold no connection.
func (s *Slack) Close() error { return nil }
