// Package notify delivers lineside events to chat platforms (Slack,
// Discord). Delivery is outbound-only and best-effort: the web layer never
// blocks a response on a chat API.
package notify

import (
	"context"
	"fmt"

	"github.com/zulandar/lineside/internal/config"
	"github.com/zulandar/lineside/internal/progress"
)

// Adapter is the interface platform-specific senders must satisfy.
type Adapter interface {
	// Send delivers one event to the platform.
	Send(ctx context.Context, e Event) error

	// Close releases the platform connection, if any.
	Close() error
}

// Event is a formatted notification.
type Event struct {
	Title    string
	Body     string
	Severity string // "info", "warning", "error", "success"
	Fields   []Field
}

// Field is a key-value pair displayed with an event.
type Field struct {
	Name  string
	Value string
}

// New builds an adapter from config. Returns nil when no target is
// configured; callers must tolerate a nil adapter.
func New(cfg config.NotifyConfig) (Adapter, error) {
	var adapters []Adapter
	if cfg.Slack.WebhookURL != "" {
		adapters = append(adapters, NewSlack(cfg.Slack.WebhookURL))
	}
	if cfg.Discord.BotToken != "" && cfg.Discord.ChannelID != "" {
		d, err := NewDiscord(cfg.Discord.BotToken, cfg.Discord.ChannelID)
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, d)
	}
	switch len(adapters) {
	case 0:
		return nil, nil
	case 1:
		return adapters[0], nil
	default:
		return Multi(adapters), nil
	}
}

// Multi fans an event out to every adapter, returning the first error
// after attempting all of them.
type Multi []Adapter

func (m Multi) Send(ctx context.Context, e Event) error {
	var firstErr error
	for _, a := range m {
		if err := a.Send(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m Multi) Close() error {
	var firstErr error
	for _, a := range m {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FailureEvent formats a fail transition for delivery.
func FailureEvent(tr *progress.Transition) Event {
	e := Event{
		Title:    fmt.Sprintf("Unit %s failed %s", tr.Serial, tr.StepName),
		Body:     tr.Notes,
		Severity: "error",
		Fields: []Field{
			{Name: "Serial", Value: tr.Serial},
			{Name: "Step", Value: tr.StepName},
			{Name: "Was", Value: tr.OldStatus},
		},
	}
	if tr.Station != "" {
		e.Fields = append(e.Fields, Field{Name: "Station", Value: tr.Station})
	}
	if tr.Operator != "" {
		e.Fields = append(e.Fields, Field{Name: "Operator", Value: tr.Operator})
	}
	return e
}

// severityColor maps an event severity to a sidebar color hint.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return "#36a64f"
	case "warning":
		return "#f2c744"
	case "error":
		return "#d50200"
	default:
		return "#439fe0"
	}
}
