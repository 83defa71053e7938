package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	Close() error
}

// Discord delivers events to one channel via a bot token. The session is
// REST-only; no gateway connection is opened.
type Discord struct {
	session   session
	channelID string
}

// NewDiscord creates a Discord adapter for the given bot token and channel.
func NewDiscord(botToken, channelID string) (*Discord, error) {
	s, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &Discord{session: s, channelID: channelID}, nil
}

// Send posts the event as an embed.
func (d *Discord) Send(ctx context.Context, e Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Body,
		Color:       embedColor(e.Severity),
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}
	_, err := d.session.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("notify: discord send: %w", err)
	}
	return nil
}

// Close shuts down the underlying session.
func (d *Discord) Close() error {
	return d.session.Close()
}

// embedColor converts the severity color hint to Discord's integer form.
func embedColor(severity string) int {
	hex := strings.TrimPrefix(severityColor(severity), "#")
	v, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}
