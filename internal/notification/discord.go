package notification

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// WebhookExecutor is the subset of *discordgo.Session used by DiscordSender.
type WebhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSender posts notices to a Discord channel webhook.
type DiscordSender struct {
	session WebhookExecutor
	id      string
	token   string
}

// NewDiscordSender creates a sender for the webhook. A nil session creates an
// unauthenticated one; webhooks carry their own token.
func NewDiscordSender(session WebhookExecutor, webhookID, webhookToken string) (*DiscordSender, error) {
	if session == nil {
		s, err := discordgo.New("")
		if err != nil {
			return nil, fmt.Errorf("creating discord session: %w", err)
		}
		session = s
	}
	return &DiscordSender{session: session, id: webhookID, token: webhookToken}, nil
}

// Name implements Sender.
func (d *DiscordSender) Name() string { return "discord" }

// Send implements Sender.
func (d *DiscordSender) Send(ctx context.Context, n Notice) error {
	content := fmt.Sprintf("**%s**\n%s", n.Title, n.Body)
	if n.URL != "" {
		content += "\n" + n.URL
	}
	_, err := d.session.WebhookExecute(d.id, d.token, false, &discordgo.WebhookParams{Content: content}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("executing discord webhook: %w", err)
	}
	return nil
}
