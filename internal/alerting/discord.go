package alerting

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"storage-watch/internal/inventory"
)

// ErrChannelNotFound means the destination channel does not exist or the bot
// cannot see it.
var ErrChannelNotFound = errors.New("channel not found")

// ChannelSender is the slice of *discordgo.Session the notifier needs.
type ChannelSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordOptions configure the Discord sink.
type DiscordOptions struct {
	ChannelID string
	// Embeds selects rich embeds; otherwise messages go out as markdown text.
	Embeds   bool
	Renderer Renderer
}

// DiscordNotifier posts events to one Discord channel.
type DiscordNotifier struct {
	sender ChannelSender
	opts   DiscordOptions
	logger zerolog.Logger
}

// NewDiscordNotifier constructs a Discord sink.
func NewDiscordNotifier(sender ChannelSender, opts DiscordOptions, logger zerolog.Logger) *DiscordNotifier {
	return &DiscordNotifier{
		sender: sender,
		opts:   opts,
		logger: logger.With().Str("component", "alert_discord").Str("channel_id", opts.ChannelID).Logger(),
	}
}

// Notify renders and sends one event.
func (n *DiscordNotifier) Notify(ctx context.Context, ev inventory.Event) error {
	if err := n.Send(ctx, n.opts.Renderer.Render(ev)); err != nil {
		return err
	}
	n.logger.Info().Str("kind", string(ev.Kind)).Str("item", ev.Item).Msg("notification sent")
	return nil
}

// Send delivers a rendered message to the configured channel.
func (n *DiscordNotifier) Send(ctx context.Context, msg Message) error {
	if n.opts.ChannelID == "" {
		return fmt.Errorf("%w: no channel configured", ErrChannelNotFound)
	}

	_, err := n.sender.ChannelMessageSendComplex(n.opts.ChannelID, n.compose(msg), discordgo.WithContext(ctx))
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrChannelNotFound, n.opts.ChannelID)
		}
		return fmt.Errorf("send discord message: %w", err)
	}
	return nil
}

func (n *DiscordNotifier) compose(msg Message) *discordgo.MessageSend {
	if !n.opts.Embeds {
		return &discordgo.MessageSend{Content: msg.Markdown()}
	}
	return &discordgo.MessageSend{
		Content: msg.Content,
		Embeds:  []*discordgo.MessageEmbed{ToEmbed(msg)},
	}
}

// ToEmbed converts a message into a Discord embed. Content is not part of it.
func ToEmbed(msg Message) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       msg.Color,
	}
	for _, f := range msg.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: false,
		})
	}
	return embed
}

var _ Notifier = (*DiscordNotifier)(nil)
