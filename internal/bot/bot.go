package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"storage-watch/internal/alerting"
)

// Bot is the Discord gateway session plus the command router.
type Bot struct {
	session *discordgo.Session
	router  *Router
	logger  zerolog.Logger

	readyOnce sync.Once
	ready     chan struct{}
}

// New creates a session for token. Call Open to connect.
func New(token string, router *Router, logger zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		session: session,
		router:  router,
		logger:  logger.With().Str("component", "discord_bot").Logger(),
		ready:   make(chan struct{}),
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onMessageCreate)
	return b, nil
}

// Session exposes the underlying session for sending notifications.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

// WaitReady blocks until the gateway reported Ready or ctx ends.
func (b *Bot) WaitReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	name := ""
	if r.User != nil {
		name = r.User.String()
	}
	b.logger.Info().Str("user", name).Int("guilds", len(r.Guilds)).Msg("logged in")
	b.readyOnce.Do(func() { close(b.ready) })
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	req := Request{
		AuthorID:  m.Author.ID,
		ChannelID: m.ChannelID,
		Reply:     &channelReplier{session: s, channelID: m.ChannelID},
	}
	if _, err := b.router.Dispatch(context.Background(), m.Content, req); err != nil {
		b.logger.Error().Err(err).Str("channel_id", m.ChannelID).Msg("command failed")
	}
}

// messageSender is the slice of *discordgo.Session replies need.
type messageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type channelReplier struct {
	session   messageSender
	channelID string
}

func (c *channelReplier) Reply(ctx context.Context, text string) error {
	if _, err := c.session.ChannelMessageSend(c.channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func (c *channelReplier) ReplyMessage(ctx context.Context, msg alerting.Message) error {
	if _, err := c.session.ChannelMessageSendEmbed(c.channelID, alerting.ToEmbed(msg), discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send embed reply: %w", err)
	}
	return nil
}
