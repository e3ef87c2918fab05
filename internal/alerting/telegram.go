package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storage-watch/internal/inventory"
)

// TelegramNotifier pushes events through the Telegram Bot API. It is the
// alternative to the Discord sink, not an additional one.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	renderer Renderer
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram sink.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, renderer Renderer, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		renderer: renderer,
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify renders the event as plain text and calls sendMessage.
func (n *TelegramNotifier) Notify(ctx context.Context, ev inventory.Event) error {
	if err := n.Send(ctx, n.renderer.Render(ev)); err != nil {
		return err
	}
	n.logger.Info().Str("kind", string(ev.Kind)).Str("item", ev.Item).Msg("notification sent")
	return nil
}

// Send delivers a rendered message.
func (n *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    msg.Plain(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: telegram chat %s (status %d)", ErrChannelNotFound, n.chatID, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram returned ok=false")
	}
	return nil
}

var _ Notifier = (*TelegramNotifier)(nil)
