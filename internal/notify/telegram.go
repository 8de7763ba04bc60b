// Package notify delivers finalized interventions to users. Delivery is
// best-effort: a failed send leaves the intervention pending for the next
// sweep.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Arpita31/alfred/internal/intervention"
	"github.com/Arpita31/alfred/internal/userpref"
)

// #region telegram

// Telegram sends intervention messages through the Bot API.
type Telegram struct {
	botToken string
	client   *http.Client
}

// NewTelegram registers the bot token.
func NewTelegram(botToken string) *Telegram {
	return &Telegram{
		botToken: botToken,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Channel names the delivery channel recorded on delivered interventions.
func (t *Telegram) Channel() string {
	return "telegram"
}

// Deliver posts the intervention to the user's chat.
func (t *Telegram) Deliver(ctx context.Context, user userpref.User, rec intervention.Record) error {
	if t.botToken == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if user.TelegramChatID == "" {
		return fmt.Errorf("user %s has no telegram chat", user.ID)
	}

	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	form := url.Values{}
	form.Set("chat_id", user.TelegramChatID)
	form.Set("text", fmt.Sprintf("*%s*\n%s", rec.Title, rec.Message))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}
	return nil
}

// #endregion telegram
