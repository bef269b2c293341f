// Package notify announces discoveries on a Telegram channel and records
// every delivery attempt in a sqlite ledger.
package notify

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIBase is the Telegram Bot API endpoint.
const DefaultAPIBase = "https://api.telegram.org"

// Sender delivers one formatted message. It reports whether delivery
// succeeded.
type Sender interface {
	Send(ctx context.Context, text string) bool
}

// Telegram sends HTML-formatted messages through the Bot API.
type Telegram struct {
	Token   string
	ChatID  string
	APIBase string
	client  *http.Client
}

// NewTelegram returns a sender for the given bot and channel. An empty
// apiBase uses DefaultAPIBase.
func NewTelegram(token, chatID, apiBase string) *Telegram {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Telegram{
		Token:   token,
		ChatID:  chatID,
		APIBase: strings.TrimRight(apiBase, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Send implements Sender. Missing credentials are logged and reported as a
// failed delivery.
func (t *Telegram) Send(ctx context.Context, text string) bool {
	if t.Token == "" || t.ChatID == "" {
		log.Printf("ERROR: Telegram credentials not set; set TELEGRAM_BOT_TOKEN and TELEGRAM_CHANNEL_ID")
		return false
	}

	if err := t.post(ctx, text); err != nil {
		log.Printf("ERROR: Error sending Telegram message: %v", err)
		return false
	}

	log.Printf("INFO: Telegram message sent successfully")
	return true
}

func (t *Telegram) post(ctx context.Context, text string) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.APIBase, t.Token)
	form := url.Values{
		"chat_id":    {t.ChatID},
		"text":       {text},
		"parse_mode": {"HTML"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		// The URL carries the bot token, so only the cause is reported
		if uerr, ok := err.(*url.Error); ok {
			err = uerr.Err
		}
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
