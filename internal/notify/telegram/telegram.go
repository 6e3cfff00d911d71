// Package telegram delivers alert messages through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/procop07/mood-sentinel/internal/alerting"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	httpTimeout    = 10 * time.Second
)

// Channel sends messages to a Telegram chat via the sendMessage endpoint.
// It implements alerting.Channel.
type Channel struct {
	token   string
	chatID  string
	apiBase string
	client  *http.Client
}

// New creates a Telegram channel for the given bot token and chat.
func New(token, chatID string) *Channel {
	return &Channel{
		token:   token,
		chatID:  chatID,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// Name implements alerting.Channel.
func (c *Channel) Name() string { return "telegram" }

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Deliver posts the text to the configured chat. Client errors other than
// rate limiting are reported as permanent; rate limits, server errors and
// transport failures are transient and may be retried.
func (c *Channel) Deliver(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    c.chatID,
		Text:      text,
		ParseMode: "Markdown",
	})
	if err != nil {
		return alerting.Permanent(fmt.Errorf("telegram: marshal message: %w", err))
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiBase, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return alerting.Permanent(fmt.Errorf("telegram: create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: post sendMessage: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var apiResp sendMessageResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiResp); err != nil {
			return fmt.Errorf("telegram: decode response: %w", err)
		}
		if !apiResp.OK {
			return alerting.Permanent(fmt.Errorf("telegram: api rejected message: %s", apiResp.Description))
		}
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("telegram: sendMessage returned %d: %s", resp.StatusCode, string(respBody))

	// 429 is retryable, other 4xx mean the request itself is bad.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return alerting.Permanent(err)
	}
	return err
}
