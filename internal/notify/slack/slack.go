// Package slack delivers alerts to a Slack incoming webhook.
package slack

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

const httpTimeout = 10 * time.Second

// Channel posts alert messages to a Slack incoming webhook. It implements
// alerting.Channel.
type Channel struct {
	webhookURL string
	client     *http.Client
}

// New creates a Slack delivery channel for the given webhook URL.
func New(webhookURL string) *Channel {
	return &Channel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Name identifies this channel in delivery records.
func (c *Channel) Name() string { return "slack" }

// Deliver posts the message text to the webhook. Slack renders mrkdwn, which
// is close enough to the Telegram Markdown the formatter emits.
//
// Webhook rejections with a 4xx status other than 429 are permanent: the URL
// is wrong or revoked and retrying cannot help. Everything else (429, 5xx,
// transport errors) is transient.
func (c *Channel) Deliver(ctx context.Context, text string) error {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return alerting.Permanent(fmt.Errorf("slack: marshal message: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return alerting.Permanent(fmt.Errorf("slack: create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	werr := fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return alerting.Permanent(werr)
	}
	return werr
}
