// Package telegram implements the notification channel against the Telegram
// Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hookline-systems/hookline/common/logging"
	"github.com/hookline-systems/hookline/internal/models"
)

const defaultAPIURL = "https://api.telegram.org"

// sendTimeout bounds a single delivery so one stuck event cannot hold the
// whole batch.
const sendTimeout = 10 * time.Second

// maxValueLen is the display cutoff for event data values in the alert text.
const maxValueLen = 100

// Channel posts formatted alerts to a Telegram chat via the Bot API.
// Concurrent Sends share one lazily-created HTTP client, which http.Client
// supports natively; Close releases its idle connections exactly once.
type Channel struct {
	botToken string
	chatID   string
	baseURL  string
	logger   *logging.Logger

	initOnce  sync.Once
	closeOnce sync.Once
	client    *http.Client
}

// Option configures a Channel.
type Option func(*Channel)

// WithBaseURL overrides the Telegram API base URL. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Channel) { c.baseURL = strings.TrimSuffix(url, "/") }
}

// WithHTTPClient supplies a pre-built HTTP client. Used by tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Channel) { c.client = client }
}

// NewChannel creates a Telegram channel for the given bot token and target
// chat (numeric ID or @username).
func NewChannel(botToken, chatID string, logger *logging.Logger, opts ...Option) *Channel {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Channel{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  defaultAPIURL,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Channel) httpClient() *http.Client {
	c.initOnce.Do(func() {
		if c.client == nil {
			c.client = &http.Client{Timeout: sendTimeout}
		}
	})
	return c.client
}

// Close releases the underlying transport's idle connections. Safe to call
// on any shutdown path, including before the first send.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		if c.client != nil {
			c.client.CloseIdleConnections()
		}
	})
}

// FormatMessage renders a notification payload as Telegram HTML.
func FormatMessage(p models.NotificationPayload) string {
	var b strings.Builder
	b.WriteString("🔔 <b>Tailscale Event</b>\n\n")
	fmt.Fprintf(&b, "<b>Type:</b> <code>%s</code>\n", p.EventType)
	fmt.Fprintf(&b, "<b>Tailnet:</b> %s\n", p.Tailnet)
	fmt.Fprintf(&b, "<b>Message:</b> %s\n", p.EventMessage)
	fmt.Fprintf(&b, "<b>Time:</b> %s", p.Timestamp.Format(time.RFC3339))

	if len(p.RawData) > 0 {
		b.WriteString("\n\n<b>Details:</b>")
		keys := make([]string, 0, len(p.RawData))
		for key := range p.RawData {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			value := p.RawData[key]
			valueStr, ok := value.(string)
			if !ok {
				valueStr = fmt.Sprintf("%v", value)
			}
			if len(valueStr) > maxValueLen {
				valueStr = valueStr[:maxValueLen-3] + "..."
			}
			fmt.Fprintf(&b, "\n  %s: <code>%s</code>", key, valueStr)
		}
	}

	return b.String()
}

// Send posts the alert for one event. Transport errors and non-200 responses
// come back as ordinary errors; the caller decides what a failed delivery
// means for the batch.
func (c *Channel) Send(ctx context.Context, payload models.NotificationPayload) error {
	body, err := json.Marshal(map[string]string{
		"chat_id":    c.chatID,
		"text":       FormatMessage(payload),
		"parse_mode": "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Surface a short slice of the API error for the logs.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API error: %d - %s", resp.StatusCode, string(detail))
	}

	c.logger.Debug("telegram notification sent", logging.EventType(payload.EventType))
	return nil
}
