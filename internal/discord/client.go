// Package discord delivers messages to Discord webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/desk-dashboard/internal/notify"
	"github.com/desk-dashboard/pkg/logger"
	"github.com/desk-dashboard/pkg/ratelimit"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultInterval = time.Second
)

var userIDPattern = regexp.MustCompile(`^\d{17,19}$`)

// ValidUserID reports whether id looks like a Discord snowflake (17-19 digits)
func ValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// Message is the webhook JSON payload
type Message struct {
	Username string `json:"username,omitempty"`
	Content  string `json:"content"`
}

// StatusError is returned when the webhook answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}

// Client posts messages to webhook URLs
type Client struct {
	httpClient *http.Client
	limiter    *ratelimit.MultiLimiter
	interval   time.Duration
	pause      func(ctx context.Context, d time.Duration) error
	log        *logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithInterval sets the pause between consecutive batches
func WithInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPause replaces the inter-batch wait. Tests use it to record pacing
// without sleeping.
func WithPause(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.pause = fn }
}

// NewClient creates a webhook client. limiter may be nil.
func NewClient(limiter *ratelimit.MultiLimiter, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:  limiter,
		interval: defaultInterval,
		pause:    sleep,
		log:      log.WithComponent("discord"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Post sends a single message
func (c *Client) Post(ctx context.Context, webhookURL string, msg Message) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, ratelimit.LimiterDiscord); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

// SendBatches posts batches in order, pausing between them. It stops at the
// first failure and returns how many batches were delivered before it.
func (c *Client) SendBatches(ctx context.Context, webhookURL, username string, batches []notify.Batch) (int, error) {
	sent := 0
	for i, batch := range batches {
		if i > 0 && c.interval > 0 {
			if err := c.pause(ctx, c.interval); err != nil {
				return sent, err
			}
		}

		if err := c.Post(ctx, webhookURL, Message{Username: username, Content: batch.Content}); err != nil {
			c.log.Warn().
				Err(err).
				Int("batch", i+1).
				Int("of", len(batches)).
				Msg("Batch delivery failed")
			return sent, fmt.Errorf("batch %d of %d: %w", i+1, len(batches), err)
		}
		sent++

		c.log.Debug().
			Int("batch", i+1).
			Int("of", len(batches)).
			Int("items", batch.Items).
			Msg("Batch delivered")
	}
	return sent, nil
}

// Test sends a one-off message to verify a webhook
func (c *Client) Test(ctx context.Context, webhookURL, username, mention, text string) error {
	return c.Post(ctx, webhookURL, Message{Username: username, Content: mention + text})
}
