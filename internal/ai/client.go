package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/desk-dashboard/internal/config"
	"github.com/desk-dashboard/pkg/logger"
	"github.com/desk-dashboard/pkg/ratelimit"
)

// Provider generates text from a prompt
type Provider interface {
	// Name is the api_name recorded in usage logs
	Name() string
	Model() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client wraps the Anthropic SDK client
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// NewClient creates a new Anthropic client
func NewClient(cfg config.AnthropicConfig, limiter *ratelimit.MultiLimiter, log *logger.Logger, opts ...option.RequestOption) *Client {
	opts = append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, opts...)
	client := anthropic.NewClient(opts...)

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 512
	}

	return &Client{
		client:      client,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		rateLimiter: limiter,
		log:         log.WithComponent("ai"),
	}
}

// Name returns the usage log name
func (c *Client) Name() string {
	return "anthropic"
}

// Model returns the configured Claude model
func (c *Client) Model() string {
	return c.model
}

// Generate sends the prompt to Claude with the summariser system prompt
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.Complete(ctx, SummarySystemPrompt, prompt)
}

// Complete sends a message to Claude and returns the response
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	// Wait for rate limiter
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx, ratelimit.LimiterAnthropic); err != nil {
			return "", fmt.Errorf("rate limit error: %w", err)
		}
	}

	c.log.Debug().
		Str("model", c.model).
		Int("max_tokens", c.maxTokens).
		Msg("Sending request to Claude")

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(c.maxTokens),
		System: []anthropic.TextBlockParam{
			{
				Type: "text",
				Text: systemPrompt,
			},
		},
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					anthropic.NewTextBlock(userMessage),
				},
			},
		},
	})
	if err != nil {
		c.log.Error().Err(err).Msg("Claude API error")
		return "", fmt.Errorf("claude API error: %w", err)
	}

	// Extract text from response
	var response strings.Builder
	for _, block := range message.Content {
		textBlock := block.AsText()
		if textBlock.Text != "" {
			response.WriteString(textBlock.Text)
		}
	}

	c.log.Debug().
		Int("input_tokens", int(message.Usage.InputTokens)).
		Int("output_tokens", int(message.Usage.OutputTokens)).
		Msg("Received Claude response")

	return response.String(), nil
}

var _ Provider = (*Client)(nil)
