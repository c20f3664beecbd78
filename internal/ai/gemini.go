package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/desk-dashboard/pkg/logger"
	"github.com/desk-dashboard/pkg/ratelimit"
)

// DefaultGeminiEndpoint is the public Generative Language API root
const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/"

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type generateContentRequest struct {
	Contents []geminiContent `json:"contents"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content *geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// GeminiClient calls the Generative Language REST API
type GeminiClient struct {
	apiKey      string
	endpoint    string
	model       string
	httpClient  *http.Client
	rateLimiter *ratelimit.MultiLimiter
	log         *logger.Logger
}

// GeminiOptions configures a GeminiClient
type GeminiOptions struct {
	APIKey   string
	Model    string
	Endpoint string // empty uses the public endpoint
	Timeout  time.Duration
}

// NewGeminiClient creates a Gemini client authenticated with an API key
func NewGeminiClient(_ context.Context, opts GeminiOptions, limiter *ratelimit.MultiLimiter, log *logger.Logger) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultGeminiEndpoint
	}
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &GeminiClient{
		apiKey:      opts.APIKey,
		endpoint:    endpoint,
		model:       opts.Model,
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: limiter,
		log:         log.WithComponent("gemini"),
	}, nil
}

// Name returns the usage log name
func (g *GeminiClient) Name() string {
	return "gemini"
}

// Model returns the model used for generation
func (g *GeminiClient) Model() string {
	return g.model
}

// Generate sends a single-turn prompt and returns the concatenated text parts
// of the first candidate
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if g.rateLimiter != nil {
		if err := g.rateLimiter.Wait(ctx, ratelimit.LimiterGemini); err != nil {
			return "", fmt.Errorf("rate limit error: %w", err)
		}
	}

	body, err := json.Marshal(generateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	u := g.endpoint + "v1beta/models/" + url.PathEscape(g.model) + ":generateContent"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", g.apiKey)

	g.log.Debug().Str("model", g.model).Msg("Sending request to Gemini")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer resp.Body.Close()

	// Non-2xx bodies carry Google's {"error": {...}} envelope
	if err := googleapi.CheckResponse(resp); err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	var out generateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(out.Candidates) == 0 || out.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	if out.UsageMetadata != nil {
		g.log.Debug().
			Int("prompt_tokens", out.UsageMetadata.PromptTokenCount).
			Int("output_tokens", out.UsageMetadata.CandidatesTokenCount).
			Msg("Received Gemini response")
	}

	return text.String(), nil
}

var _ Provider = (*GeminiClient)(nil)
