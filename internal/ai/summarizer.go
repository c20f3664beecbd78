package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/desk-dashboard/internal/models"
	"github.com/desk-dashboard/internal/notify"
	"github.com/desk-dashboard/internal/storage"
	"github.com/desk-dashboard/pkg/logger"
)

const (
	// Descriptions up to this length are stored verbatim
	verbatimMax = 200
	// Fallback keeps this many characters and appends "..."
	fallbackKeep = 300
	summaryMax   = 400
)

// Store is what the summariser reads and writes
type Store interface {
	storage.SettingGetter
	LogAPIUsage(ctx context.Context, usage *models.APIUsage) error
}

// GeminiFactory builds a Gemini provider for an API key and model
type GeminiFactory func(ctx context.Context, apiKey, model string) (Provider, error)

// Summarizer produces short news summaries, preferring Gemini (key stored in
// settings), then Claude (key in config), then plain truncation
type Summarizer struct {
	store        Store
	claude       Provider
	newGemini    GeminiFactory
	defaultModel string
	now          func() time.Time
	log          *logger.Logger

	mu        sync.Mutex
	gemini    Provider
	geminiKey string
}

// NewSummarizer creates a summariser. claude and newGemini may be nil.
func NewSummarizer(store Store, claude Provider, newGemini GeminiFactory, defaultModel string, log *logger.Logger) *Summarizer {
	if defaultModel == "" {
		defaultModel = "gemini-2.5-flash"
	}
	return &Summarizer{
		store:        store,
		claude:       claude,
		newGemini:    newGemini,
		defaultModel: defaultModel,
		now:          time.Now,
		log:          log.WithComponent("summarizer"),
	}
}

// Summarize never fails: any provider problem falls back to truncation
func (s *Summarizer) Summarize(ctx context.Context, title, description string) string {
	description = strings.TrimSpace(description)
	if utf8.RuneCountInString(description) <= verbatimMax {
		return description
	}

	p, err := s.provider(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Summary provider unavailable, truncating")
		return Fallback(description)
	}
	if p == nil {
		return Fallback(description)
	}

	text, err := p.Generate(ctx, fmt.Sprintf(SummaryUserPrompt, title, description))
	s.recordUsage(ctx, p, err)
	if err != nil {
		s.log.Warn().Err(err).Str("provider", p.Name()).Msg("Summary generation failed, truncating")
		return Fallback(description)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback(description)
	}
	return notify.Truncate(text, summaryMax)
}

// Fallback keeps the first 300 characters of text, marking the cut with "..."
func Fallback(text string) string {
	r := []rune(text)
	if len(r) <= fallbackKeep {
		return text
	}
	return string(r[:fallbackKeep]) + "..."
}

// provider resolves the provider for this call; nil means truncate
func (s *Summarizer) provider(ctx context.Context) (Provider, error) {
	key, err := storage.SettingString(ctx, s.store, models.SettingGeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("read gemini key: %w", err)
	}

	if key != "" && s.newGemini != nil {
		model, err := storage.SettingString(ctx, s.store, models.SettingGeminiModel)
		if err != nil {
			return nil, fmt.Errorf("read gemini model: %w", err)
		}
		if model == "" {
			model = s.defaultModel
		}
		return s.geminiFor(ctx, key, model)
	}

	if s.claude != nil {
		return s.claude, nil
	}
	return nil, nil
}

func (s *Summarizer) geminiFor(ctx context.Context, key, model string) (Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gemini != nil && s.geminiKey == key && s.gemini.Model() == model {
		return s.gemini, nil
	}

	p, err := s.newGemini(ctx, key, model)
	if err != nil {
		return nil, err
	}
	s.gemini = p
	s.geminiKey = key
	return p, nil
}

func (s *Summarizer) recordUsage(ctx context.Context, p Provider, callErr error) {
	usage := &models.APIUsage{
		APIName:     p.Name(),
		ModelName:   p.Model(),
		RequestType: "summarize",
		Timestamp:   s.now(),
		Success:     callErr == nil,
	}
	if callErr != nil {
		usage.ErrorMessage = notify.Truncate(callErr.Error(), 500)
	}
	if err := s.store.LogAPIUsage(ctx, usage); err != nil {
		s.log.Warn().Err(err).Msg("Failed to record API usage")
	}
}
