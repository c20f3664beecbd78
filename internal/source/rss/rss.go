package rss

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/desk-dashboard/internal/source"
	"github.com/desk-dashboard/pkg/logger"
	"github.com/desk-dashboard/pkg/ratelimit"
)

const defaultTimeout = 30 * time.Second

// Reader implements source.Reader for RSS and Atom feeds
type Reader struct {
	parser  *gofeed.Parser
	timeout time.Duration
	limiter *ratelimit.MultiLimiter
	log     *logger.Logger
}

// New creates a feed reader. limiter may be nil.
func New(timeout time.Duration, limiter *ratelimit.MultiLimiter, log *logger.Logger) *Reader {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "desk-dashboard/1.0"

	return &Reader{
		parser:  parser,
		timeout: timeout,
		limiter: limiter,
		log:     log.WithComponent("rss"),
	}
}

// Fetch retrieves and normalises up to limit of the newest entries
func (r *Reader) Fetch(ctx context.Context, url string, limit int) ([]*source.Entry, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx, ratelimit.LimiterRSS); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.log.Debug().Str("url", url).Msg("Fetching RSS feed")

	feed, err := r.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", url, err)
	}

	items := newestFirst(feed.Items)
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	entries := make([]*source.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, toEntry(item))
	}

	r.log.Debug().
		Int("count", len(entries)).
		Int("available", len(feed.Items)).
		Str("url", url).
		Msg("Fetched RSS entries")

	return entries, nil
}

// newestFirst orders items by publication date; undated items keep their
// feed order after the dated ones
func newestFirst(items []*gofeed.Item) []*gofeed.Item {
	sorted := make([]*gofeed.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := published(sorted[i]), published(sorted[j])
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.After(*b)
	})
	return sorted
}

func published(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func toEntry(item *gofeed.Item) *source.Entry {
	title := cleanText(item.Title)
	if title == "" {
		title = source.DefaultTitle
	}

	description := item.Description
	if description == "" {
		description = item.Content
	}

	var publishedAt *time.Time
	if p := published(item); p != nil {
		t := p.Local()
		publishedAt = &t
	}

	return &source.Entry{
		Title:       title,
		Link:        strings.TrimSpace(item.Link),
		Description: cleanText(description),
		PublishedAt: publishedAt,
	}
}

// cleanText removes HTML tags and extra whitespace
func cleanText(text string) string {
	// Paragraph and line breaks become spaces
	for _, tag := range []string{"<br>", "<br/>", "<br />", "</p>"} {
		text = strings.ReplaceAll(text, tag, " ")
	}

	// Remove remaining HTML tags
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	return strings.Join(strings.Fields(result.String()), " ")
}

var _ source.Reader = (*Reader)(nil)
