// Package news fetches active feeds into the store. The manual CLI path and
// the scheduled job share this one implementation.
package news

import (
	"context"
	"fmt"
	"time"

	"github.com/desk-dashboard/internal/models"
	"github.com/desk-dashboard/internal/source"
	"github.com/desk-dashboard/pkg/logger"
)

// Store is the subset of storage.Repository the fetcher uses
type Store interface {
	ListFeeds(ctx context.Context, activeOnly bool) ([]*models.Feed, error)
	NewsItemExists(ctx context.Context, feedID uint, title, link string) (bool, error)
	CreateNewsItem(ctx context.Context, item *models.NewsItem) error
}

// Summarizer turns a description into a short summary
type Summarizer interface {
	Summarize(ctx context.Context, title, description string) string
}

// Fetcher pulls feed entries, skips known ones and stores the rest
type Fetcher struct {
	reader     source.Reader
	summarizer Summarizer
	store      Store
	log        *logger.Logger
}

// NewFetcher creates a news fetcher
func NewFetcher(reader source.Reader, summarizer Summarizer, store Store, log *logger.Logger) *Fetcher {
	return &Fetcher{
		reader:     reader,
		summarizer: summarizer,
		store:      store,
		log:        log.WithComponent("news"),
	}
}

// FetchResult contains the results of a fetch run
type FetchResult struct {
	Feeds    int
	Found    int
	Saved    int
	Skipped  int // already stored
	Failed   int // feeds or entries that errored
	Errors   []error
	Duration time.Duration
}

// FeedResult contains the outcome for one feed
type FeedResult struct {
	Found   int
	Saved   int
	Skipped int
	Errors  []error
}

// FetchAll fetches every active feed. A failing feed is logged and counted;
// the remaining feeds still run.
func (f *Fetcher) FetchAll(ctx context.Context, perFeed int) (*FetchResult, error) {
	startTime := time.Now()
	result := &FetchResult{}

	feeds, err := f.store.ListFeeds(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	result.Feeds = len(feeds)

	f.log.Info().
		Int("feeds", len(feeds)).
		Int("per_feed", perFeed).
		Msg("Starting news fetch")

	for _, feed := range feeds {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, err)
			break
		}

		fr, err := f.FetchFeed(ctx, feed, perFeed)
		if err != nil {
			f.log.WithFeed(feed.ID, feed.Name).Warn().Err(err).Msg("Feed fetch failed")
			result.Failed++
			result.Errors = append(result.Errors, err)
			continue
		}

		result.Found += fr.Found
		result.Saved += fr.Saved
		result.Skipped += fr.Skipped
		result.Failed += len(fr.Errors)
		result.Errors = append(result.Errors, fr.Errors...)
	}

	result.Duration = time.Since(startTime)

	f.log.Info().
		Int("found", result.Found).
		Int("saved", result.Saved).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("News fetch completed")

	return result, nil
}

// FetchFeed fetches one feed. Entry-level errors are collected in the result;
// only a failure to read the feed itself is returned as an error.
func (f *Fetcher) FetchFeed(ctx context.Context, feed *models.Feed, perFeed int) (*FeedResult, error) {
	log := f.log.WithFeed(feed.ID, feed.Name)

	entries, err := f.reader.Fetch(ctx, feed.URL, perFeed)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", feed.Name, err)
	}

	result := &FeedResult{Found: len(entries)}
	for _, entry := range entries {
		exists, err := f.store.NewsItemExists(ctx, feed.ID, entry.Title, entry.Link)
		if err != nil {
			log.Warn().Err(err).Str("title", entry.Title).Msg("Existence check failed")
			result.Errors = append(result.Errors, fmt.Errorf("feed %s entry %q: %w", feed.Name, entry.Title, err))
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		item := &models.NewsItem{
			FeedID:      feed.ID,
			Title:       entry.Title,
			Link:        entry.Link,
			Description: entry.Description,
			Summary:     f.summarizer.Summarize(ctx, entry.Title, entry.Description),
			PublishedAt: entry.PublishedAt,
		}
		if err := f.store.CreateNewsItem(ctx, item); err != nil {
			log.Warn().Err(err).Str("title", entry.Title).Msg("Failed to save news item")
			result.Errors = append(result.Errors, fmt.Errorf("feed %s entry %q: %w", feed.Name, entry.Title, err))
			continue
		}
		result.Saved++
	}

	log.Debug().
		Int("found", result.Found).
		Int("saved", result.Saved).
		Int("skipped", result.Skipped).
		Msg("Feed processed")

	return result, nil
}
