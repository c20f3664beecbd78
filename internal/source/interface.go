// Package source defines what the news fetcher needs from a feed backend.
package source

import (
	"context"
	"time"
)

// Entry is one normalised feed entry
type Entry struct {
	Title       string
	Link        string
	Description string
	PublishedAt *time.Time
}

// Reader retrieves the newest entries of a feed
type Reader interface {
	// Fetch returns at most limit entries, newest first
	Fetch(ctx context.Context, url string, limit int) ([]*Entry, error)
}

// DefaultTitle is used for entries that carry no title
const DefaultTitle = "No title"
