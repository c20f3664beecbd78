package models

import (
	"time"
)

// Feed is an RSS/Atom source the fetch job polls
type Feed struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	URL       string    `gorm:"uniqueIndex;not null" json:"url"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// NewsItem is a single feed entry stored by the fetch job
type NewsItem struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	FeedID      uint       `gorm:"index;not null" json:"feed_id"`
	Feed        *Feed      `gorm:"foreignKey:FeedID;constraint:OnDelete:CASCADE" json:"feed,omitempty"`
	Title       string     `gorm:"not null" json:"title"`
	Link        string     `json:"link"`
	Description string     `gorm:"type:text" json:"description"`
	Summary     string     `gorm:"type:text" json:"summary"`
	PublishedAt *time.Time `json:"published_at"`
	Sent        bool       `gorm:"default:false;index" json:"sent"`
	SentAt      *time.Time `json:"sent_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// FeedName returns the owning feed's name, or an empty string when not preloaded
func (n *NewsItem) FeedName() string {
	if n.Feed == nil {
		return ""
	}
	return n.Feed.Name
}
