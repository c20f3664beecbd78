package storage

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/desk-dashboard/internal/models"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// Repository defines the interface for data persistence
type Repository interface {
	// Feed operations
	CreateFeed(ctx context.Context, feed *models.Feed) error
	GetFeedByID(ctx context.Context, id uint) (*models.Feed, error)
	ListFeeds(ctx context.Context, activeOnly bool) ([]*models.Feed, error)
	UpdateFeed(ctx context.Context, feed *models.Feed) error
	DeleteFeed(ctx context.Context, id uint) error

	// News operations
	CreateNewsItem(ctx context.Context, item *models.NewsItem) error
	NewsItemExists(ctx context.Context, feedID uint, title, link string) (bool, error)
	ListNews(ctx context.Context, limit int) ([]*models.NewsItem, error)
	ListUnsentNews(ctx context.Context, limit int) ([]*models.NewsItem, error)
	MarkNewsSent(ctx context.Context, ids []uint, at time.Time) (int64, error)

	// Task operations
	CreateTask(ctx context.Context, task *models.Task) error
	GetTaskByID(ctx context.Context, id uint) (*models.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	CompleteTask(ctx context.Context, id uint, at time.Time) error
	DeleteTask(ctx context.Context, id uint) error
	ListCompletedRecurringTasks(ctx context.Context) ([]*models.Task, error)
	ListDueTasks(ctx context.Context, endOfToday time.Time) ([]*models.Task, error)

	// Game operations
	UpsertGame(ctx context.Context, game *models.Game) (bool, error)
	ListGames(ctx context.Context, filter GameFilter) ([]*models.Game, error)
	SetGamesCompleted(ctx context.Context, ids []uint, completed bool) error
	DeleteGames(ctx context.Context, platform string) (int64, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) ([]*models.Setting, error)

	// API usage
	LogAPIUsage(ctx context.Context, usage *models.APIUsage) error
	CountAPIUsage(ctx context.Context, api, model string, since time.Time) (int64, error)

	// Maintenance
	Close() error
	Migrate() error
}

// TaskFilter defines filtering options for tasks
type TaskFilter struct {
	Status    *models.TaskStatus
	Priority  *models.Priority
	Recurring *bool
	Limit     int
	Offset    int
	OrderBy   string // "due_date", "created_at", "priority"
	OrderDesc bool
}

// GameFilter defines filtering options for games
type GameFilter struct {
	Platform    string
	Completed   *bool
	PerfectOnly bool
	Limit       int
	OrderBy     string // "name", "playtime"
	OrderDesc   bool
}

// DefaultTaskFilter returns a filter with sensible defaults
func DefaultTaskFilter() TaskFilter {
	return TaskFilter{
		Limit:   100,
		OrderBy: "due_date",
	}
}

// DefaultGameFilter returns a filter with sensible defaults
func DefaultGameFilter() GameFilter {
	return GameFilter{
		OrderBy: "name",
	}
}

// DecodeSettingValue unwraps JSON-encoded string values. Anything else is
// returned as stored.
func DecodeSettingValue(raw string) string {
	if !strings.HasPrefix(raw, `"`) {
		return raw
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return raw
	}
	return s
}

// SettingGetter is the read side of the settings table
type SettingGetter interface {
	GetSetting(ctx context.Context, key string) (string, error)
}

// UsageCounter counts recorded API calls
type UsageCounter interface {
	CountAPIUsage(ctx context.Context, api, model string, since time.Time) (int64, error)
}

// SettingBool reads a "true"/"false" setting, returning def when it is unset
func SettingBool(ctx context.Context, repo SettingGetter, key string, def bool) (bool, error) {
	v, err := repo.GetSetting(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return def, nil
}

// SettingString reads a setting, returning an empty string when it is unset
func SettingString(ctx context.Context, repo SettingGetter, key string) (string, error) {
	v, err := repo.GetSetting(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return strings.TrimSpace(v), err
}

// UsageStats counts successful calls for the last hour, the current day and all time
func UsageStats(ctx context.Context, repo UsageCounter, api, model string, now time.Time) (models.UsageStats, error) {
	var stats models.UsageStats
	var err error

	if stats.Hour, err = repo.CountAPIUsage(ctx, api, model, now.Add(-time.Hour)); err != nil {
		return stats, err
	}
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if stats.Day, err = repo.CountAPIUsage(ctx, api, model, startOfDay); err != nil {
		return stats, err
	}
	if stats.Total, err = repo.CountAPIUsage(ctx, api, model, time.Time{}); err != nil {
		return stats, err
	}
	return stats, nil
}
