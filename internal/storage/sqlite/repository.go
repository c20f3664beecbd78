package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/desk-dashboard/internal/models"
	"github.com/desk-dashboard/internal/storage"
	"github.com/desk-dashboard/migrations"
)

// Repository implements storage.Repository using SQLite
type Repository struct {
	db *gorm.DB
}

var _ storage.Repository = (*Repository)(nil)

// New creates a new SQLite repository
func New(dsn string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// The scheduler goroutine and manual callers share one handle; a single
	// connection keeps SQLite writes sequential.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return &Repository{db: db}, nil
}

// Migrate applies the embedded goose migrations
func (r *Repository) Migrate() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return migrations.Run(sqlDB)
}

// Close closes the database connection
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

// Feed operations

func (r *Repository) CreateFeed(ctx context.Context, feed *models.Feed) error {
	return r.db.WithContext(ctx).Create(feed).Error
}

func (r *Repository) GetFeedByID(ctx context.Context, id uint) (*models.Feed, error) {
	var feed models.Feed
	if err := r.db.WithContext(ctx).First(&feed, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &feed, nil
}

func (r *Repository) ListFeeds(ctx context.Context, activeOnly bool) ([]*models.Feed, error) {
	var feeds []*models.Feed
	query := r.db.WithContext(ctx).Model(&models.Feed{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Order("name ASC").Find(&feeds).Error; err != nil {
		return nil, err
	}
	return feeds, nil
}

func (r *Repository) UpdateFeed(ctx context.Context, feed *models.Feed) error {
	return r.db.WithContext(ctx).Save(feed).Error
}

// DeleteFeed removes the feed and its news items in one transaction
func (r *Repository) DeleteFeed(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("feed_id = ?", id).Delete(&models.NewsItem{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Feed{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
}

// News operations

func (r *Repository) CreateNewsItem(ctx context.Context, item *models.NewsItem) error {
	return r.db.WithContext(ctx).Omit("Feed").Create(item).Error
}

// NewsItemExists matches on the same feed and either the same title or, when
// given, the same link
func (r *Repository) NewsItemExists(ctx context.Context, feedID uint, title, link string) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.NewsItem{}).Where("feed_id = ?", feedID)
	if link != "" {
		query = query.Where("(title = ? OR link = ?)", title, link)
	} else {
		query = query.Where("title = ?", title)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) ListNews(ctx context.Context, limit int) ([]*models.NewsItem, error) {
	var items []*models.NewsItem
	query := r.db.WithContext(ctx).Preload("Feed").Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *Repository) ListUnsentNews(ctx context.Context, limit int) ([]*models.NewsItem, error) {
	var items []*models.NewsItem
	query := r.db.WithContext(ctx).
		Preload("Feed").
		Where("sent = ?", false).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkNewsSent flips sent on the given items. Rows already sent keep their
// original sent_at, so repeated calls are no-ops.
func (r *Repository) MarkNewsSent(ctx context.Context, ids []uint, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.NewsItem{}).
		Where("id IN ? AND sent = ?", ids, false).
		Updates(map[string]any{"sent": true, "sent_at": at})
	return res.RowsAffected, res.Error
}

// Task operations

func (r *Repository) CreateTask(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *Repository) GetTaskByID(ctx context.Context, id uint) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &task, nil
}

func (r *Repository) ListTasks(ctx context.Context, filter storage.TaskFilter) ([]*models.Task, error) {
	var tasks []*models.Task
	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.Recurring != nil {
		if *filter.Recurring {
			query = query.Where("recurrence <> ''")
		} else {
			query = query.Where("recurrence = ''")
		}
	}

	// Ordering
	orderCol := "due_date"
	switch filter.OrderBy {
	case "created_at", "priority", "title":
		orderCol = filter.OrderBy
	}
	if filter.OrderDesc {
		query = query.Order(orderCol + " DESC")
	} else {
		query = query.Order(orderCol + " ASC")
	}
	query = query.Order("id ASC")

	// Pagination
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *Repository) UpdateTask(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *Repository) CompleteTask(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       models.TaskStatusCompleted,
			"completed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteTask(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Task{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Repository) ListCompletedRecurringTasks(ctx context.Context) ([]*models.Task, error) {
	var tasks []*models.Task
	if err := r.db.WithContext(ctx).
		Where("status = ? AND recurrence <> ''", models.TaskStatusCompleted).
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListDueTasks returns pending tasks due before endOfToday, earliest first.
// The cutoff is compared in Go since stored timestamps keep their offsets.
func (r *Repository) ListDueTasks(ctx context.Context, endOfToday time.Time) ([]*models.Task, error) {
	var pending []*models.Task
	if err := r.db.WithContext(ctx).
		Where("status = ? AND due_date IS NOT NULL", models.TaskStatusPending).
		Find(&pending).Error; err != nil {
		return nil, err
	}

	due := make([]*models.Task, 0, len(pending))
	for _, t := range pending {
		if t.DueDate.Before(endOfToday) {
			due = append(due, t)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].DueDate.Before(*due[j].DueDate)
	})
	return due, nil
}

// Game operations

// UpsertGame inserts a game or refreshes the imported fields of an existing
// one. Name and IsCompleted of an existing row are never overwritten. The
// returned flag reports whether a row was created.
func (r *Repository) UpsertGame(ctx context.Context, game *models.Game) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Game
		err := tx.Where("app_id = ? AND platform = ?", game.AppID, game.Platform).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			return tx.Create(game).Error
		}
		if err != nil {
			return err
		}

		if err := tx.Model(&existing).Updates(map[string]any{
			"playtime":              game.Playtime,
			"achievements_total":    game.AchievementsTotal,
			"achievements_unlocked": game.AchievementsUnlocked,
			"has_achievements":      game.HasAchievements,
			"icon_url":              game.IconURL,
			"last_played":           game.LastPlayed,
		}).Error; err != nil {
			return err
		}

		game.ID = existing.ID
		game.Name = existing.Name
		game.IsCompleted = existing.IsCompleted
		game.CreatedAt = existing.CreatedAt
		return nil
	})
	return created, err
}

func (r *Repository) ListGames(ctx context.Context, filter storage.GameFilter) ([]*models.Game, error) {
	var games []*models.Game
	query := r.db.WithContext(ctx).Model(&models.Game{})

	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}
	if filter.Completed != nil {
		query = query.Where("is_completed = ?", *filter.Completed)
	}
	if filter.PerfectOnly {
		query = query.Where("has_achievements = ? AND achievements_total > 0 AND achievements_unlocked = achievements_total", true)
	}

	orderCol := "name"
	if filter.OrderBy == "playtime" {
		orderCol = "playtime"
	}
	if filter.OrderDesc {
		query = query.Order(orderCol + " DESC")
	} else {
		query = query.Order(orderCol + " ASC")
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Find(&games).Error; err != nil {
		return nil, err
	}
	return games, nil
}

// SetGamesCompleted updates every id in one transaction; any missing id rolls
// the whole batch back
func (r *Repository) SetGamesCompleted(ctx context.Context, ids []uint, completed bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			res := tx.Model(&models.Game{}).Where("id = ?", id).Update("is_completed", completed)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("game %d: %w", id, storage.ErrNotFound)
			}
		}
		return nil
	})
}

func (r *Repository) DeleteGames(ctx context.Context, platform string) (int64, error) {
	query := r.db.WithContext(ctx)
	if platform != "" {
		query = query.Where("platform = ?", platform)
	} else {
		query = query.Where("1 = 1")
	}
	res := query.Delete(&models.Game{})
	return res.RowsAffected, res.Error
}

// Settings

func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var setting models.Setting
	if err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error; err != nil {
		return "", notFound(err)
	}
	return storage.DecodeSettingValue(setting.Value), nil
}

func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	setting := models.Setting{Key: key, Value: value}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

func (r *Repository) ListSettings(ctx context.Context) ([]*models.Setting, error) {
	var settings []*models.Setting
	if err := r.db.WithContext(ctx).Order("key ASC").Find(&settings).Error; err != nil {
		return nil, err
	}
	return settings, nil
}

// API usage

// LogAPIUsage appends a usage record. Timestamps are stored in UTC so window
// queries compare consistently.
func (r *Repository) LogAPIUsage(ctx context.Context, usage *models.APIUsage) error {
	if usage.Timestamp.IsZero() {
		usage.Timestamp = time.Now()
	}
	usage.Timestamp = usage.Timestamp.UTC()
	return r.db.WithContext(ctx).Create(usage).Error
}

// CountAPIUsage counts successful calls since the given time. An empty model
// matches every model; a zero since matches all time.
func (r *Repository) CountAPIUsage(ctx context.Context, api, model string, since time.Time) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).
		Model(&models.APIUsage{}).
		Where("api_name = ? AND success = ?", api, true)
	if model != "" {
		query = query.Where("model_name = ?", model)
	}
	if !since.IsZero() {
		query = query.Where("timestamp >= ?", since.UTC())
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
