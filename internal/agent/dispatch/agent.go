// Package dispatch sends unsent news and due-task reminders to Discord.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desk-dashboard/internal/models"
	"github.com/desk-dashboard/internal/notify"
	"github.com/desk-dashboard/internal/storage"
	"github.com/desk-dashboard/pkg/logger"
)

var (
	// ErrNoWebhook means no webhook URL is configured for the message kind
	ErrNoWebhook = errors.New("no webhook configured")
	// ErrDisabled means the automatic send is switched off in settings
	ErrDisabled = errors.New("automatic send disabled")
)

const (
	newsUsernameAuto   = "News Bot (Auto)"
	newsUsernameManual = "News Bot"

	reminderHeaderAuto   = "⏰ **Daily Task Reminders**"
	reminderHeaderTest   = "⏰ **Task Reminder Test**"
	reminderUsernameAuto = "Task Reminder Bot (Auto)"
	reminderUsernameTest = "Task Reminder Test"

	defaultUnsentLimit = 10
)

// Store is the subset of storage.Repository dispatch uses
type Store interface {
	storage.SettingGetter
	ListUnsentNews(ctx context.Context, limit int) ([]*models.NewsItem, error)
	MarkNewsSent(ctx context.Context, ids []uint, at time.Time) (int64, error)
	ListDueTasks(ctx context.Context, endOfToday time.Time) ([]*models.Task, error)
}

// Sender delivers batches in order and reports how many went out
type Sender interface {
	SendBatches(ctx context.Context, webhookURL, username string, batches []notify.Batch) (int, error)
}

// Options configures the agent
type Options struct {
	Budget      int
	UnsentLimit int
}

// Agent composes the store, the batcher and the sender
type Agent struct {
	store  Store
	sender Sender
	opts   Options
	now    func() time.Time
	log    *logger.Logger
}

// NewAgent creates a dispatch agent
func NewAgent(store Store, sender Sender, opts Options, log *logger.Logger) *Agent {
	if opts.Budget <= 0 {
		opts.Budget = notify.DefaultBudget
	}
	if opts.UnsentLimit <= 0 {
		opts.UnsentLimit = defaultUnsentLimit
	}
	return &Agent{
		store:  store,
		sender: sender,
		opts:   opts,
		now:    time.Now,
		log:    log.WithComponent("dispatch"),
	}
}

// SetClock replaces the time source
func (a *Agent) SetClock(now func() time.Time) {
	a.now = now
}

// SendResult contains the outcome of one send
type SendResult struct {
	Items     int // items selected for sending
	Batches   int // batches built
	Delivered int // batches accepted by the webhook
	Marked    int // news items flipped to sent
}

// NewsOptions selects between the hourly automatic send and a manual send
type NewsOptions struct {
	Auto bool
}

// SendUnsentNews batches the newest unsent items and sends them. Only items
// carried by batches the webhook accepted are marked sent, so a failure part
// way through leaves the rest for the next run.
func (a *Agent) SendUnsentNews(ctx context.Context, opts NewsOptions) (*SendResult, error) {
	if opts.Auto {
		enabled, err := storage.SettingBool(ctx, a.store, models.SettingAutoSendNews, true)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", models.SettingAutoSendNews, err)
		}
		if !enabled {
			return nil, ErrDisabled
		}
	}

	webhook, err := storage.SettingString(ctx, a.store, models.SettingDiscordWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("read webhook: %w", err)
	}
	if webhook == "" {
		return nil, ErrNoWebhook
	}

	items, err := a.store.ListUnsentNews(ctx, a.opts.UnsentLimit)
	if err != nil {
		return nil, fmt.Errorf("list unsent news: %w", err)
	}

	result := &SendResult{Items: len(items)}
	if len(items) == 0 {
		a.log.Info().Msg("No unsent news")
		return result, nil
	}

	mention, err := a.mention(ctx)
	if err != nil {
		return nil, err
	}
	username := newsUsernameManual
	if opts.Auto {
		username = newsUsernameAuto
	}

	batcher := notify.Batcher[*models.NewsItem]{
		Render:  notify.RenderNews,
		Header:  notify.NewsHeader(len(items), opts.Auto),
		Mention: mention,
		Budget:  a.opts.Budget,
	}
	batches := batcher.Batch(items)
	result.Batches = len(batches)

	delivered, sendErr := a.sender.SendBatches(ctx, webhook, username, batches)
	result.Delivered = delivered

	n := notify.CountItems(batches, delivered)
	if n > 0 {
		ids := make([]uint, 0, n)
		for _, item := range items[:n] {
			ids = append(ids, item.ID)
		}
		marked, err := a.store.MarkNewsSent(ctx, ids, a.now())
		result.Marked = int(marked)
		if err != nil {
			return result, fmt.Errorf("mark news sent: %w", err)
		}
	}

	if sendErr != nil {
		return result, fmt.Errorf("send news: %w", sendErr)
	}

	a.log.Info().
		Int("items", result.Items).
		Int("batches", result.Batches).
		Int("marked", result.Marked).
		Bool("auto", opts.Auto).
		Msg("News sent")

	return result, nil
}

// ReminderOptions selects between the daily automatic reminder and a test send
type ReminderOptions struct {
	Auto bool
}

// SendTaskReminders sends every pending task due today or earlier. Tasks are
// not modified, so the same reminders go out again the next day.
func (a *Agent) SendTaskReminders(ctx context.Context, opts ReminderOptions) (*SendResult, error) {
	if opts.Auto {
		enabled, err := storage.SettingBool(ctx, a.store, models.SettingAutoTaskReminders, true)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", models.SettingAutoTaskReminders, err)
		}
		if !enabled {
			return nil, ErrDisabled
		}
	}

	webhook, err := a.taskWebhook(ctx)
	if err != nil {
		return nil, err
	}

	now := a.now()
	y, m, d := now.Date()
	endOfToday := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	tasks, err := a.store.ListDueTasks(ctx, endOfToday)
	if err != nil {
		return nil, fmt.Errorf("list due tasks: %w", err)
	}

	result := &SendResult{Items: len(tasks)}
	if len(tasks) == 0 {
		a.log.Info().Msg("No tasks due for reminders")
		return result, nil
	}

	mention, err := a.mention(ctx)
	if err != nil {
		return nil, err
	}

	header, username := reminderHeaderTest, reminderUsernameTest
	if opts.Auto {
		header, username = reminderHeaderAuto, reminderUsernameAuto
	}

	batcher := notify.Batcher[*models.Task]{
		Render:  notify.TaskReminderRenderer(now),
		Header:  header,
		Mention: mention,
		Budget:  a.opts.Budget,
	}
	batches := batcher.Batch(tasks)
	result.Batches = len(batches)

	delivered, err := a.sender.SendBatches(ctx, webhook, username, batches)
	result.Delivered = delivered
	if err != nil {
		return result, fmt.Errorf("send reminders: %w", err)
	}

	a.log.Info().
		Int("tasks", result.Items).
		Int("batches", result.Batches).
		Bool("auto", opts.Auto).
		Msg("Task reminders sent")

	return result, nil
}

// taskWebhook prefers the dedicated task webhook and falls back to the news one
func (a *Agent) taskWebhook(ctx context.Context) (string, error) {
	for _, key := range []string{models.SettingDiscordTaskWebhookURL, models.SettingDiscordWebhookURL} {
		url, err := storage.SettingString(ctx, a.store, key)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", key, err)
		}
		if url != "" {
			return url, nil
		}
	}
	return "", ErrNoWebhook
}

func (a *Agent) mention(ctx context.Context) (string, error) {
	uid, err := storage.SettingString(ctx, a.store, models.SettingDiscordUserID)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", models.SettingDiscordUserID, err)
	}
	return notify.MentionToken(uid), nil
}

// IsConfigError reports whether err is a missing-configuration no-op
func IsConfigError(err error) bool {
	return errors.Is(err, ErrNoWebhook) || errors.Is(err, ErrDisabled)
}
