// Package app wires configuration into the store, clients and agents shared
// by the daemon and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/desk-dashboard/internal/agent/dispatch"
	"github.com/desk-dashboard/internal/agent/news"
	"github.com/desk-dashboard/internal/agent/recurring"
	"github.com/desk-dashboard/internal/ai"
	"github.com/desk-dashboard/internal/config"
	"github.com/desk-dashboard/internal/discord"
	"github.com/desk-dashboard/internal/library/epic"
	"github.com/desk-dashboard/internal/library/steam"
	"github.com/desk-dashboard/internal/scheduler"
	"github.com/desk-dashboard/internal/source/rss"
	"github.com/desk-dashboard/internal/storage/sqlite"
	"github.com/desk-dashboard/pkg/logger"
	"github.com/desk-dashboard/pkg/ratelimit"
)

// App holds every long-lived component
type App struct {
	Config    *config.Config
	Log       *logger.Logger
	Repo      *sqlite.Repository
	Limiter   *ratelimit.MultiLimiter
	Discord   *discord.Client
	News      *news.Fetcher
	Dispatch  *dispatch.Agent
	Recurring *recurring.Agent
	Steam     *steam.Importer
	Epic      *epic.Importer
}

// New opens and migrates the store and builds the components
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	repo, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := repo.Migrate(); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	limiter := ratelimit.New(ratelimit.Limits{
		DiscordPerMinute:   cfg.RateLimit.DiscordRequestsPerMinute,
		GeminiPerMinute:    cfg.RateLimit.GeminiRequestsPerMinute,
		AnthropicPerMinute: cfg.RateLimit.AnthropicRequestsPerMinute,
		SteamPerSecond:     cfg.RateLimit.SteamRequestsPerSecond,
	})

	var claude ai.Provider
	if cfg.Anthropic.APIKey != "" {
		claude = ai.NewClient(cfg.Anthropic, limiter, log)
	}
	newGemini := func(ctx context.Context, apiKey, model string) (ai.Provider, error) {
		client, err := ai.NewGeminiClient(ctx, ai.GeminiOptions{
			APIKey:   apiKey,
			Model:    model,
			Endpoint: cfg.Gemini.Endpoint,
			Timeout:  cfg.Gemini.Timeout,
		}, limiter, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	summarizer := ai.NewSummarizer(repo, claude, newGemini, cfg.Gemini.DefaultModel, log)

	webhook := discord.NewClient(limiter, log,
		discord.WithInterval(cfg.Discord.BatchInterval),
		discord.WithTimeout(cfg.Discord.Timeout),
	)

	return &App{
		Config:    cfg,
		Log:       log,
		Repo:      repo,
		Limiter:   limiter,
		Discord:   webhook,
		News:      news.NewFetcher(rss.New(cfg.News.FetchTimeout, limiter, log), summarizer, repo, log),
		Dispatch: dispatch.NewAgent(repo, webhook, dispatch.Options{
			Budget:      cfg.Discord.BatchBudget,
			UnsentLimit: cfg.News.UnsentLimit,
		}, log),
		Recurring: recurring.NewAgent(repo, log),
		Steam:     steam.NewImporter(steam.NewClient(cfg.Library.SteamBaseURL, limiter, log), repo, log),
		Epic: epic.NewImporter(cfg.Library.LegendaryPath, repo, log,
			epic.WithTimeout(cfg.Library.ImportTimeout)),
	}, nil
}

// Close releases the store
func (a *App) Close() error {
	return a.Repo.Close()
}

// RegisterJobs adds the four scheduled jobs. Configuration problems in the
// send jobs (toggle off, no webhook) are logged and treated as a no-op.
func (a *App) RegisterJobs(s *scheduler.Scheduler) error {
	jobs := []struct {
		name string
		spec string
		fn   scheduler.JobFunc
	}{
		{scheduler.JobFetchNews, a.Config.Scheduler.FetchNewsCron, a.fetchNewsJob},
		{scheduler.JobAutoSendNews, a.Config.Scheduler.AutoSendNewsCron, a.autoSendNewsJob},
		{scheduler.JobRecurringTasks, a.Config.Scheduler.RecurringTasksCron, a.recurringTasksJob},
		{scheduler.JobTaskReminders, a.Config.Scheduler.TaskRemindersCron, a.taskRemindersJob},
	}
	for _, j := range jobs {
		if err := s.Register(j.name, j.spec, j.fn); err != nil {
			return err
		}
		a.Log.Info().Str("job", j.name).Str("cron", j.spec).Msg("Job scheduled")
	}
	return nil
}

func (a *App) fetchNewsJob(ctx context.Context) error {
	result, err := a.News.FetchAll(ctx, a.Config.News.ScheduledItemsPerFeed)
	if err != nil {
		return err
	}
	a.Log.Info().
		Int("feeds", result.Feeds).
		Int("saved", result.Saved).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Scheduled fetch completed")
	return nil
}

func (a *App) autoSendNewsJob(ctx context.Context) error {
	result, err := a.Dispatch.SendUnsentNews(ctx, dispatch.NewsOptions{Auto: true})
	if dispatch.IsConfigError(err) {
		a.Log.Info().Err(err).Msg("Auto-send skipped")
		return nil
	}
	if err != nil {
		return err
	}
	a.Log.Info().Int("items", result.Items).Int("batches", result.Batches).Msg("Auto-send completed")
	return nil
}

func (a *App) recurringTasksJob(ctx context.Context) error {
	result, err := a.Recurring.Run(ctx)
	if err != nil {
		return err
	}
	a.Log.Info().Int("checked", result.Checked).Int("created", result.Created).Msg("Recurring tasks processed")
	return nil
}

func (a *App) taskRemindersJob(ctx context.Context) error {
	result, err := a.Dispatch.SendTaskReminders(ctx, dispatch.ReminderOptions{Auto: true})
	if dispatch.IsConfigError(err) {
		a.Log.Info().Err(err).Msg("Task reminders skipped")
		return nil
	}
	if err != nil {
		return err
	}
	a.Log.Info().Int("tasks", result.Items).Int("batches", result.Batches).Msg("Task reminders sent")
	return nil
}
