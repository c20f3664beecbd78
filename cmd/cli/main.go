package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/desk-dashboard/internal/agent/dispatch"
	"github.com/desk-dashboard/internal/app"
	"github.com/desk-dashboard/internal/config"
	"github.com/desk-dashboard/internal/discord"
	"github.com/desk-dashboard/internal/library"
	"github.com/desk-dashboard/internal/models"
	"github.com/desk-dashboard/internal/notify"
	"github.com/desk-dashboard/internal/scheduler"
	"github.com/desk-dashboard/internal/storage"
	"github.com/desk-dashboard/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	a       *app.App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Personal dashboard: news feeds, tasks and game library",
		Long: `Manage RSS feeds, tasks and the game library, and push news and task
reminders to Discord. The dashboard-scheduler daemon runs the same jobs on a clock.`,
		PersistentPreRunE:  initializeApp,
		PersistentPostRunE: closeApp,
		SilenceUsage:       true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	rootCmd.AddCommand(feedsCmd())
	rootCmd.AddCommand(newsCmd())
	rootCmd.AddCommand(tasksCmd())
	rootCmd.AddCommand(gamesCmd())
	rootCmd.AddCommand(settingsCmd())
	rootCmd.AddCommand(webhookCmd())
	rootCmd.AddCommand(remindersCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(usageCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log = logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	a, err = app.New(cfg, log)
	return err
}

func closeApp(cmd *cobra.Command, args []string) error {
	if a == nil {
		return nil
	}
	return a.Close()
}

func parseIDs(args []string) ([]uint, error) {
	ids := make([]uint, 0, len(args))
	for _, arg := range args {
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", arg)
		}
		ids = append(ids, uint(id))
	}
	return ids, nil
}

// ============ FEED COMMANDS ============

func feedsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "RSS feed management",
	}

	cmd.AddCommand(feedsAddCmd())
	cmd.AddCommand(feedsListCmd())
	cmd.AddCommand(feedsDeleteCmd())
	return cmd
}

func feedsAddCmd() *cobra.Command {
	var inactive bool

	cmd := &cobra.Command{
		Use:   "add NAME URL",
		Short: "Add a feed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			feed := &models.Feed{
				Name:   strings.TrimSpace(args[0]),
				URL:    strings.TrimSpace(args[1]),
				Active: !inactive,
			}
			if err := a.Repo.CreateFeed(context.Background(), feed); err != nil {
				return fmt.Errorf("failed to add feed: %w", err)
			}
			fmt.Printf("Added feed #%d: %s\n", feed.ID, feed.Name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&inactive, "inactive", false, "Add the feed without fetching it")
	return cmd
}

func feedsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			feeds, err := a.Repo.ListFeeds(context.Background(), false)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Feeds (%d) ===\n\n", len(feeds))
			for _, f := range feeds {
				state := "active"
				if !f.Active {
					state = "inactive"
				}
				fmt.Printf("[%d] %s (%s)\n    %s\n", f.ID, f.Name, state, f.URL)
			}
			return nil
		},
	}
}

func feedsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a feed and its news items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.Repo.DeleteFeed(context.Background(), ids[0]); err != nil {
				return fmt.Errorf("failed to delete feed: %w", err)
			}
			fmt.Printf("Deleted feed #%d\n", ids[0])
			return nil
		},
	}
}

// ============ NEWS COMMANDS ============

func newsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "news",
		Short: "News fetching and delivery",
	}

	cmd.AddCommand(newsFetchCmd())
	cmd.AddCommand(newsSendCmd())
	cmd.AddCommand(newsListCmd())
	return cmd
}

func newsFetchCmd() *cobra.Command {
	var feedID uint
	var perFeed int

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch and summarise new entries from active feeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if perFeed <= 0 {
				perFeed = cfg.News.ManualItemsPerFeed
			}

			if feedID != 0 {
				feed, err := a.Repo.GetFeedByID(ctx, feedID)
				if err != nil {
					return fmt.Errorf("feed %d: %w", feedID, err)
				}
				res, err := a.News.FetchFeed(ctx, feed, perFeed)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %d found, %d saved, %d already stored\n", feed.Name, res.Found, res.Saved, res.Skipped)
				return nil
			}

			result, err := a.News.FetchAll(ctx, perFeed)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Fetch Results ===\n")
			fmt.Printf("Feeds:    %d\n", result.Feeds)
			fmt.Printf("Found:    %d\n", result.Found)
			fmt.Printf("Saved:    %d\n", result.Saved)
			fmt.Printf("Skipped:  %d\n", result.Skipped)
			fmt.Printf("Duration: %s\n", result.Duration)

			if len(result.Errors) > 0 {
				fmt.Printf("\nErrors:\n")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			return nil
		},
	}

	cmd.Flags().UintVar(&feedID, "feed", 0, "Fetch a single feed by ID")
	cmd.Flags().IntVar(&perFeed, "limit", 0, "Entries per feed (default news.manual_items_per_feed)")
	return cmd
}

func newsSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Send unsent news to the Discord webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.Dispatch.SendUnsentNews(context.Background(), dispatch.NewsOptions{})
			if err != nil {
				if result != nil && result.Marked > 0 {
					fmt.Printf("Sent %d of %d batches, %d items marked sent\n", result.Delivered, result.Batches, result.Marked)
				}
				return err
			}
			if result.Items == 0 {
				fmt.Println("No unsent news")
				return nil
			}
			fmt.Printf("Sent %d items in %d batches\n", result.Items, result.Batches)
			return nil
		},
	}
}

func newsListCmd() *cobra.Command {
	var limit int
	var unsent bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored news items",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var items []*models.NewsItem
			var err error
			if unsent {
				items, err = a.Repo.ListUnsentNews(ctx, limit)
			} else {
				items, err = a.Repo.ListNews(ctx, limit)
			}
			if err != nil {
				return err
			}

			fmt.Printf("\n=== News (%d) ===\n\n", len(items))
			for _, n := range items {
				mark := " "
				if n.Sent {
					mark = "✓"
				}
				fmt.Printf("[%d] %s %s | %s\n", n.ID, mark, n.FeedName(), n.Title)
				if n.Summary != "" {
					fmt.Printf("    %s\n", n.Summary)
				}
				fmt.Printf("    %s\n\n", n.Link)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum items")
	cmd.Flags().BoolVar(&unsent, "unsent", false, "Only items not yet sent")
	return cmd
}

// ============ TASK COMMANDS ============

func tasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task management",
	}

	cmd.AddCommand(tasksAddCmd())
	cmd.AddCommand(tasksListCmd())
	cmd.AddCommand(tasksCompleteCmd())
	cmd.AddCommand(tasksDeleteCmd())
	return cmd
}

// parseDue accepts "2006-01-02 15:04" or a bare date (due at midnight), in local time
func parseDue(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02T15:04", time.DateOnly} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid due date %q (use YYYY-MM-DD or \"YYYY-MM-DD HH:MM\")", s)
}

func tasksAddCmd() *cobra.Command {
	var description, due, priority, recurrence string

	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dueDate, err := parseDue(due)
			if err != nil {
				return err
			}
			p, err := models.ParsePriority(priority)
			if err != nil {
				return err
			}
			r, err := models.ParseRecurrence(recurrence)
			if err != nil {
				return err
			}

			task := &models.Task{
				Title:       args[0],
				Description: description,
				DueDate:     dueDate,
				Priority:    p,
				Status:      models.TaskStatusPending,
				Recurrence:  r,
			}
			if err := a.Repo.CreateTask(context.Background(), task); err != nil {
				return fmt.Errorf("failed to add task: %w", err)
			}
			fmt.Printf("Added task #%d: %s\n", task.ID, task.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&due, "due", "", "Due date: YYYY-MM-DD or \"YYYY-MM-DD HH:MM\"")
	cmd.Flags().StringVar(&priority, "priority", "Medium", "Low, Medium or High")
	cmd.Flags().StringVar(&recurrence, "recurrence", "", "Daily, Weekly or Monthly")
	return cmd
}

func tasksListCmd() *cobra.Command {
	var all bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks (pending only unless --all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := storage.DefaultTaskFilter()
			filter.Limit = limit
			if !all {
				s := models.TaskStatusPending
				filter.Status = &s
			}

			tasks, err := a.Repo.ListTasks(context.Background(), filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Tasks (%d) ===\n\n", len(tasks))
			for _, t := range tasks {
				due := "no due date"
				if t.DueDate != nil {
					due = t.DueDate.Local().Format("2006-01-02 15:04")
				}
				fmt.Printf("[%d] %s | %s | %s\n", t.ID, t.Title, t.Priority, t.Status)
				fmt.Printf("    Due: %s", due)
				if t.IsRecurring() {
					fmt.Printf(" | Repeats: %s", t.Recurrence)
				}
				fmt.Println()
				if t.Description != "" {
					fmt.Printf("    %s\n", t.Description)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Include completed tasks")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum tasks")
	return cmd
}

func tasksCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete ID...",
		Short: "Mark tasks completed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			now := time.Now()
			for _, id := range ids {
				if err := a.Repo.CompleteTask(context.Background(), id, now); err != nil {
					return fmt.Errorf("task %d: %w", id, err)
				}
				fmt.Printf("Completed task #%d\n", id)
			}
			return nil
		},
	}
}

func tasksDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.Repo.DeleteTask(context.Background(), ids[0]); err != nil {
				return fmt.Errorf("task %d: %w", ids[0], err)
			}
			fmt.Printf("Deleted task #%d\n", ids[0])
			return nil
		},
	}
}

// ============ GAME COMMANDS ============

func gamesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "games",
		Short: "Game library",
	}

	cmd.AddCommand(gamesImportCmd())
	cmd.AddCommand(gamesListCmd())
	cmd.AddCommand(gamesSetCompletedCmd("complete", true))
	cmd.AddCommand(gamesSetCompletedCmd("incomplete", false))
	return cmd
}

func gamesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "import steam|epic",
		Short:     "Import a storefront library",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"steam", "epic"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var result *library.ImportResult
			var err error
			switch strings.ToLower(args[0]) {
			case "steam":
				result, err = a.Steam.Import(ctx)
			case "epic":
				result, err = a.Epic.Import(ctx)
			default:
				return fmt.Errorf("unknown platform %q (steam or epic)", args[0])
			}
			if err != nil {
				return err
			}

			fmt.Printf("\n=== %s Import ===\n", result.Platform)
			fmt.Printf("Total:    %d\n", result.Total)
			fmt.Printf("Imported: %d\n", result.Imported)
			fmt.Printf("Updated:  %d\n", result.Updated)
			if result.Skipped > 0 {
				fmt.Printf("Skipped:  %d\n", result.Skipped)
			}
			if len(result.Errors) > 0 {
				fmt.Printf("\nErrors:\n")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}
			return nil
		},
	}
	return cmd
}

func gamesListCmd() *cobra.Command {
	var platform string
	var perfect bool
	var sortBy string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List games",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := storage.DefaultGameFilter()
			switch strings.ToLower(platform) {
			case "steam":
				filter.Platform = models.PlatformSteam
			case "epic":
				filter.Platform = models.PlatformEpic
			}
			filter.PerfectOnly = perfect
			if sortBy != "" {
				filter.OrderBy = sortBy
				filter.OrderDesc = sortBy == "playtime"
			}

			games, err := a.Repo.ListGames(context.Background(), filter)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Games (%d) ===\n\n", len(games))
			for _, g := range games {
				done := ""
				if g.IsCompleted {
					done = " ✓"
				}
				fmt.Printf("[%d] %s (%s)%s | %.1fh", g.ID, g.Name, g.Platform, done, float64(g.Playtime)/60)
				if g.HasAchievements {
					fmt.Printf(" | %d/%d achievements (%.0f%%)", g.AchievementsUnlocked, g.AchievementsTotal, g.AchievementPercent())
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&platform, "platform", "", "steam or epic")
	cmd.Flags().BoolVar(&perfect, "perfect", false, "Only games with every achievement unlocked")
	cmd.Flags().StringVar(&sortBy, "sort", "", "name or playtime")
	return cmd
}

func gamesSetCompletedCmd(use string, completed bool) *cobra.Command {
	short := "Mark games completed"
	if !completed {
		short = "Mark games not completed"
	}
	return &cobra.Command{
		Use:   use + " ID...",
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if err := a.Repo.SetGamesCompleted(context.Background(), ids, completed); err != nil {
				return err
			}
			fmt.Printf("Updated %d games\n", len(ids))
			return nil
		},
	}
}

// ============ SETTINGS COMMANDS ============

func settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Stored settings (webhooks, API keys, toggles)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [KEY]",
		Short: "Show one setting or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if len(args) == 1 {
				v, err := a.Repo.GetSetting(ctx, args[0])
				if errors.Is(err, storage.ErrNotFound) {
					return fmt.Errorf("setting %s is not set", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Println(v)
				return nil
			}

			settings, err := a.Repo.ListSettings(ctx)
			if err != nil {
				return err
			}
			for _, s := range settings {
				fmt.Printf("%s = %s\n", s.Key, maskSecret(s.Key, storage.DecodeSettingValue(s.Value)))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Store a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], strings.TrimSpace(args[1])
			if key == models.SettingDiscordUserID && value != "" && !discord.ValidUserID(value) {
				return fmt.Errorf("invalid Discord user ID %q: expected 17-19 digits", value)
			}
			if err := a.Repo.SetSetting(context.Background(), key, value); err != nil {
				return err
			}
			fmt.Printf("Saved %s\n", key)
			return nil
		},
	})

	return cmd
}

// maskSecret hides all but the first and last four characters of API keys
func maskSecret(key, value string) string {
	r := []rune(value)
	if !strings.HasSuffix(key, "_api_key") || len(r) <= 8 {
		return value
	}
	return string(r[:4]) + strings.Repeat("*", len(r)-8) + string(r[len(r)-4:])
}

// ============ WEBHOOK COMMANDS ============

func webhookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webhook",
		Short: "Discord webhook checks",
	}

	var tasks bool
	test := &cobra.Command{
		Use:   "test",
		Short: "Post a test message to the news (or task) webhook",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			key, username := models.SettingDiscordWebhookURL, "Dashboard Test"
			text := "🧪 This is a test message from your Personal Dashboard!"
			if tasks {
				key, username = models.SettingDiscordTaskWebhookURL, "Task Reminder Test"
				text = "⏰ This is a test message for task reminders from your Personal Dashboard!"
			}

			url, err := storage.SettingString(ctx, a.Repo, key)
			if err != nil {
				return err
			}
			if url == "" {
				return fmt.Errorf("%s is not set", key)
			}
			uid, err := storage.SettingString(ctx, a.Repo, models.SettingDiscordUserID)
			if err != nil {
				return err
			}

			if err := a.Discord.Test(ctx, url, username, notify.MentionToken(uid), text); err != nil {
				return fmt.Errorf("webhook test failed: %w", err)
			}
			if uid != "" {
				fmt.Println("Webhook test successful (with ping)")
			} else {
				fmt.Println("Webhook test successful (no ping, set discord_user_id for pings)")
			}
			return nil
		},
	}
	test.Flags().BoolVar(&tasks, "tasks", false, "Test the task reminder webhook")

	cmd.AddCommand(test)
	return cmd
}

func remindersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Task reminders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send today's reminders now, ignoring the auto_task_reminders toggle",
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.Dispatch.SendTaskReminders(context.Background(), dispatch.ReminderOptions{})
			if err != nil {
				return err
			}
			if result.Items == 0 {
				fmt.Println("No pending tasks due today or overdue")
				return nil
			}
			fmt.Printf("Sent reminders for %d tasks in %d batches\n", result.Items, result.Batches)
			return nil
		},
	})
	return cmd
}

// ============ JOB COMMANDS ============

func newScheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(log)
	if err := a.RegisterJobs(s); err != nil {
		return nil, err
	}
	return s, nil
}

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Scheduled jobs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List jobs and their next run",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newScheduler()
			if err != nil {
				return err
			}
			for _, j := range s.Jobs() {
				fmt.Printf("%-16s %-12s next %s\n", j.Name, j.Spec, j.NextRun.Format("2006-01-02 15:04"))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "run NAME",
		Short: "Run a job once, exactly as the scheduler would",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newScheduler()
			if err != nil {
				return err
			}
			if err := s.RunNow(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Job %s completed\n", args[0])
			return nil
		},
	})

	return cmd
}

func usageCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "usage API",
		Short: "Show successful API calls in the last hour, today and in total",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := storage.UsageStats(context.Background(), a.Repo, args[0], model, time.Now())
			if err != nil {
				return err
			}
			label := args[0]
			if model != "" {
				label += " / " + model
			}
			fmt.Printf("\n=== %s usage ===\n", label)
			fmt.Printf("Last hour: %d\n", stats.Hour)
			fmt.Printf("Today:     %d\n", stats.Day)
			fmt.Printf("Total:     %d\n", stats.Total)
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Filter by model name")
	return cmd
}
