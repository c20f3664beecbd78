package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if diff := cmp.Diff(1950, cfg.Discord.BatchBudget); diff != "" {
		t.Errorf("batch budget (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(time.Second, cfg.Discord.BatchInterval); diff != "" {
		t.Errorf("batch interval (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(60*time.Second, cfg.Scheduler.Tick); diff != "" {
		t.Errorf("tick (-want +got):\n%s", diff)
	}

	wantCrons := SchedulerConfig{
		Tick:               60 * time.Second,
		FetchNewsCron:      "0 * * * *",
		AutoSendNewsCron:   "5 * * * *",
		RecurringTasksCron: "0 0 * * *",
		TaskRemindersCron:  "0 9 * * *",
	}
	if diff := cmp.Diff(wantCrons, cfg.Scheduler); diff != "" {
		t.Errorf("scheduler config (-want +got):\n%s", diff)
	}

	if cfg.News.ScheduledItemsPerFeed != 5 || cfg.News.ManualItemsPerFeed != 10 {
		t.Errorf("items per feed = %d/%d, want 5/10", cfg.News.ScheduledItemsPerFeed, cfg.News.ManualItemsPerFeed)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "custom.yaml")
	content := []byte(`
database:
  dsn: /tmp/dash.db
discord:
  batch_budget: 1000
  batch_interval: 250ms
scheduler:
  task_reminders_cron: "30 8 * * *"
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Database.DSN != "/tmp/dash.db" {
		t.Errorf("dsn = %q", cfg.Database.DSN)
	}
	if cfg.Discord.BatchBudget != 1000 {
		t.Errorf("batch budget = %d, want 1000", cfg.Discord.BatchBudget)
	}
	if cfg.Discord.BatchInterval != 250*time.Millisecond {
		t.Errorf("batch interval = %v", cfg.Discord.BatchInterval)
	}
	if cfg.Scheduler.TaskRemindersCron != "30 8 * * *" {
		t.Errorf("reminders cron = %q", cfg.Scheduler.TaskRemindersCron)
	}
	// untouched keys keep defaults
	if cfg.Scheduler.FetchNewsCron != "0 * * * *" {
		t.Errorf("fetch cron = %q", cfg.Scheduler.FetchNewsCron)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "no dsn", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: true},
		{name: "zero budget", mutate: func(c *Config) { c.Discord.BatchBudget = 0 }, wantErr: true},
		{name: "zero tick", mutate: func(c *Config) { c.Scheduler.Tick = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{
				Database:  DatabaseConfig{DSN: "x.db"},
				Discord:   DiscordConfig{BatchBudget: 1950},
				Scheduler: SchedulerConfig{Tick: time.Minute},
				News:      NewsConfig{ScheduledItemsPerFeed: 5, ManualItemsPerFeed: 10},
			}
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
