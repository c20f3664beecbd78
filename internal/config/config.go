package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	News      NewsConfig      `mapstructure:"news"`
	Discord   DiscordConfig   `mapstructure:"discord"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Library   LibraryConfig   `mapstructure:"library"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"` // SQLite file path
}

// AnthropicConfig holds Claude API settings. Used for summaries when no Gemini key is stored.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// GeminiConfig holds Generative Language API settings. The API key itself is a user setting.
type GeminiConfig struct {
	DefaultModel string        `mapstructure:"default_model"`
	Endpoint     string        `mapstructure:"endpoint"` // override for tests/proxies
	Timeout      time.Duration `mapstructure:"timeout"`
}

// NewsConfig holds feed fetching settings
type NewsConfig struct {
	ScheduledItemsPerFeed int           `mapstructure:"scheduled_items_per_feed"`
	ManualItemsPerFeed    int           `mapstructure:"manual_items_per_feed"`
	UnsentLimit           int           `mapstructure:"unsent_limit"`
	FetchTimeout          time.Duration `mapstructure:"fetch_timeout"`
}

// DiscordConfig holds webhook delivery settings
type DiscordConfig struct {
	BatchBudget   int           `mapstructure:"batch_budget"`
	BatchInterval time.Duration `mapstructure:"batch_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// SchedulerConfig holds scheduler settings
type SchedulerConfig struct {
	Tick               time.Duration `mapstructure:"tick"`
	FetchNewsCron      string        `mapstructure:"fetch_news_cron"`
	AutoSendNewsCron   string        `mapstructure:"auto_send_news_cron"`
	RecurringTasksCron string        `mapstructure:"recurring_tasks_cron"`
	TaskRemindersCron  string        `mapstructure:"task_reminders_cron"`
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	DiscordRequestsPerMinute   int     `mapstructure:"discord_requests_per_minute"`
	GeminiRequestsPerMinute    int     `mapstructure:"gemini_requests_per_minute"`
	AnthropicRequestsPerMinute int     `mapstructure:"anthropic_requests_per_minute"`
	SteamRequestsPerSecond     float64 `mapstructure:"steam_requests_per_second"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json or console
	Output     string `mapstructure:"output"` // stdout or file path
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ServerConfig holds the local control API settings
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LibraryConfig holds game library import settings
type LibraryConfig struct {
	SteamBaseURL  string        `mapstructure:"steam_base_url"`
	LegendaryPath string        `mapstructure:"legendary_path"`
	ImportTimeout time.Duration `mapstructure:"import_timeout"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Load .env file if present (ignore errors if not found)
	_ = godotenv.Load()
	_ = godotenv.Load(".env.local")

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".desk-dashboard"))
		}
	}

	v.SetEnvPrefix("DASHBOARD")
	v.AutomaticEnv()

	// Explicit bindings for nested keys (Viper doesn't auto-bind underscored nested keys)
	v.BindEnv("database.dsn", "DASHBOARD_DATABASE_DSN")
	v.BindEnv("anthropic.api_key", "DASHBOARD_ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "DASHBOARD_ANTHROPIC_MODEL")
	v.BindEnv("logging.level", "DASHBOARD_LOGGING_LEVEL")
	v.BindEnv("logging.output", "DASHBOARD_LOGGING_OUTPUT")
	v.BindEnv("server.enabled", "DASHBOARD_SERVER_ENABLED")
	v.BindEnv("server.addr", "DASHBOARD_SERVER_ADDR")
	v.BindEnv("library.legendary_path", "DASHBOARD_LIBRARY_LEGENDARY_PATH")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.dsn", "./data/dashboard.db")

	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.max_tokens", 512)

	v.SetDefault("gemini.default_model", "gemini-2.5-flash")
	v.SetDefault("gemini.timeout", "30s")

	v.SetDefault("news.scheduled_items_per_feed", 5)
	v.SetDefault("news.manual_items_per_feed", 10)
	v.SetDefault("news.unsent_limit", 10)
	v.SetDefault("news.fetch_timeout", "30s")

	// 1950 leaves headroom under Discord's 2000 character limit
	v.SetDefault("discord.batch_budget", 1950)
	v.SetDefault("discord.batch_interval", "1s")
	v.SetDefault("discord.timeout", "10s")

	v.SetDefault("scheduler.tick", "60s")
	v.SetDefault("scheduler.fetch_news_cron", "0 * * * *")      // every hour on the hour
	v.SetDefault("scheduler.auto_send_news_cron", "5 * * * *")  // five minutes after fetch
	v.SetDefault("scheduler.recurring_tasks_cron", "0 0 * * *") // midnight
	v.SetDefault("scheduler.task_reminders_cron", "0 9 * * *")  // 9am

	v.SetDefault("rate_limit.discord_requests_per_minute", 30)
	v.SetDefault("rate_limit.gemini_requests_per_minute", 10)
	v.SetDefault("rate_limit.anthropic_requests_per_minute", 10)
	v.SetDefault("rate_limit.steam_requests_per_second", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", "127.0.0.1:10000")

	v.SetDefault("library.steam_base_url", "https://api.steampowered.com")
	v.SetDefault("library.legendary_path", "legendary")
	v.SetDefault("library.import_timeout", "30s")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Discord.BatchBudget <= 0 {
		return fmt.Errorf("discord.batch_budget must be positive")
	}
	if c.Scheduler.Tick <= 0 {
		return fmt.Errorf("scheduler.tick must be positive")
	}
	if c.News.ScheduledItemsPerFeed <= 0 || c.News.ManualItemsPerFeed <= 0 {
		return fmt.Errorf("news items per feed must be positive")
	}
	return nil
}
