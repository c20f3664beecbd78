package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/lumberjack.v2"
)

// Logger wraps zerolog.Logger with additional context
type Logger struct {
	zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout or file path
	MaxSizeMB  int    // rotate file output after this many megabytes
	MaxBackups int
	MaxAgeDays int
}

// New creates a new logger with the given configuration
func New(cfg Config) *Logger {
	var output io.Writer = os.Stdout

	// Set output; files are rotated by lumberjack
	if cfg.Output != "" && cfg.Output != "stdout" {
		output = &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			LocalTime:  true,
		}
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()

	return &Logger{Logger: logger}
}

// Default creates a default console logger
func Default() *Logger {
	return New(Config{
		Level:  "info",
		Format: "console",
		Output: "stdout",
	})
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// WithJob adds the scheduled job name to the logger
func (l *Logger) WithJob(name string) *Logger {
	return &Logger{
		Logger: l.With().Str("job", name).Logger(),
	}
}

// WithFeed adds feed identity fields to the logger
func (l *Logger) WithFeed(id uint, name string) *Logger {
	return &Logger{
		Logger: l.With().
			Uint("feed_id", id).
			Str("feed_name", name).
			Logger(),
	}
}

// WithTaskID adds a task ID to the logger
func (l *Logger) WithTaskID(id uint) *Logger {
	return &Logger{
		Logger: l.With().Uint("task_id", id).Logger(),
	}
}
