package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/desk-dashboard/internal/app"
	"github.com/desk-dashboard/internal/config"
	"github.com/desk-dashboard/internal/scheduler"
	"github.com/desk-dashboard/internal/server"
	"github.com/desk-dashboard/pkg/logger"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "dashboard-scheduler",
		Short: "Background scheduler for the desk dashboard",
		Long: `Fetches news hourly, posts unsent news and daily task reminders to Discord,
and spawns recurring tasks at midnight. Run it as a service.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	log.Info().Msg("Starting dashboard scheduler")

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.New(log, scheduler.WithTick(cfg.Scheduler.Tick))
	if err := a.RegisterJobs(sched); err != nil {
		return fmt.Errorf("failed to schedule jobs: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Server.Enabled {
		srv := server.New(sched, a.Repo, log)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				log.Error().Err(err).Msg("Control API failed")
			}
		}()
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("Shutting down scheduler")
		// A running job finishes before the loop exits.
		sched.Stop()
	}()

	return sched.Start(ctx)
}
