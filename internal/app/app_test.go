package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/desk-dashboard/internal/config"
	"github.com/desk-dashboard/internal/scheduler"
	"github.com/desk-dashboard/pkg/logger"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.Database.DSN = filepath.Join(t.TempDir(), "app.db")
	cfg.Anthropic.APIKey = ""

	a, err := New(cfg, logger.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestJobsAreNoOpsWithoutConfiguration(t *testing.T) {
	ctx := context.Background()
	a := newTestApp(t)

	s := scheduler.New(logger.Nop())
	if err := a.RegisterJobs(s); err != nil {
		t.Fatalf("RegisterJobs: %v", err)
	}

	var names []string
	for _, j := range s.Jobs() {
		names = append(names, j.Name)
	}
	want := []string{"fetch_news", "auto_send_news", "recurring_tasks", "task_reminders"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("jobs mismatch (-want +got):\n%s", diff)
	}

	for _, name := range want {
		if err := s.RunNow(ctx, name); err != nil {
			t.Errorf("RunNow(%s) = %v, want nil", name, err)
		}
	}
}
