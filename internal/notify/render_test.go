package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/desk-dashboard/internal/models"
)

func TestRenderNews(t *testing.T) {
	item := &models.NewsItem{
		Feed:    &models.Feed{Name: "Go Blog"},
		Title:   "Go 1.30 released",
		Summary: "Faster builds.",
		Link:    "https://go.dev/blog/go1.30",
	}

	want := "**Go Blog**: Go 1.30 released\nFaster builds.\n🔗 https://go.dev/blog/go1.30\n\n"
	if diff := cmp.Diff(want, RenderNews(item)); diff != "" {
		t.Errorf("RenderNews (-want +got):\n%s", diff)
	}
}

func TestRenderNewsTruncatesSummary(t *testing.T) {
	item := &models.NewsItem{
		Feed:    &models.Feed{Name: "F"},
		Title:   "T",
		Summary: strings.Repeat("s", 400),
	}
	lines := strings.Split(RenderNews(item), "\n")
	if len(lines[1]) != 250 || !strings.HasSuffix(lines[1], "...") {
		t.Errorf("summary line = %d chars, want 250 ending in ...", len(lines[1]))
	}
}

func TestNewsHeader(t *testing.T) {
	if got := NewsHeader(12, true); got != "📰 **Hourly News Update** (12 new items)" {
		t.Errorf("auto header = %q", got)
	}
	if got := NewsHeader(3, false); got != "📰 **News Update** (3 items)" {
		t.Errorf("manual header = %q", got)
	}
}

func TestTaskReminderRenderer(t *testing.T) {
	today := time.Date(2026, 4, 15, 9, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tonight := time.Date(2026, 4, 15, 22, 0, 0, 0, time.UTC)
	midnight := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)

	render := TaskReminderRenderer(today)

	tests := []struct {
		name string
		task *models.Task
		want string
	}{
		{
			name: "overdue with description",
			task: &models.Task{Title: "Pay rent", Description: "landlord", DueDate: &yesterday, Priority: models.PriorityHigh},
			want: "🔴 **OVERDUE**: Pay rent\n   landlord\n   Priority: High\n\n",
		},
		{
			name: "due later today",
			task: &models.Task{Title: "Call mom", DueDate: &tonight, Priority: models.PriorityMedium},
			want: "🟡 **DUE TODAY**: Call mom\n   Priority: Medium\n\n",
		},
		{
			name: "due at midnight is today",
			task: &models.Task{Title: "Standup", DueDate: &midnight, Priority: models.PriorityLow},
			want: "🟡 **DUE TODAY**: Standup\n   Priority: Low\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, render(tt.task)); diff != "" {
				t.Errorf("render (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTaskReminderTruncatesDescription(t *testing.T) {
	due := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	task := &models.Task{Title: "x", Description: strings.Repeat("d", 150), DueDate: &due, Priority: models.PriorityLow}

	lines := strings.Split(TaskReminderRenderer(due)(task), "\n")
	if got := strings.TrimPrefix(lines[1], "   "); len(got) != 100 || !strings.HasSuffix(got, "...") {
		t.Errorf("description line = %q", got)
	}
}
