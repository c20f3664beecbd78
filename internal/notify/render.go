package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/desk-dashboard/internal/models"
)

const (
	newsSummaryMax     = 250
	taskDescriptionMax = 100
)

// RenderNews formats one news item with its feed, summary and link
func RenderNews(item *models.NewsItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "**%s**: %s\n", item.FeedName(), item.Title)
	if item.Summary != "" {
		b.WriteString(Truncate(item.Summary, newsSummaryMax))
		b.WriteString("\n")
	}
	if item.Link != "" {
		fmt.Fprintf(&b, "🔗 %s\n", item.Link)
	}
	b.WriteString("\n")

	return b.String()
}

// NewsHeader is the header of an automatic hourly send
func NewsHeader(count int, auto bool) string {
	if auto {
		return fmt.Sprintf("📰 **Hourly News Update** (%d new items)", count)
	}
	return fmt.Sprintf("📰 **News Update** (%d items)", count)
}

// TaskReminderRenderer returns a render function that labels tasks due
// before today as overdue and the rest as due today
func TaskReminderRenderer(today time.Time) func(*models.Task) string {
	y, m, d := today.Date()
	startOfToday := time.Date(y, m, d, 0, 0, 0, 0, today.Location())

	return func(task *models.Task) string {
		var b strings.Builder

		label := "🟡 **DUE TODAY**"
		if task.DueDate != nil && task.DueDate.Before(startOfToday) {
			label = "🔴 **OVERDUE**"
		}
		fmt.Fprintf(&b, "%s: %s\n", label, task.Title)

		if desc := strings.TrimSpace(task.Description); desc != "" {
			fmt.Fprintf(&b, "   %s\n", Truncate(desc, taskDescriptionMax))
		}
		fmt.Fprintf(&b, "   Priority: %s\n\n", task.Priority)

		return b.String()
	}
}
