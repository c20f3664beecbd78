// Package recurrence decides when completed recurring tasks respawn.
package recurrence

import (
	"time"

	"github.com/desk-dashboard/internal/models"
)

const (
	weeklyDays  = 7
	monthlyDays = 30
)

// Spawn pairs a source task with the new instance it produces
type Spawn struct {
	Source *models.Task
	Task   *models.Task
}

// Next returns the task to create for a completed recurring task, if one is
// due. Day arithmetic uses calendar dates in now's location.
//
// There is no "already spawned" marker: a source that qualifies today keeps
// qualifying on every run until it is edited or deleted.
func Next(task *models.Task, now time.Time) (*models.Task, bool) {
	if task == nil || !task.IsCompleted() || !task.IsRecurring() || task.CompletedAt == nil {
		return nil, false
	}

	loc := now.Location()
	today := dateOf(now, loc)
	completed := dateOf(*task.CompletedAt, loc)
	elapsed := daysBetween(completed, today)

	var due time.Time
	switch task.Recurrence {
	case models.RecurrenceDaily:
		if elapsed < 1 {
			return nil, false
		}
		due = today
	case models.RecurrenceWeekly:
		if elapsed < weeklyDays {
			return nil, false
		}
		due = completed.AddDate(0, 0, weeklyDays)
	case models.RecurrenceMonthly:
		if elapsed < monthlyDays {
			return nil, false
		}
		due = completed.AddDate(0, 0, monthlyDays)
	default:
		return nil, false
	}

	next := &models.Task{
		Title:       task.Title,
		Description: task.Description,
		Priority:    task.Priority,
		Status:      models.TaskStatusPending,
		Recurrence:  task.Recurrence,
	}
	if task.DueDate != nil {
		orig := task.DueDate.In(loc)
		d := time.Date(due.Year(), due.Month(), due.Day(),
			orig.Hour(), orig.Minute(), orig.Second(), 0, loc)
		next.DueDate = &d
	}

	return next, true
}

// Plan runs Next over tasks and returns every spawn, in input order
func Plan(tasks []*models.Task, now time.Time) []Spawn {
	var spawns []Spawn
	for _, t := range tasks {
		if next, ok := Next(t, now); ok {
			spawns = append(spawns, Spawn{Source: t, Task: next})
		}
	}
	return spawns
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// daysBetween counts calendar days from a to b, ignoring DST shifts
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
