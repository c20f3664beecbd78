// Package recurring respawns completed recurring tasks.
package recurring

import (
	"context"
	"fmt"
	"time"

	"github.com/desk-dashboard/internal/models"
	"github.com/desk-dashboard/internal/recurrence"
	"github.com/desk-dashboard/pkg/logger"
)

// Store is the subset of storage.Repository the agent uses
type Store interface {
	ListCompletedRecurringTasks(ctx context.Context) ([]*models.Task, error)
	CreateTask(ctx context.Context, task *models.Task) error
}

// Agent runs the recurrence engine against the store
type Agent struct {
	store Store
	now   func() time.Time
	log   *logger.Logger
}

// NewAgent creates a recurring task agent
func NewAgent(store Store, log *logger.Logger) *Agent {
	return &Agent{
		store: store,
		now:   time.Now,
		log:   log.WithComponent("recurring"),
	}
}

// SetClock replaces the time source
func (a *Agent) SetClock(now func() time.Time) {
	a.now = now
}

// Result contains the results of one run
type Result struct {
	Checked  int
	Created  int
	Failed   int
	Errors   []error
	Duration time.Duration
}

// Run inserts one new task per qualifying source task. A failed insert is
// logged and counted; the rest still run.
func (a *Agent) Run(ctx context.Context) (*Result, error) {
	startTime := time.Now()

	tasks, err := a.store.ListCompletedRecurringTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring tasks: %w", err)
	}

	result := &Result{Checked: len(tasks)}
	for _, spawn := range recurrence.Plan(tasks, a.now()) {
		log := a.log.WithTaskID(spawn.Source.ID)

		if err := a.store.CreateTask(ctx, spawn.Task); err != nil {
			log.Error().Err(err).Str("title", spawn.Source.Title).Msg("Failed to create recurring task")
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("task %d: %w", spawn.Source.ID, err))
			continue
		}
		result.Created++

		log.Info().
			Uint("new_task_id", spawn.Task.ID).
			Str("title", spawn.Task.Title).
			Str("recurrence", string(spawn.Task.Recurrence)).
			Msg("Created new recurring task")
	}

	result.Duration = time.Since(startTime)

	a.log.Info().
		Int("checked", result.Checked).
		Int("created", result.Created).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("Recurring tasks processed")

	return result, nil
}
