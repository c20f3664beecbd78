// Package scheduler runs named jobs on cron cadences from a polling loop.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/desk-dashboard/pkg/logger"
)

// Job names used by the daemon
const (
	JobFetchNews      = "fetch_news"
	JobAutoSendNews   = "auto_send_news"
	JobRecurringTasks = "recurring_tasks"
	JobTaskReminders  = "task_reminders"
)

// DefaultTick is how often the loop checks for due jobs
const DefaultTick = 60 * time.Second

var (
	// ErrUnknownJob is returned by RunNow for a name that was never registered
	ErrUnknownJob = errors.New("unknown job")
	// ErrRunning is returned by Start when the loop is already running
	ErrRunning = errors.New("scheduler already running")
)

// JobFunc is the body of a job
type JobFunc func(ctx context.Context) error

// State is the loop state
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// JobInfo is a point-in-time view of a registered job
type JobInfo struct {
	Name         string        `json:"name"`
	Spec         string        `json:"spec"`
	NextRun      time.Time     `json:"next_run"`
	LastRun      time.Time     `json:"last_run,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
	LastError    string        `json:"last_error,omitempty"`
	Runs         int           `json:"runs"`
}

type job struct {
	name     string
	spec     string
	schedule cron.Schedule
	fn       JobFunc

	next         time.Time
	lastRun      time.Time
	lastDuration time.Duration
	lastErr      error
	runs         int
}

// Scheduler owns the job table and the loop state. Jobs run one at a time,
// whether fired by the loop or triggered manually.
type Scheduler struct {
	mu    sync.Mutex
	jobs  []*job
	state State
	wake  chan struct{}

	runMu sync.Mutex

	tick time.Duration
	now  func() time.Time
	log  *logger.Logger
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithTick sets the polling interval
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New creates a stopped scheduler
func New(log *logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		tick: DefaultTick,
		now:  time.Now,
		wake: make(chan struct{}, 1),
		log:  log.WithComponent("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds a job with a standard five-field cron expression (or a
// descriptor such as @hourly). The first run is the next match after now.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", name, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, j := range s.jobs {
		if j.name == name {
			return fmt.Errorf("job %s already registered", name)
		}
	}
	s.jobs = append(s.jobs, &job{
		name:     name,
		spec:     spec,
		schedule: schedule,
		fn:       fn,
		next:     schedule.Next(s.now()),
	})
	return nil
}

// Start runs the polling loop until Stop is called or ctx is done
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Running {
		s.mu.Unlock()
		return ErrRunning
	}
	s.state = Running
	s.mu.Unlock()

	s.log.Info().Dur("tick", s.tick).Int("jobs", len(s.Jobs())).Msg("Scheduler started")

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		if !s.Running() {
			break
		}
		s.RunPending(ctx)

		select {
		case <-ctx.Done():
			s.setState(Stopped)
		case <-s.wake:
		case <-ticker.C:
		}
	}

	s.log.Info().Msg("Scheduler stopped")
	return nil
}

// Stop asks the loop to exit. A job already running finishes first.
func (s *Scheduler) Stop() {
	s.setState(Stopped)
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Running reports whether the loop is active
func (s *Scheduler) Running() bool {
	return s.State() == Running
}

// State returns the loop state
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Scheduler) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// RunPending runs every job whose next run time has passed and returns how
// many ran. Missed periods collapse into a single run.
func (s *Scheduler) RunPending(ctx context.Context) int {
	now := s.now()

	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if !now.Before(j.next) {
			due = append(due, j)
			j.next = j.schedule.Next(now)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		if ctx.Err() != nil {
			break
		}
		_ = s.run(ctx, j)
	}
	return len(due)
}

// RunNow runs the named job synchronously and returns its error. The
// regular schedule is unaffected.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	var target *job
	for _, j := range s.jobs {
		if j.name == name {
			target = j
			break
		}
	}
	s.mu.Unlock()

	if target == nil {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, target)
}

// Jobs returns a snapshot of the registered jobs in registration order
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		info := JobInfo{
			Name:         j.name,
			Spec:         j.spec,
			NextRun:      j.next,
			LastRun:      j.lastRun,
			LastDuration: j.lastDuration,
			Runs:         j.runs,
		}
		if j.lastErr != nil {
			info.LastError = j.lastErr.Error()
		}
		out = append(out, info)
	}
	return out
}

func (s *Scheduler) run(ctx context.Context, j *job) (err error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	log := s.log.WithJob(j.name)
	start := s.now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", j.name, r)
			log.Error().Str("stack", string(debug.Stack())).Interface("panic", r).Msg("Job panicked")
		}

		s.mu.Lock()
		j.lastRun = start
		j.lastDuration = s.now().Sub(start)
		j.lastErr = err
		j.runs++
		s.mu.Unlock()

		if err != nil {
			log.Error().Err(err).Msg("Job failed")
		} else {
			log.Info().Dur("duration", s.now().Sub(start)).Msg("Job completed")
		}
	}()

	log.Debug().Msg("Running job")
	return j.fn(ctx)
}
