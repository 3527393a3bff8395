// Package scheduler polls meters at their own intervals, keeps the latest
// value of each in a measurement snapshot and periodically offers a copy of
// that snapshot to the renderer through a single-slot mailbox.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/turing-screen/pkg/meter"
)

const (
	// DefaultQuantum is the sleep between two polling passes. It bounds both
	// CPU usage and the jitter of every meter interval.
	DefaultQuantum = 100 * time.Millisecond

	// longAgo backdates the last run of new tasks so they fire on the first
	// pass.
	longAgo = 24 * time.Hour
)

// Task pairs a meter with its polling interval.
type Task struct {
	meter    meter.Meter
	interval time.Duration
	last     time.Time
}

// NewTask returns a task that measures m every interval.
func NewTask(m meter.Meter, interval time.Duration) *Task {
	return &Task{meter: m, interval: interval}
}

// Scheduler owns a list of tasks and runs the polling loop. Tasks are
// evaluated in registration order on every pass.
type Scheduler struct {
	out     *Slot[meter.Measurements]
	refresh time.Duration
	quantum time.Duration
	now     func() time.Time
	logger  *slog.Logger

	tasks       []*Task
	lastPublish time.Time

	mu       sync.RWMutex
	statuses []TaskStatus
	stats    Stats
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithQuantum sets the sleep between polling passes.
func WithQuantum(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.quantum = d
		}
	}
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New returns a scheduler that offers a snapshot to out every refresh.
func New(out *Slot[meter.Measurements], refresh time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		out:     out,
		refresh: refresh,
		quantum: DefaultQuantum,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterTask appends t to the polling list. It must be called before
// Start.
func (s *Scheduler) RegisterTask(t *Task) {
	t.last = s.now().Add(-longAgo)
	s.tasks = append(s.tasks, t)

	s.mu.Lock()
	s.statuses = append(s.statuses, TaskStatus{
		Key:      t.meter.Key(),
		ID:       t.meter.ID(),
		Interval: t.interval,
		Healthy:  true,
	})
	s.mu.Unlock()

	s.logger.Info("register meter", "meter", t.meter.Key(), "id", t.meter.ID(), "interval", t.interval)
}

// Start runs the polling loop on snapshot until ctx is cancelled. The
// snapshot must contain an entry for every registered meter; it is owned by
// the scheduler from now on.
func (s *Scheduler) Start(ctx context.Context, snapshot meter.Measurements) error {
	s.logger.Info("start scheduler", "tasks", len(s.tasks), "refresh", s.refresh, "quantum", s.quantum)
	s.lastPublish = s.now().Add(-longAgo)

	timer := time.NewTimer(s.quantum)
	defer timer.Stop()

	for {
		s.tick(ctx, snapshot)

		timer.Reset(s.quantum)
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tick performs one polling pass: due meters are measured, then the
// snapshot is offered to the renderer if the refresh period has elapsed.
func (s *Scheduler) tick(ctx context.Context, snapshot meter.Measurements) {
	now := s.now()

	for i, t := range s.tasks {
		if now.Sub(t.last) < t.interval {
			continue
		}
		t.last = now
		s.measure(ctx, i, t, snapshot)
	}

	if now.Sub(s.lastPublish) >= s.refresh {
		s.lastPublish = now
		s.publish(snapshot)
	}
}

func (s *Scheduler) measure(ctx context.Context, i int, t *Task, snapshot meter.Measurements) {
	start := time.Now()
	v, err := t.meter.Measure(ctx)
	latency := time.Since(start)

	s.updateStatus(i, func(st *TaskStatus) {
		st.LastRun = start
		st.LastLatency = latency
		st.RunCount++
		if err != nil {
			st.ErrorCount++
			st.LastError = err.Error()
			st.Healthy = false
			return
		}
		st.Value = v
		st.LastError = ""
		st.Healthy = true
	})

	if err != nil {
		s.logger.Warn("measurement error", "meter", t.meter.Key(), "error", err)
		return
	}
	if !snapshot.Set(t.meter.ID(), v) {
		s.logger.Error("meter missing from snapshot", "meter", t.meter.Key(), "id", t.meter.ID())
	}
}

func (s *Scheduler) publish(snapshot meter.Measurements) {
	sent := s.out.TrySend(snapshot.Clone())

	s.mu.Lock()
	if sent {
		s.stats.Published++
	} else {
		s.stats.Dropped++
	}
	s.mu.Unlock()

	if !sent {
		s.logger.Info("renderer busy, snapshot dropped")
		return
	}
	s.logger.Debug("snapshot published", "measurements", snapshot)
}
