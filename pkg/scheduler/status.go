package scheduler

import "time"

// TaskStatus tracks the runtime state of a single task. The scheduler
// updates it after every measurement; Status returns copies.
type TaskStatus struct {
	Key         string        `json:"key"`
	ID          uint64        `json:"id"`
	Interval    time.Duration `json:"interval"`
	Healthy     bool          `json:"healthy"`
	Value       float32       `json:"value"`
	LastRun     time.Time     `json:"last_run"`
	LastError   string        `json:"last_error,omitempty"`
	RunCount    int64         `json:"run_count"`
	ErrorCount  int64         `json:"error_count"`
	LastLatency time.Duration `json:"last_latency"`
}

// Stats counts snapshot publications.
type Stats struct {
	Published int64 `json:"published"`
	Dropped   int64 `json:"dropped"`
}

// Status returns a copy of every task status in registration order.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TaskStatus, len(s.statuses))
	copy(out, s.statuses)
	return out
}

// Stats returns the publication counters.
func (s *Scheduler) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// updateStatus applies fn to the status of task i under the lock.
func (s *Scheduler) updateStatus(i int, fn func(st *TaskStatus)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < len(s.statuses) {
		fn(&s.statuses[i])
	}
}
