package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gitlab.com/tinyland/lab/turing-screen/pkg/scheduler"
)

// HealthStatus is the content of the health file.
type HealthStatus struct {
	PID     int       `json:"pid"`
	Started time.Time `json:"started"`
	Updated time.Time `json:"updated"`
	Port    string    `json:"port"`
	Theme   string    `json:"theme"`

	// Healthy is false when any meter failed its last measurement.
	Healthy bool                   `json:"healthy"`
	Meters  []scheduler.TaskStatus `json:"meters"`
	Stats   scheduler.Stats        `json:"stats"`
}

// StatusSource is what the health loop samples.
type StatusSource interface {
	Status() []scheduler.TaskStatus
	Stats() scheduler.Stats
}

// Health periodically writes the state of a scheduler to a file.
type Health struct {
	path     string
	interval time.Duration
	src      StatusSource
	base     HealthStatus
	logger   *slog.Logger
	now      func() time.Time
}

// NewHealth returns a health writer for src. port and theme are copied
// into every status.
func NewHealth(path string, interval time.Duration, src StatusSource, port, theme string, logger *slog.Logger) *Health {
	if logger == nil {
		logger = slog.Default()
	}
	return &Health{
		path:     path,
		interval: interval,
		src:      src,
		base: HealthStatus{
			PID:     os.Getpid(),
			Started: time.Now(),
			Port:    port,
			Theme:   theme,
		},
		logger: logger,
		now:    time.Now,
	}
}

// Snapshot builds the current status.
func (h *Health) Snapshot() *HealthStatus {
	st := h.base
	st.Updated = h.now()
	st.Meters = h.src.Status()
	st.Stats = h.src.Stats()
	st.Healthy = true
	for _, m := range st.Meters {
		if !m.Healthy {
			st.Healthy = false
			break
		}
	}
	return &st
}

// Run writes the status every interval until ctx is cancelled, then
// removes the file. Write failures are logged.
func (h *Health) Run(ctx context.Context) error {
	t := time.NewTicker(h.interval)
	defer t.Stop()
	defer os.Remove(h.path)

	h.write()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			h.write()
		}
	}
}

func (h *Health) write() {
	if err := WriteHealthFile(h.path, h.Snapshot()); err != nil {
		h.logger.Warn("write health file", "path", h.path, "error", err)
	}
}

// WriteHealthFile writes status as indented JSON to path, through a
// temporary file renamed into place.
func WriteHealthFile(path string, status *HealthStatus) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create health directory: %w", err)
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health status: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp health file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename health file: %w", err)
	}
	return nil
}

// ReadHealthFile reads the status written by WriteHealthFile.
func ReadHealthFile(path string) (*HealthStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read health file: %w", err)
	}

	var status HealthStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("unmarshal health file: %w", err)
	}
	return &status, nil
}
