package meter

import (
	"context"
	"sync"
	"sync/atomic"
)

// MockMeter implements Meter for tests. It returns a configurable value or
// error and counts how many times Measure was called.
type MockMeter struct {
	keyed

	mu    sync.RWMutex
	value float32
	err   error
	calls atomic.Int64

	// MeasureFunc, if set, overrides the configured value and error.
	MeasureFunc func(ctx context.Context) (float32, error)
}

// MockOption configures a MockMeter.
type MockOption func(*MockMeter)

// WithValue sets the value returned by Measure.
func WithValue(v float32) MockOption {
	return func(m *MockMeter) { m.value = v }
}

// WithError sets the error returned by Measure.
func WithError(err error) MockOption {
	return func(m *MockMeter) { m.err = err }
}

// WithMeasureFunc sets a custom Measure implementation.
func WithMeasureFunc(fn func(ctx context.Context) (float32, error)) MockOption {
	return func(m *MockMeter) { m.MeasureFunc = fn }
}

// NewMockMeter returns a mock meter for key.
func NewMockMeter(key string, opts ...MockOption) *MockMeter {
	m := &MockMeter{keyed: newKeyed(key)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Set changes the value and error returned by later calls.
func (m *MockMeter) Set(v float32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value, m.err = v, err
}

func (m *MockMeter) Measure(ctx context.Context) (float32, error) {
	m.calls.Add(1)
	if m.MeasureFunc != nil {
		return m.MeasureFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, m.err
}

// CallCount returns how many times Measure has been called.
func (m *MockMeter) CallCount() int64 {
	return m.calls.Load()
}
