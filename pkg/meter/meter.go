// Package meter defines the telemetry sources polled by the scheduler and
// the measurement snapshot handed to the renderer. Each meter is identified
// by the 64-bit hash of a namespaced key such as "CPU:PERCENTAGE".
package meter

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// Meter is a telemetry source. Implementations live in this package (cpu.go,
// memory.go, gpu.go) and are created through Create.
type Meter interface {
	// ID returns the stable source id, SourceID(Key()).
	ID() uint64

	// Key returns the human-readable namespaced key, e.g. "CPU:PERCENTAGE".
	Key() string

	// Measure reads the current value. A failing sensor returns an error;
	// the caller keeps the previous value.
	Measure(ctx context.Context) (float32, error)
}

// Measurement is one value read from a meter.
type Measurement struct {
	SourceID uint64
	Value    float32
}

// Measurements maps source ids to their last known value. The key set is
// fixed when the snapshot is built; values are only written by the
// scheduler and the renderer receives clones.
type Measurements map[uint64]float32

// NewMeasurements returns a snapshot with one zero-valued entry per id.
func NewMeasurements(ids ...uint64) Measurements {
	m := make(Measurements, len(ids))
	for _, id := range ids {
		m[id] = 0
	}
	return m
}

// Set stores v under id. It returns false, leaving the snapshot unchanged,
// if id was not part of the snapshot when it was built.
func (m Measurements) Set(id uint64, v float32) bool {
	if _, ok := m[id]; !ok {
		return false
	}
	m[id] = v
	return true
}

// Clone returns an independent copy of m.
func (m Measurements) Clone() Measurements {
	c := make(Measurements, len(m))
	for id, v := range m {
		c[id] = v
	}
	return c
}

// LogValue renders the snapshot for structured logs with ids sorted.
func (m Measurements) LogValue() slog.Value {
	ids := make([]uint64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	attrs := make([]slog.Attr, 0, len(ids))
	for _, id := range ids {
		attrs = append(attrs, slog.Float64(Name(id), float64(m[id])))
	}
	return slog.GroupValue(attrs...)
}

// Factory builds a meter for a key.
type Factory func(key string) (Meter, error)

// builders maps each supported key to its constructor.
var builders = map[string]Factory{
	CPUPercentage:    func(key string) (Meter, error) { return NewCPUPercentage(), nil },
	CPUFrequency:     func(key string) (Meter, error) { return NewCPUFrequency(), nil },
	CPUTemperature:   func(key string) (Meter, error) { return NewCPUTemperature(), nil },
	CPULoad:          func(key string) (Meter, error) { return NewCPULoad(), nil },
	MemoryPercentage: func(key string) (Meter, error) { return NewMemoryPercentage(), nil },
	MemorySwap:       func(key string) (Meter, error) { return NewSwapPercentage(), nil },
	DiskPercentage:   func(key string) (Meter, error) { return NewDiskPercentage("/"), nil },
	GPUPercentage:    func(key string) (Meter, error) { return NewGPU(key, GPUUtilization), nil },
	GPUTemperature:   func(key string) (Meter, error) { return NewGPU(key, GPUTemp), nil },
	GPUMemory:        func(key string) (Meter, error) { return NewGPU(key, GPUMemoryUsed), nil },
}

// Create returns the meter registered for key.
func Create(key string) (Meter, error) {
	b, ok := builders[key]
	if !ok {
		return nil, fmt.Errorf("no meter for %q", key)
	}
	return b(key)
}

// Keys returns all supported meter keys, sorted.
func Keys() []string {
	keys := make([]string, 0, len(builders))
	for k := range builders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
