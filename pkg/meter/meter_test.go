package meter

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v4/sensors"
)

// --- ids ---

func TestSourceIDStable(t *testing.T) {
	if SourceID(CPUPercentage) != SourceID("CPU:PERCENTAGE") {
		t.Fatal("SourceID is not deterministic")
	}
	seen := make(map[uint64]string)
	for _, key := range Keys() {
		id := SourceID(key)
		if other, dup := seen[id]; dup {
			t.Errorf("SourceID(%q) collides with %q", key, other)
		}
		seen[id] = key
	}
}

func TestName(t *testing.T) {
	if got := Name(SourceID(CPUTemperature)); got != CPUTemperature {
		t.Errorf("Name = %q, want %q", got, CPUTemperature)
	}
	if got := Name(0x2a); got != "0x2a" {
		t.Errorf("Name(0x2a) = %q, want %q", got, "0x2a")
	}
}

// --- snapshot ---

func TestMeasurementsFixedKeys(t *testing.T) {
	a, b := SourceID(CPUPercentage), SourceID(CPUTemperature)
	m := NewMeasurements(a, b)

	if len(m) != 2 {
		t.Fatalf("len = %d, want 2", len(m))
	}
	if !m.Set(a, 12.5) {
		t.Fatal("Set on a known id returned false")
	}
	if m[a] != 12.5 {
		t.Errorf("m[a] = %v, want 12.5", m[a])
	}
	if m.Set(SourceID("NOPE:NOPE"), 1) {
		t.Fatal("Set on an unknown id returned true")
	}
	if len(m) != 2 {
		t.Errorf("key set grew to %d entries", len(m))
	}
}

func TestMeasurementsClone(t *testing.T) {
	id := SourceID(CPUPercentage)
	m := NewMeasurements(id)
	m.Set(id, 1)

	c := m.Clone()
	m.Set(id, 2)

	if c[id] != 1 {
		t.Errorf("clone changed with the original: %v", c[id])
	}
}

// --- factory ---

func TestCreateKnownKeys(t *testing.T) {
	for _, key := range Keys() {
		m, err := Create(key)
		if err != nil {
			t.Errorf("Create(%q): %v", key, err)
			continue
		}
		if m.Key() != key {
			t.Errorf("Create(%q).Key() = %q", key, m.Key())
		}
		if m.ID() != SourceID(key) {
			t.Errorf("Create(%q).ID() = %x, want %x", key, m.ID(), SourceID(key))
		}
	}
}

func TestCreateUnknownKey(t *testing.T) {
	if _, err := Create("FAN:SPEED"); err == nil {
		t.Fatal("Create of an unknown key should fail")
	}
}

// --- temperature selection ---

func TestPickCPUTemperature(t *testing.T) {
	tests := []struct {
		name  string
		temps []sensors.TemperatureStat
		want  float64
		ok    bool
	}{
		{
			name: "amd ccd preferred over tctl",
			temps: []sensors.TemperatureStat{
				{SensorKey: "k10temp_tctl", Temperature: 60},
				{SensorKey: "k10temp_tccd1", Temperature: 55},
			},
			want: 55, ok: true,
		},
		{
			name: "intel package",
			temps: []sensors.TemperatureStat{
				{SensorKey: "acpitz", Temperature: 30},
				{SensorKey: "coretemp_package_id_0", Temperature: 48},
				{SensorKey: "coretemp_core_0", Temperature: 45},
			},
			want: 48, ok: true,
		},
		{
			name:  "raspberry pi",
			temps: []sensors.TemperatureStat{{SensorKey: "cpu_thermal", Temperature: 51}},
			want:  51, ok: true,
		},
		{
			name:  "no cpu sensor",
			temps: []sensors.TemperatureStat{{SensorKey: "nvme_composite", Temperature: 40}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickCPUTemperature(tt.temps)
			if ok != tt.ok || got != tt.want {
				t.Errorf("pickCPUTemperature = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestCPUTemperaturePartialWarnings(t *testing.T) {
	m := NewCPUTemperature()
	m.read = func(ctx context.Context) ([]sensors.TemperatureStat, error) {
		return []sensors.TemperatureStat{{SensorKey: "coretemp_package_id_0", Temperature: 42}},
			errors.New("some sensors unreadable")
	}
	v, err := m.Measure(context.Background())
	if err != nil {
		t.Fatalf("Measure: %v", err)
	}
	if v != 42 {
		t.Errorf("Measure = %v, want 42", v)
	}
}

func TestCPUTemperatureNoSensors(t *testing.T) {
	m := NewCPUTemperature()
	m.read = func(ctx context.Context) ([]sensors.TemperatureStat, error) { return nil, nil }
	if _, err := m.Measure(context.Background()); err == nil {
		t.Fatal("Measure without sensors should fail")
	}
}

// --- gpu ---

func TestParseGPUStats(t *testing.T) {
	out := "37, 61, 2048, 8192\n[N/A], 40, 1, 2\nbroken\n"
	gpus := parseGPUStats(out)
	if len(gpus) != 2 {
		t.Fatalf("parsed %d gpus, want 2", len(gpus))
	}
	if gpus[0].Utilization != 37 || gpus[0].Temperature != 61 {
		t.Errorf("gpu 0 = %+v", gpus[0])
	}
	if gpus[1].Utilization != 0 {
		t.Errorf("[N/A] should parse as 0, got %v", gpus[1].Utilization)
	}
}

func TestGPUMeterFields(t *testing.T) {
	fake := func(ctx context.Context) ([]byte, error) { return []byte("37, 61, 2048, 8192\n"), nil }
	tests := []struct {
		field GPUField
		want  float32
	}{
		{GPUUtilization, 37},
		{GPUTemp, 61},
		{GPUMemoryUsed, 25},
	}
	for _, tt := range tests {
		m := NewGPU(GPUPercentage, tt.field)
		m.run = fake
		got, err := m.Measure(context.Background())
		if err != nil {
			t.Fatalf("field %d: %v", tt.field, err)
		}
		if got != tt.want {
			t.Errorf("field %d = %v, want %v", tt.field, got, tt.want)
		}
	}
}

func TestGPUMeterToolMissing(t *testing.T) {
	m := NewGPU(GPUTemperature, GPUTemp)
	m.run = func(ctx context.Context) ([]byte, error) { return nil, errors.New("exec: not found") }
	if _, err := m.Measure(context.Background()); err == nil {
		t.Fatal("Measure should fail when nvidia-smi is missing")
	}
}

// --- mock ---

func TestMockMeter(t *testing.T) {
	m := NewMockMeter("TEST:VALUE", WithValue(3))
	v, err := m.Measure(context.Background())
	if err != nil || v != 3 {
		t.Fatalf("Measure = (%v, %v), want (3, nil)", v, err)
	}
	m.Set(0, errors.New("boom"))
	if _, err := m.Measure(context.Background()); err == nil {
		t.Fatal("expected error after Set")
	}
	if m.CallCount() != 2 {
		t.Errorf("CallCount = %d, want 2", m.CallCount())
	}
}

// --- integration tests (run on actual host) ---

func TestCPUPercentageRange(t *testing.T) {
	m := NewCPUPercentage()
	v, err := m.Measure(context.Background())
	if err != nil {
		t.Skipf("cpu percent unavailable: %v", err)
	}
	if v < 0 || v > 100 {
		t.Errorf("CPU percentage = %v, want 0-100", v)
	}
}

func TestMemoryPercentageRange(t *testing.T) {
	m := NewMemoryPercentage()
	v, err := m.Measure(context.Background())
	if err != nil {
		t.Skipf("memory stats unavailable: %v", err)
	}
	if v <= 0 || v > 100 {
		t.Errorf("memory percentage = %v, want (0, 100]", v)
	}
}
