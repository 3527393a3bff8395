package meter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/sensors"
)

// keyed provides ID and Key for meters built from a key constant.
type keyed struct {
	key string
	id  uint64
}

func newKeyed(key string) keyed {
	return keyed{key: key, id: SourceID(key)}
}

func (k keyed) ID() uint64     { return k.id }
func (k keyed) Key() string    { return k.key }
func (k keyed) String() string { return k.key }

// --- CPU percentage ---

// CPUPercentageMeter reports total CPU utilisation (0-100) since the
// previous call.
type CPUPercentageMeter struct {
	keyed
}

func NewCPUPercentage() *CPUPercentageMeter {
	return &CPUPercentageMeter{keyed: newKeyed(CPUPercentage)}
}

func (m *CPUPercentageMeter) Measure(ctx context.Context) (float32, error) {
	// interval=0 compares against the previous call.
	total, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(total) == 0 {
		return 0, errors.New("cpu: no utilisation reported")
	}
	return float32(total[0]), nil
}

// --- CPU frequency ---

// CPUFrequencyMeter reports the mean current clock of all CPUs in MHz.
type CPUFrequencyMeter struct {
	keyed
}

func NewCPUFrequency() *CPUFrequencyMeter {
	return &CPUFrequencyMeter{keyed: newKeyed(CPUFrequency)}
}

func (m *CPUFrequencyMeter) Measure(ctx context.Context) (float32, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return 0, err
	}
	var sum float64
	var n int
	for _, info := range infos {
		if info.Mhz > 0 {
			sum += info.Mhz
			n++
		}
	}
	if n == 0 {
		return 0, errors.New("cpu: no frequency reported")
	}
	return float32(sum / float64(n)), nil
}

// --- CPU load ---

// CPULoadMeter reports the one-minute load average.
type CPULoadMeter struct {
	keyed
}

func NewCPULoad() *CPULoadMeter {
	return &CPULoadMeter{keyed: newKeyed(CPULoad)}
}

func (m *CPULoadMeter) Measure(ctx context.Context) (float32, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return float32(avg.Load1), nil
}

// --- CPU temperature ---

// cpuSensorPrefixes lists sensor keys in order of preference: the AMD CCD
// die sensor, the AMD control temperature, the Intel package sensor, then
// generic ARM thermal zones.
var cpuSensorPrefixes = []string{
	"k10temp_tccd1",
	"k10temp_tctl",
	"k10temp",
	"coretemp_package_id_0",
	"coretemp",
	"cpu_thermal",
	"soc_thermal",
}

// CPUTemperatureMeter reports the CPU temperature in degrees Celsius.
type CPUTemperatureMeter struct {
	keyed
	read func(ctx context.Context) ([]sensors.TemperatureStat, error)
}

func NewCPUTemperature() *CPUTemperatureMeter {
	return &CPUTemperatureMeter{
		keyed: newKeyed(CPUTemperature),
		read:  sensors.TemperaturesWithContext,
	}
}

func (m *CPUTemperatureMeter) Measure(ctx context.Context) (float32, error) {
	temps, err := m.read(ctx)
	// gopsutil returns partial results together with warnings for sensors
	// it could not read.
	if len(temps) == 0 {
		if err == nil {
			err = errors.New("no temperature sensors")
		}
		return 0, fmt.Errorf("cpu temperature: %w", err)
	}
	t, ok := pickCPUTemperature(temps)
	if !ok {
		return 0, errors.New("cpu temperature: no cpu sensor found")
	}
	return float32(t), nil
}

// pickCPUTemperature selects the preferred CPU sensor reading.
func pickCPUTemperature(temps []sensors.TemperatureStat) (float64, bool) {
	for _, prefix := range cpuSensorPrefixes {
		for _, t := range temps {
			if strings.HasPrefix(strings.ToLower(t.SensorKey), prefix) && t.Temperature > 0 {
				return t.Temperature, true
			}
		}
	}
	return 0, false
}
