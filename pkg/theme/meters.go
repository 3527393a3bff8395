package theme

import (
	"log/slog"
	"time"

	"gitlab.com/tinyland/lab/turing-screen/pkg/meter"
)

// DefaultInterval applies when neither the meter, its device nor the stats
// section set an interval.
const DefaultInterval = 2 * time.Second

// MeterConfig binds a meter id to its polling interval and widget layout.
// Configs are built once at startup and only read afterwards.
type MeterConfig struct {
	ID       uint64
	Key      string
	Interval time.Duration
	Layout   DeviceMeter
}

// meterEntry is one configured metric of the theme.
type meterEntry struct {
	key         string
	layout      *DeviceMeter
	devInterval *float64
}

// meters lists the configured metrics in a fixed device and metric order.
func (t *Theme) meters() []meterEntry {
	devices := []struct {
		name  string
		stats *DeviceStats
	}{
		{"CPU", t.Stats.CPU},
		{"GPU", t.Stats.GPU},
		{"MEMORY", t.Stats.Memory},
		{"DISK", t.Stats.Disk},
	}

	var out []meterEntry
	for _, dev := range devices {
		s := dev.stats
		if s == nil {
			continue
		}
		metrics := []struct {
			name   string
			layout *DeviceMeter
		}{
			{"PERCENTAGE", s.Percentage},
			{"FREQUENCY", s.Frequency},
			{"TEMPERATURE", s.Temperature},
			{"LOAD", s.Load},
			{"MEMORY", s.Memory},
			{"SWAP", s.Swap},
		}
		for _, m := range metrics {
			if m.layout == nil {
				continue
			}
			out = append(out, meterEntry{
				key:         dev.name + ":" + m.name,
				layout:      m.layout,
				devInterval: s.Interval,
			})
		}
	}
	return out
}

// MeterList returns the meter configs of t. The interval of each meter is
// the first one set among the meter, its device, the stats section and
// defaultInterval (DefaultInterval when not positive).
func MeterList(t *Theme, defaultInterval time.Duration) []MeterConfig {
	if defaultInterval <= 0 {
		defaultInterval = DefaultInterval
	}
	statsInterval := seconds(t.Stats.Interval, defaultInterval)

	seen := make(map[uint64]string)
	var out []MeterConfig
	for _, e := range t.meters() {
		id := meter.SourceID(e.key)
		if other, dup := seen[id]; dup {
			slog.Warn("meter id collision", "meter", e.key, "other", other, "id", id)
		}
		seen[id] = e.key

		interval := seconds(e.layout.Interval, seconds(e.devInterval, statsInterval))
		out = append(out, MeterConfig{
			ID:       id,
			Key:      e.key,
			Interval: interval,
			Layout:   *e.layout,
		})
	}
	return out
}

func seconds(v *float64, def time.Duration) time.Duration {
	if v == nil || *v <= 0 {
		return def
	}
	return time.Duration(*v * float64(time.Second))
}
