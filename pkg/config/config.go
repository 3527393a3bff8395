// Package config provides the TOML configuration of the turing-screen
// daemon.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Config is the daemon configuration.
type Config struct {
	Device    DeviceConfig    `toml:"device"`
	Display   DisplayConfig   `toml:"display"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Log       LogConfig       `toml:"log"`
	Preview   PreviewConfig   `toml:"preview"`
	Daemon    DaemonConfig    `toml:"daemon"`
}

// DeviceConfig selects and sets up the screen.
type DeviceConfig struct {
	// Port is a device path or "AUTO" to find the screen by serial number.
	Port         string   `toml:"port"`
	SerialNumber string   `toml:"serial_number"`
	BaudRate     int      `toml:"baud_rate"`
	Timeout      Duration `toml:"timeout"`
	// Brightness is a percentage, 0 to 100.
	Brightness int `toml:"brightness"`
}

type DisplayConfig struct {
	Theme    string   `toml:"theme"`
	ThemeDir string   `toml:"theme_dir"`
	FontDir  string   `toml:"font_dir"`
	Refresh  Duration `toml:"refresh"`
}

type SchedulerConfig struct {
	Quantum         Duration `toml:"quantum"`
	DefaultInterval Duration `toml:"default_interval"`
}

// LogConfig controls logging. With File set, records also go to a rotated
// log file.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// PreviewConfig renders frames in the terminal instead of the device.
type PreviewConfig struct {
	Enabled  bool   `toml:"enabled"`
	Protocol string `toml:"protocol"`
}

type DaemonConfig struct {
	PIDFile        string   `toml:"pid_file"`
	HealthFile     string   `toml:"health_file"`
	HealthInterval Duration `toml:"health_interval"`
}

// Duration wraps time.Duration with TOML string parsing ("100ms", "5s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler. A bare number is read
// as seconds, the unit used by themes.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		secs, nerr := strconv.ParseFloat(s, 64)
		if nerr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		parsed = time.Duration(secs * float64(time.Second))
	}
	if parsed < 0 {
		return fmt.Errorf("negative duration %q not allowed", s)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Validate reports every invalid setting of c.
func (c *Config) Validate() error {
	var errs []error
	if c.Device.Port == "" {
		errs = append(errs, errors.New("device.port is empty"))
	}
	if c.Device.BaudRate <= 0 {
		errs = append(errs, fmt.Errorf("device.baud_rate must be positive, got %d", c.Device.BaudRate))
	}
	if c.Device.Brightness < 0 || c.Device.Brightness > 100 {
		errs = append(errs, fmt.Errorf("device.brightness must be 0-100, got %d", c.Device.Brightness))
	}
	if c.Device.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("device.timeout must be positive"))
	}
	if c.Display.Theme == "" {
		errs = append(errs, errors.New("display.theme is empty"))
	}
	if c.Display.Refresh.Duration <= 0 {
		errs = append(errs, errors.New("display.refresh must be positive"))
	}
	if c.Scheduler.Quantum.Duration <= 0 {
		errs = append(errs, errors.New("scheduler.quantum must be positive"))
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Daemon.HealthFile != "" && c.Daemon.HealthInterval.Duration <= 0 {
		errs = append(errs, errors.New("daemon.health_interval must be positive"))
	}
	return errors.Join(errs...)
}

// BrightnessLevel converts the brightness percentage to the 0-255 device
// scale.
func (d DeviceConfig) BrightnessLevel() uint8 {
	pct := min(max(d.Brightness, 0), 100)
	return uint8(pct * 255 / 100)
}

// SlogLevel parses the configured level name.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
