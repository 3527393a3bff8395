package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "turing-screen"

// Load reads configuration from the standard config path.
// Search order:
//  1. $XDG_CONFIG_HOME/turing-screen/config.toml
//  2. ~/.config/turing-screen/config.toml
//
// If no file exists, returns DefaultConfig() with environment overrides.
func Load() (*Config, error) {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return LoadFromFile(p)
		}
	}
	cfg := DefaultConfig()
	applyEnvOverrides(cfg)
	resolveStatePaths(cfg)
	return cfg, nil
}

// LoadFromFile reads configuration from a specific file path. A missing
// file yields the defaults.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			applyEnvOverrides(cfg)
			resolveStatePaths(cfg)
			return cfg, nil
		}
		return nil, err
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader reads configuration from an io.Reader. Keys absent from
// the document keep their defaults; unknown keys are rejected. Relative
// pid, health and log file paths are taken under StateDir.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown configuration key %q", undecoded[0].String())
	}
	applyEnvOverrides(cfg)
	resolveStatePaths(cfg)
	return cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Port:         "AUTO",
			SerialNumber: "USB35INCHIPSV2",
			BaudRate:     115200,
			Timeout:      Duration{time.Second},
			Brightness:   25,
		},
		Display: DisplayConfig{
			Theme:    "default",
			ThemeDir: filepath.Join("res", "themes"),
			FontDir:  filepath.Join("res", "fonts"),
			Refresh:  Duration{5 * time.Second},
		},
		Scheduler: SchedulerConfig{
			Quantum:         Duration{100 * time.Millisecond},
			DefaultInterval: Duration{2 * time.Second},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Preview: PreviewConfig{
			Protocol: "auto",
		},
		Daemon: DaemonConfig{
			HealthInterval: Duration{30 * time.Second},
		},
	}
}

// applyEnvOverrides checks environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TURING_PORT"); v != "" {
		cfg.Device.Port = v
	}
	if v := os.Getenv("TURING_THEME"); v != "" {
		cfg.Display.Theme = v
	}
	if v := os.Getenv("TURING_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// resolveStatePaths places relative state file paths under StateDir. Empty
// paths stay empty: the file is disabled.
func resolveStatePaths(cfg *Config) {
	for _, p := range []*string{&cfg.Daemon.PIDFile, &cfg.Daemon.HealthFile, &cfg.Log.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(StateDir(), *p)
		}
	}
}

// configSearchPaths returns the ordered list of config file paths to try.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var paths []string

	xdg := xdgConfigHome(home)
	paths = append(paths, filepath.Join(xdg, appName, "config.toml"))

	// If XDG_CONFIG_HOME was explicitly set, also try the fallback default.
	defaultXDG := filepath.Join(home, ".config")
	if xdg != defaultXDG {
		paths = append(paths, filepath.Join(defaultXDG, appName, "config.toml"))
	}
	return paths
}

// xdgConfigHome returns XDG_CONFIG_HOME or ~/.config as fallback.
func xdgConfigHome(home string) string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	return filepath.Join(home, ".config")
}

// StateDir returns $XDG_STATE_HOME/turing-screen, or
// ~/.local/state/turing-screen when unset. Relative state file paths in the
// configuration are resolved against it.
func StateDir() string {
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		return filepath.Join(v, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "state", appName)
}
