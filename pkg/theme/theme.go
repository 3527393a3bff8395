// Package theme loads screen themes: YAML documents describing the display
// orientation, a static background and, per device and metric, the text
// and graph widgets that show live values.
package theme

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/turing-screen/pkg/screen"
)

// DefaultName is the theme compiled into the binary.
const DefaultName = "default"

//go:embed default.yaml
var defaultTheme []byte

// Theme is a parsed theme document. Keys are upper case, as in the themes
// shipped for Turing screens.
type Theme struct {
	Name string `yaml:"-"`
	// Dir is the theme directory; relative image paths resolve against it.
	Dir string `yaml:"-"`

	Display      Display      `yaml:"DISPLAY"`
	StaticImages StaticImages `yaml:"STATIC_IMAGES"`
	Stats        Stats        `yaml:"STATS"`
}

// Display holds the DISPLAY section. Keys for hardware this driver does not
// control, such as DISPLAY_RGB_LED, are ignored.
type Display struct {
	Orientation string `yaml:"DISPLAY_ORIENTATION"`
}

type StaticImages struct {
	Background *Background `yaml:"BACKGROUND"`
}

// Background is the static image drawn under every widget.
type Background struct {
	Path   string `yaml:"PATH"`
	X      int    `yaml:"X"`
	Y      int    `yaml:"Y"`
	Width  int    `yaml:"WIDTH"`
	Height int    `yaml:"HEIGHT"`
}

// Stats groups the devices. Intervals are in seconds.
type Stats struct {
	Interval *float64     `yaml:"INTERVAL"`
	CPU      *DeviceStats `yaml:"CPU"`
	GPU      *DeviceStats `yaml:"GPU"`
	Memory   *DeviceStats `yaml:"MEMORY"`
	Disk     *DeviceStats `yaml:"DISK"`
}

// DeviceStats holds the meters of one device. Not every device supports
// every meter.
type DeviceStats struct {
	Interval    *float64     `yaml:"INTERVAL"`
	Percentage  *DeviceMeter `yaml:"PERCENTAGE"`
	Frequency   *DeviceMeter `yaml:"FREQUENCY"`
	Temperature *DeviceMeter `yaml:"TEMPERATURE"`
	Load        *DeviceMeter `yaml:"LOAD"`
	Memory      *DeviceMeter `yaml:"MEMORY"`
	Swap        *DeviceMeter `yaml:"SWAP"`
}

// DeviceMeter is the layout of one metric.
type DeviceMeter struct {
	Interval *float64 `yaml:"INTERVAL"`
	Text     *Text    `yaml:"TEXT"`
	Graph    *Graph   `yaml:"GRAPH"`
}

// Text renders the value as a number.
type Text struct {
	Show            bool    `yaml:"SHOW"`
	ShowUnit        bool    `yaml:"SHOW_UNIT"`
	X               int     `yaml:"X"`
	Y               int     `yaml:"Y"`
	Font            string  `yaml:"FONT"`
	FontSize        float64 `yaml:"FONT_SIZE"`
	FontColor       string  `yaml:"FONT_COLOR"`
	BackgroundColor string  `yaml:"BACKGROUND_COLOR"`
	BackgroundImage string  `yaml:"BACKGROUND_IMAGE"`
	FieldSize       int     `yaml:"FIELD_SIZE"`
	Unit            string  `yaml:"UNIT"`
}

// Graph renders the value as a horizontal bar.
type Graph struct {
	Show            bool    `yaml:"SHOW"`
	X               int     `yaml:"X"`
	Y               int     `yaml:"Y"`
	Width           int     `yaml:"WIDTH"`
	Height          int     `yaml:"HEIGHT"`
	MinValue        float64 `yaml:"MIN_VALUE"`
	MaxValue        float64 `yaml:"MAX_VALUE"`
	BarColor        string  `yaml:"BAR_COLOR"`
	BarOutline      bool    `yaml:"BAR_OUTLINE"`
	BackgroundColor string  `yaml:"BACKGROUND_COLOR"`
	BackgroundImage string  `yaml:"BACKGROUND_IMAGE"`
}

// Load reads <dir>/<name>/theme.yaml. The default theme falls back to the
// embedded copy when it is not installed in dir.
func Load(dir, name string) (*Theme, error) {
	themeDir := filepath.Join(dir, name)
	f, err := os.Open(filepath.Join(themeDir, "theme.yaml"))
	if errors.Is(err, fs.ErrNotExist) && name == DefaultName {
		return Default()
	}
	if err != nil {
		return nil, fmt.Errorf("theme: open %s: %w", name, err)
	}
	defer f.Close()

	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("theme: %s: %w", name, err)
	}
	t.Name, t.Dir = name, themeDir
	return t, nil
}

// Default returns the embedded default theme.
func Default() (*Theme, error) {
	t, err := parseBytes(defaultTheme)
	if err != nil {
		return nil, fmt.Errorf("theme: embedded default: %w", err)
	}
	t.Name = DefaultName
	return t, nil
}

// Parse decodes and validates a theme document.
func Parse(r io.Reader) (*Theme, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return parseBytes(data)
}

func parseBytes(data []byte) (*Theme, error) {
	var t Theme
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Orientation returns the display orientation; an empty value is portrait.
func (t *Theme) Orientation() (screen.Orientation, error) {
	return screen.ParseOrientation(t.Display.Orientation)
}

// Path resolves p against the theme directory.
func (t *Theme) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || t.Dir == "" {
		return p
	}
	return filepath.Join(t.Dir, p)
}

// Validate checks the orientation and every colour of the theme.
func (t *Theme) Validate() error {
	if _, err := t.Orientation(); err != nil {
		return err
	}
	for _, mc := range t.meters() {
		if err := mc.layout.validate(); err != nil {
			return fmt.Errorf("%s: %w", mc.key, err)
		}
	}
	return nil
}

func (m *DeviceMeter) validate() error {
	if m.Interval != nil && *m.Interval <= 0 {
		return fmt.Errorf("INTERVAL must be positive, got %v", *m.Interval)
	}
	if txt := m.Text; txt != nil {
		if txt.FontColor != "" {
			if _, err := ParseColor(txt.FontColor); err != nil {
				return fmt.Errorf("TEXT.FONT_COLOR: %w", err)
			}
		}
		if txt.BackgroundColor != "" {
			if _, err := ParseColor(txt.BackgroundColor); err != nil {
				return fmt.Errorf("TEXT.BACKGROUND_COLOR: %w", err)
			}
		}
		if txt.FieldSize < 0 {
			return fmt.Errorf("TEXT.FIELD_SIZE must not be negative")
		}
	}
	if g := m.Graph; g != nil {
		if g.BarColor != "" {
			if _, err := ParseColor(g.BarColor); err != nil {
				return fmt.Errorf("GRAPH.BAR_COLOR: %w", err)
			}
		}
		if g.BackgroundColor != "" {
			if _, err := ParseColor(g.BackgroundColor); err != nil {
				return fmt.Errorf("GRAPH.BACKGROUND_COLOR: %w", err)
			}
		}
		if g.MaxValue != 0 && g.MaxValue <= g.MinValue {
			return fmt.Errorf("GRAPH.MAX_VALUE %v must exceed MIN_VALUE %v", g.MaxValue, g.MinValue)
		}
	}
	return nil
}
