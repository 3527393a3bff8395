package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/turing-screen/pkg/framebuffer"
	"gitlab.com/tinyland/lab/turing-screen/pkg/meter"
	"gitlab.com/tinyland/lab/turing-screen/pkg/screen"
)

const sampleTheme = `
DISPLAY:
  DISPLAY_ORIENTATION: landscape
  DISPLAY_RGB_LED: "255, 0, 0"
STATIC_IMAGES:
  BACKGROUND:
    PATH: background.png
    X: 0
    Y: 0
    WIDTH: 480
    HEIGHT: 320
STATS:
  INTERVAL: 5
  CPU:
    INTERVAL: 3
    PERCENTAGE:
      INTERVAL: 1
      TEXT:
        SHOW: true
        X: 10
        Y: 20
        FONT: roboto/Roboto-Bold.ttf
        FONT_SIZE: 24
        FONT_COLOR: "255, 255, 255"
    TEMPERATURE:
      GRAPH:
        SHOW: true
        X: 10
        Y: 60
        WIDTH: 100
        HEIGHT: 10
        MIN_VALUE: 20
        MAX_VALUE: 90
        BAR_COLOR: "#ff8000"
  GPU:
    MEMORY:
      TEXT:
        SHOW: true
  DISK:
    PERCENTAGE:
      TEXT:
        SHOW: false
`

func parseSample(t *testing.T) *Theme {
	t.Helper()
	th, err := Parse(strings.NewReader(sampleTheme))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return th
}

// --- parsing ---

func TestParse(t *testing.T) {
	th := parseSample(t)

	o, err := th.Orientation()
	if err != nil || o != screen.Landscape {
		t.Errorf("Orientation = (%v, %v), want landscape", o, err)
	}
	bg := th.StaticImages.Background
	if bg == nil || bg.Path != "background.png" || bg.Width != 480 {
		t.Errorf("Background = %+v", bg)
	}
	txt := th.Stats.CPU.Percentage.Text
	if txt == nil || txt.X != 10 || txt.FontSize != 24 || txt.Font != "roboto/Roboto-Bold.ttf" {
		t.Errorf("CPU PERCENTAGE TEXT = %+v", txt)
	}
	g := th.Stats.CPU.Temperature.Graph
	if g == nil || g.MinValue != 20 || g.MaxValue != 90 {
		t.Errorf("CPU TEMPERATURE GRAPH = %+v", g)
	}
}

func TestParseIgnoresUnusedDisplayKeys(t *testing.T) {
	doc := "DISPLAY:\n  DISPLAY_ORIENTATION: portrait\n  DISPLAY_RGB_LED: \"0, 255, 0\"\n"
	th, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if o, err := th.Orientation(); err != nil || o != screen.Portrait {
		t.Errorf("Orientation = (%v, %v), want portrait", o, err)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := map[string]string{
		"yaml":        "STATS: [",
		"orientation": "DISPLAY:\n  DISPLAY_ORIENTATION: diagonal\n",
		"color":       "STATS:\n  CPU:\n    PERCENTAGE:\n      TEXT:\n        FONT_COLOR: purple\n",
		"graph range": "STATS:\n  CPU:\n    PERCENTAGE:\n      GRAPH:\n        MIN_VALUE: 10\n        MAX_VALUE: 5\n",
		"interval":    "STATS:\n  CPU:\n    PERCENTAGE:\n      INTERVAL: -1\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(doc)); err == nil {
				t.Fatal("Parse should fail")
			}
		})
	}
}

func TestDefaultTheme(t *testing.T) {
	th, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	configs := MeterList(th, 0)
	if len(configs) == 0 {
		t.Fatal("default theme has no meters")
	}
	for _, c := range configs {
		if _, err := meter.Create(c.Key); err != nil {
			t.Errorf("default theme uses unsupported meter %s", c.Key)
		}
		if txt := c.Layout.Text; txt != nil && !framebuffer.IsBuiltinFont(txt.Font) {
			t.Errorf("%s: font %q is not built in", c.Key, txt.Font)
		}
	}
}

// --- loading ---

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "mine"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "mine", "theme.yaml"), []byte(sampleTheme), 0o644); err != nil {
		t.Fatal(err)
	}

	th, err := Load(dir, "mine")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if th.Name != "mine" {
		t.Errorf("Name = %q, want mine", th.Name)
	}
	want := filepath.Join(dir, "mine", "background.png")
	if got := th.Path(th.StaticImages.Background.Path); got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
	if got := th.Path("/abs/bg.png"); got != "/abs/bg.png" {
		t.Errorf("absolute Path = %q", got)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(t.TempDir(), "nope"); err == nil {
		t.Fatal("Load of a missing theme should fail")
	}
}

func TestLoadDefaultFallsBackToEmbedded(t *testing.T) {
	th, err := Load(t.TempDir(), DefaultName)
	if err != nil {
		t.Fatalf("Load default: %v", err)
	}
	if th.Name != DefaultName || th.Dir != "" {
		t.Errorf("theme = %q in %q, want embedded default", th.Name, th.Dir)
	}
}

// --- meter list ---

func TestMeterListIntervals(t *testing.T) {
	th := parseSample(t)
	configs := MeterList(th, 0)

	want := []struct {
		key      string
		interval time.Duration
	}{
		{"CPU:PERCENTAGE", 1 * time.Second},  // meter
		{"CPU:TEMPERATURE", 3 * time.Second}, // device
		{"GPU:MEMORY", 5 * time.Second},      // stats
		{"DISK:PERCENTAGE", 5 * time.Second}, // stats
	}
	if len(configs) != len(want) {
		t.Fatalf("got %d configs, want %d", len(configs), len(want))
	}
	for i, w := range want {
		c := configs[i]
		if c.Key != w.key {
			t.Errorf("config %d key = %s, want %s", i, c.Key, w.key)
		}
		if c.Interval != w.interval {
			t.Errorf("%s interval = %v, want %v", c.Key, c.Interval, w.interval)
		}
		if c.ID != meter.SourceID(w.key) {
			t.Errorf("%s id = %x, want %x", c.Key, c.ID, meter.SourceID(w.key))
		}
	}
}

func TestMeterListDefaultInterval(t *testing.T) {
	th, err := Parse(strings.NewReader("STATS:\n  CPU:\n    LOAD:\n      TEXT:\n        SHOW: true\n"))
	if err != nil {
		t.Fatal(err)
	}
	if got := MeterList(th, 0)[0].Interval; got != DefaultInterval {
		t.Errorf("interval = %v, want %v", got, DefaultInterval)
	}
	if got := MeterList(th, 7*time.Second)[0].Interval; got != 7*time.Second {
		t.Errorf("interval = %v, want 7s", got)
	}
}

func TestMeterListEmpty(t *testing.T) {
	th, err := Parse(strings.NewReader("DISPLAY:\n  DISPLAY_ORIENTATION: portrait\n"))
	if err != nil {
		t.Fatal(err)
	}
	if configs := MeterList(th, 0); len(configs) != 0 {
		t.Errorf("got %d configs from a theme without stats", len(configs))
	}
}

// --- colors ---

func TestParseColor(t *testing.T) {
	tests := []struct {
		in   string
		want framebuffer.Color
	}{
		{"255, 128, 0", framebuffer.Color{R: 255, G: 128, B: 0, A: 255}},
		{"1,2,3,4", framebuffer.Color{R: 1, G: 2, B: 3, A: 4}},
		{"#102030", framebuffer.Color{R: 0x10, G: 0x20, B: 0x30, A: 255}},
		{"#10203080", framebuffer.Color{R: 0x10, G: 0x20, B: 0x30, A: 0x80}},
		{" 0, 0, 0 ", framebuffer.Color{A: 255}},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if err != nil {
			t.Errorf("ParseColor(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseColorInvalid(t *testing.T) {
	for _, in := range []string{"", "red", "1, 2", "1, 2, 3, 4, 5", "256, 0, 0", "#12345", "#gg0000"} {
		if _, err := ParseColor(in); err == nil {
			t.Errorf("ParseColor(%q) should fail", in)
		}
	}
}

func TestColorOr(t *testing.T) {
	if got, err := ColorOr("", framebuffer.White); err != nil || got != framebuffer.White {
		t.Errorf("ColorOr empty = (%v, %v)", got, err)
	}
	if _, err := ColorOr("bogus", framebuffer.White); err == nil {
		t.Error("ColorOr invalid should fail")
	}
	if got, err := ColorOr("0, 0, 0", framebuffer.White); err != nil || got != framebuffer.Black {
		t.Errorf("ColorOr valid = (%v, %v)", got, err)
	}
}
