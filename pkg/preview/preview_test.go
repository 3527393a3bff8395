package preview

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// --- halfblocks ---

func TestHalfblocks(t *testing.T) {
	img := solid(2, 3, color.NRGBA{10, 20, 30, 255})
	img.SetNRGBA(0, 1, color.NRGBA{40, 50, 60, 255})

	got := halfblocks(img)

	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[0], "\x1b[38;2;10;20;30m\x1b[48;2;40;50;60m▀") {
		t.Errorf("first cell not encoded as fg/bg pair: %q", lines[0])
	}
	if !strings.Contains(lines[1], "\x1b[38;2;10;20;30m\x1b[49m▀") {
		t.Errorf("odd last row should use the default background: %q", lines[1])
	}
	if !strings.HasSuffix(got, "\x1b[0m") {
		t.Error("output should end with a reset")
	}
	if n := strings.Count(got, "▀"); n != 4 {
		t.Errorf("got %d half blocks, want 4", n)
	}
}

func TestHalfblocksEmpty(t *testing.T) {
	if got := halfblocks(image.NewNRGBA(image.Rect(0, 0, 0, 0))); got != "" {
		t.Errorf("halfblocks of an empty image = %q", got)
	}
}

func TestRenderHalfblocksFits(t *testing.T) {
	img := solid(320, 480, color.NRGBA{255, 0, 0, 255})
	got, err := Render(img, ProtocolHalfblocks, 40, 30)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) > 30 {
		t.Errorf("rendered %d rows, budget is 30", len(lines))
	}
	if n := strings.Count(lines[0], "▀"); n > 40 {
		t.Errorf("rendered %d columns, budget is 40", n)
	}
}

func TestRenderNone(t *testing.T) {
	if _, err := Render(solid(1, 1, color.NRGBA{}), ProtocolNone, 1, 1); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Render(none) error = %v, want ErrDisabled", err)
	}
}

// --- sizing ---

func TestFitCells(t *testing.T) {
	tests := []struct {
		name               string
		imgW, imgH         int
		cellW, cellH       int
		maxCols, maxRows   int
		wantCols, wantRows int
	}{
		{"native fits", 320, 480, 8, 16, 80, 40, 40, 30},
		{"height bound", 320, 480, 8, 16, 80, 24, 32, 24},
		{"width bound", 480, 320, 8, 16, 30, 40, 30, 10},
		{"defaults for zero cells", 16, 32, 0, 0, 10, 10, 2, 2},
		{"empty image", 0, 0, 8, 16, 10, 10, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, rows := fitCells(tt.imgW, tt.imgH, tt.cellW, tt.cellH, tt.maxCols, tt.maxRows)
			if cols != tt.wantCols || rows != tt.wantRows {
				t.Errorf("fitCells = %dx%d, want %dx%d", cols, rows, tt.wantCols, tt.wantRows)
			}
		})
	}
}

// --- protocol ---

func TestSelectProtocol(t *testing.T) {
	tests := map[string]Protocol{
		"kitty":      ProtocolKitty,
		"iterm2":     ProtocolITerm2,
		"SIXEL":      ProtocolSixel,
		"halfblocks": ProtocolHalfblocks,
		"none":       ProtocolNone,
	}
	for name, want := range tests {
		if got := SelectProtocol(name); got != want {
			t.Errorf("SelectProtocol(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestDetectProtocol(t *testing.T) {
	for _, k := range []string{"SSH_TTY", "SSH_CONNECTION", "SSH_CLIENT", "KITTY_WINDOW_ID", "TERM_PROGRAM"} {
		t.Setenv(k, "")
	}

	t.Setenv("TERM", "xterm-kitty")
	if got := DetectProtocol(); got != ProtocolKitty {
		t.Errorf("kitty TERM: %v", got)
	}

	t.Setenv("TERM", "xterm-256color")
	t.Setenv("TERM_PROGRAM", "iTerm.app")
	if got := DetectProtocol(); got != ProtocolITerm2 {
		t.Errorf("iTerm: %v", got)
	}

	t.Setenv("SSH_TTY", "/dev/pts/3")
	if got := DetectProtocol(); got != ProtocolHalfblocks {
		t.Errorf("over ssh: %v, want halfblocks", got)
	}
}

// --- terminal ---

func TestNewRequiresTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := New(f, "halfblocks"); !errors.Is(err, ErrNotTerminal) {
		t.Fatalf("New on a regular file = %v, want ErrNotTerminal", err)
	}
}

func TestShowSkipsIdenticalFrames(t *testing.T) {
	var buf bytes.Buffer
	tm := &Terminal{out: &buf, protocol: ProtocolHalfblocks, cols: 10, rows: 10, cellW: 8, cellH: 16}
	img := solid(4, 4, color.NRGBA{1, 2, 3, 255})

	if err := tm.Show(img); err != nil {
		t.Fatal(err)
	}
	first := buf.Len()
	if first == 0 || !strings.HasPrefix(buf.String(), "\x1b[H") {
		t.Fatalf("first frame not drawn from home: %q", buf.String())
	}

	if err := tm.Show(img); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != first {
		t.Error("identical frame was redrawn")
	}

	img.SetNRGBA(0, 0, color.NRGBA{9, 9, 9, 255})
	if err := tm.Show(img); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == first {
		t.Error("changed frame was not drawn")
	}
}
