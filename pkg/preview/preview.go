// Package preview draws screen frames in the terminal, so themes can be
// developed without the device attached.
package preview

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/blacktop/go-termimg"
	"github.com/charmbracelet/x/term"
	"github.com/disintegration/imaging"
	"github.com/mattn/go-isatty"
	"github.com/zeebo/xxh3"
)

// Fallback cell size in pixels when the terminal does not report one.
const (
	defaultCellW = 8
	defaultCellH = 16
)

var (
	// ErrNotTerminal is returned by New when the output is not a TTY.
	ErrNotTerminal = errors.New("preview output is not a terminal")

	// ErrDisabled is returned by New when the protocol is "none".
	ErrDisabled = errors.New("preview disabled")
)

// Terminal renders frames to a terminal, redrawing from the top-left
// corner each time. Identical consecutive frames are skipped.
type Terminal struct {
	out      io.Writer
	protocol Protocol
	cols     int
	rows     int
	cellW    int
	cellH    int

	mu   sync.Mutex
	last uint64
}

// New returns a preview writing to f with the named protocol ("auto",
// "kitty", "iterm2", "sixel", "halfblocks").
func New(f *os.File, protocol string) (*Terminal, error) {
	fd := f.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return nil, ErrNotTerminal
	}

	p := SelectProtocol(protocol)
	if p == ProtocolNone {
		return nil, ErrDisabled
	}

	cols, rows, err := term.GetSize(fd)
	if err != nil || cols <= 0 || rows <= 0 {
		cols, rows = 80, 24
	}
	cw, ch, err := cellSize(fd)
	if err != nil {
		cw, ch = defaultCellW, defaultCellH
	}

	return &Terminal{
		out:      f,
		protocol: p,
		cols:     cols,
		rows:     max(rows-1, 1),
		cellW:    cw,
		cellH:    ch,
	}, nil
}

// Protocol returns the protocol in use.
func (t *Terminal) Protocol() Protocol { return t.protocol }

// Show draws img unless it is identical to the previous frame.
func (t *Terminal) Show(img *image.NRGBA) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	sum := xxh3.Hash(img.Pix)
	if sum == t.last {
		return nil
	}

	cols, rows := fitCells(img.Bounds().Dx(), img.Bounds().Dy(), t.cellW, t.cellH, t.cols, t.rows)
	s, err := Render(img, t.protocol, cols, rows)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(t.out, "\x1b[H"+s); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	t.last = sum
	return nil
}

// Render encodes img for protocol p in a cols x rows cell area.
func Render(img image.Image, p Protocol, cols, rows int) (string, error) {
	switch p {
	case ProtocolKitty:
		return renderTermimg(img, termimg.Kitty, cols, rows)
	case ProtocolITerm2:
		return renderTermimg(img, termimg.ITerm2, cols, rows)
	case ProtocolSixel:
		return renderTermimg(img, termimg.Sixel, cols, rows)
	case ProtocolNone:
		return "", ErrDisabled
	default:
		return halfblocks(imaging.Fit(img, max(cols, 1), max(2*rows, 1), imaging.Box)), nil
	}
}

func renderTermimg(img image.Image, proto termimg.Protocol, cols, rows int) (string, error) {
	ti := termimg.New(img)
	if ti == nil {
		return "", fmt.Errorf("go-termimg: failed to create image wrapper")
	}
	s, err := ti.Protocol(proto).Size(cols, rows).Scale(termimg.ScaleFit).Render()
	if err != nil {
		return "", fmt.Errorf("render %v: %w", proto, err)
	}
	return s, nil
}

// halfblocks draws two pixel rows per text row with the upper half block:
// the top pixel is the foreground colour and the bottom one the background.
func halfblocks(img *image.NRGBA) string {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return ""
	}

	var sb strings.Builder
	sb.Grow(w * (h/2 + 1) * 40)

	for y := 0; y < h; y += 2 {
		if y > 0 {
			sb.WriteString("\x1b[0m\n")
		}
		for x := 0; x < w; x++ {
			top := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			if y+1 >= h {
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[49m▀", top.R, top.G, top.B)
				continue
			}
			bot := img.NRGBAAt(b.Min.X+x, b.Min.Y+y+1)
			fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}
	}
	sb.WriteString("\x1b[0m")
	return sb.String()
}

// fitCells returns the cell grid showing an imgW x imgH image at native
// size, or scaled down with its aspect ratio to maxCols x maxRows.
func fitCells(imgW, imgH, cellW, cellH, maxCols, maxRows int) (cols, rows int) {
	if imgW <= 0 || imgH <= 0 {
		return 1, 1
	}
	if cellW <= 0 {
		cellW = defaultCellW
	}
	if cellH <= 0 {
		cellH = defaultCellH
	}
	maxCols, maxRows = max(maxCols, 1), max(maxRows, 1)

	cols = int(math.Ceil(float64(imgW) / float64(cellW)))
	rows = int(math.Ceil(float64(imgH) / float64(cellH)))
	if cols <= maxCols && rows <= maxRows {
		return cols, rows
	}

	aspect := float64(imgW) / float64(imgH)
	cols = maxCols
	rows = max(int(math.Round(float64(cols*cellW)/aspect/float64(cellH))), 1)
	if rows > maxRows {
		rows = maxRows
		cols = max(int(math.Round(float64(rows*cellH)*aspect/float64(cellW))), 1)
	}
	return min(cols, maxCols), min(rows, maxRows)
}
