// Package render turns measurement snapshots into pixels. For every
// snapshot it redraws the widgets of each meter on a frame composed over
// the theme background and sends only the changed areas to the screen.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"gitlab.com/tinyland/lab/turing-screen/pkg/framebuffer"
	"gitlab.com/tinyland/lab/turing-screen/pkg/geometry"
	"gitlab.com/tinyland/lab/turing-screen/pkg/meter"
	"gitlab.com/tinyland/lab/turing-screen/pkg/theme"
)

// ErrChannelClosed is returned by Start when the scheduler side of the
// measurement channel is gone.
var ErrChannelClosed = errors.New("measurement channel closed")

// DefaultFont is used by text widgets that name no font.
const DefaultFont = "goregular"

// Screen is the device frames are sent to.
type Screen interface {
	Size() (width, height int)
	DisplayImage(img *framebuffer.Image, crop geometry.Rect, pos geometry.Coord) error
}

// FontLoader loads the font at a resolved path.
type FontLoader func(path string) (*framebuffer.Font, error)

// Renderer owns the frame and the screen. It is driven by a single
// goroutine through Start.
type Renderer struct {
	in      <-chan meter.Measurements
	scr     Screen
	widgets []*widget

	background *framebuffer.Image
	frame      *framebuffer.Image

	logger   *slog.Logger
	fontDir  string
	themeDir string
	loadFont FontLoader
	hook     func(*framebuffer.Image)
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBackground sets the static background, drawn at the top-left corner
// of a black frame.
func WithBackground(img *framebuffer.Image) Option {
	return func(r *Renderer) { r.background = img }
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithFontDir sets the directory relative font names resolve against.
func WithFontDir(dir string) Option {
	return func(r *Renderer) { r.fontDir = dir }
}

// WithThemeDir sets the directory relative widget background images
// resolve against.
func WithThemeDir(dir string) Option {
	return func(r *Renderer) { r.themeDir = dir }
}

// WithFontLoader replaces framebuffer.LoadFont.
func WithFontLoader(fn FontLoader) Option {
	return func(r *Renderer) { r.loadFont = fn }
}

// WithFrameHook registers fn to be called with the frame after every
// render cycle. fn must not keep the image.
func WithFrameHook(fn func(*framebuffer.Image)) Option {
	return func(r *Renderer) { r.hook = fn }
}

// New builds a renderer for configs on scr. The screen orientation must be
// final: the frame takes the current screen size. Every distinct font is
// loaded once; a font that fails to load is returned as an error.
func New(in <-chan meter.Measurements, configs []theme.MeterConfig, scr Screen, opts ...Option) (*Renderer, error) {
	r := &Renderer{
		in:       in,
		scr:      scr,
		logger:   slog.Default(),
		loadFont: framebuffer.LoadFont,
	}
	for _, opt := range opts {
		opt(r)
	}

	w, h := scr.Size()
	bg := framebuffer.New(w, h)
	if r.background != nil {
		bg.CopyImage(r.background, r.background.Full(), geometry.Coord{})
	}
	r.background = bg

	fonts := make(map[string]*framebuffer.Font)
	for _, cfg := range configs {
		wg, err := r.newWidget(cfg, fonts)
		if err != nil {
			return nil, fmt.Errorf("meter %s: %w", cfg.Key, err)
		}
		r.widgets = append(r.widgets, wg)
	}

	r.frame = r.background.Clone()
	return r, nil
}

// Frame returns the current frame. It must only be read from the goroutine
// running Start, or when Start is not running.
func (r *Renderer) Frame() *framebuffer.Image {
	return r.frame
}

// Prepare resets the frame to the background and sends it whole.
func (r *Renderer) Prepare() error {
	r.frame = r.background.Clone()
	for _, w := range r.widgets {
		w.lastText = geometry.Rect{}
	}
	r.logger.Debug("send background")
	if err := r.push(r.frame.Full()); err != nil {
		return fmt.Errorf("send background: %w", err)
	}
	r.notify()
	return nil
}

// Start renders every snapshot received until ctx is cancelled or the
// channel is closed. A failed render cycle is logged and the loop goes on
// with the next snapshot.
func (r *Renderer) Start(ctx context.Context) error {
	r.logger.Info("start renderer", "widgets", len(r.widgets))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("renderer stopped")
			return ctx.Err()
		case m, ok := <-r.in:
			if !ok {
				r.logger.Error("renderer receive error", "error", ErrChannelClosed)
				return ErrChannelClosed
			}
			if err := r.Render(m); err != nil {
				r.logger.Error("render failed", "error", err)
			}
		}
	}
}

// Render draws the widgets of every meter in m in config order and sends
// the changed areas. The first error aborts the cycle.
func (r *Renderer) Render(m meter.Measurements) error {
	r.logger.Debug("render", "measurements", m)
	defer r.notify()

	for _, w := range r.widgets {
		v, ok := m[w.cfg.ID]
		if !ok {
			r.logger.Warn("no measurement for meter", "meter", w.cfg.Key)
			continue
		}
		if err := r.drawWidget(w, v); err != nil {
			return fmt.Errorf("meter %s: %w", w.cfg.Key, err)
		}
	}
	return nil
}

func (r *Renderer) notify() {
	if r.hook != nil {
		r.hook(r.frame)
	}
}

// restore copies rect of the background back into the frame.
func (r *Renderer) restore(rect geometry.Rect) {
	if rect.Empty() {
		return
	}
	r.frame.CopyImage(r.background, rect, rect.Origin())
}

// push sends rect of the frame to the screen at the same position.
func (r *Renderer) push(rect geometry.Rect) error {
	rect = rect.Clip(r.frame.Width, r.frame.Height)
	if rect.Empty() {
		return nil
	}
	return r.scr.DisplayImage(r.frame, rect, rect.Origin())
}

// resolveFont maps a theme font name to the path handed to the loader.
func (r *Renderer) resolveFont(name string) string {
	switch {
	case name == "":
		return DefaultFont
	case framebuffer.IsBuiltinFont(name), filepath.IsAbs(name), r.fontDir == "":
		return name
	default:
		return filepath.Join(r.fontDir, name)
	}
}

func (r *Renderer) resolveImage(path string) string {
	if filepath.IsAbs(path) || r.themeDir == "" {
		return path
	}
	return filepath.Join(r.themeDir, path)
}
