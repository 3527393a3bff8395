package render

import (
	"fmt"
	"math"

	"gitlab.com/tinyland/lab/turing-screen/pkg/framebuffer"
	"gitlab.com/tinyland/lab/turing-screen/pkg/geometry"
	"gitlab.com/tinyland/lab/turing-screen/pkg/theme"
)

const (
	defaultFieldSize = 2
	defaultFontSize  = 20
	defaultMaxValue  = 100
)

// widget is the resolved layout of one meter.
type widget struct {
	cfg theme.MeterConfig

	font      *framebuffer.Font
	fontSize  float64
	textColor framebuffer.Color
	textBG    *framebuffer.Color
	lastText  geometry.Rect

	barColor framebuffer.Color
	graphBG  *framebuffer.Color
}

func (r *Renderer) newWidget(cfg theme.MeterConfig, fonts map[string]*framebuffer.Font) (*widget, error) {
	w := &widget{cfg: cfg}

	if t := cfg.Layout.Text; t != nil && t.Show {
		path := r.resolveFont(t.Font)
		f, ok := fonts[path]
		if !ok {
			r.logger.Info("load font", "path", path)
			var err error
			if f, err = r.loadFont(path); err != nil {
				return nil, err
			}
			fonts[path] = f
		}
		w.font = f
		w.fontSize = t.FontSize
		if w.fontSize <= 0 {
			w.fontSize = defaultFontSize
		}
		var err error
		if w.textColor, err = theme.ColorOr(t.FontColor, framebuffer.White); err != nil {
			return nil, fmt.Errorf("FONT_COLOR: %w", err)
		}
		if w.textBG, err = optionalColor(t.BackgroundColor); err != nil {
			return nil, fmt.Errorf("TEXT.BACKGROUND_COLOR: %w", err)
		}
		if err := r.stampImage(t.BackgroundImage, geometry.NewCoord(t.X, t.Y)); err != nil {
			return nil, err
		}
	}

	if g := cfg.Layout.Graph; g != nil && g.Show {
		var err error
		if w.barColor, err = theme.ColorOr(g.BarColor, framebuffer.White); err != nil {
			return nil, fmt.Errorf("BAR_COLOR: %w", err)
		}
		if w.graphBG, err = optionalColor(g.BackgroundColor); err != nil {
			return nil, fmt.Errorf("GRAPH.BACKGROUND_COLOR: %w", err)
		}
		if err := r.stampImage(g.BackgroundImage, geometry.NewCoord(g.X, g.Y)); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// stampImage draws a widget background image into the static background.
func (r *Renderer) stampImage(path string, pos geometry.Coord) error {
	if path == "" {
		return nil
	}
	img, err := framebuffer.Load(r.resolveImage(path))
	if err != nil {
		return err
	}
	r.background.BlendImage(img, img.Full(), pos)
	return nil
}

// optionalColor parses s; an empty s means no colour.
func optionalColor(s string) (*framebuffer.Color, error) {
	if s == "" {
		return nil, nil
	}
	c, err := theme.ParseColor(s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Renderer) drawWidget(w *widget, v float32) error {
	if w.font != nil {
		if err := r.drawText(w, v); err != nil {
			return err
		}
	}
	if w.cfg.Layout.Graph != nil && w.cfg.Layout.Graph.Show {
		if err := r.drawGraph(w, v); err != nil {
			return err
		}
	}
	return nil
}

// drawText replaces the previous text of w with v and sends the union of
// the old and new text areas.
func (r *Renderer) drawText(w *widget, v float32) error {
	t := w.cfg.Layout.Text
	msg := FormatValue(v, t)
	pos := geometry.NewCoord(t.X, t.Y)

	old := w.lastText
	r.restore(old)

	drawn, err := w.font.Draw(r.frame, w.fontSize, w.textColor, pos, msg)
	if err != nil {
		return err
	}
	if w.textBG != nil && !drawn.Empty() {
		// The text area is only known once drawn: paint the background
		// under it and draw again.
		r.restore(drawn)
		r.frame.FillRect(drawn, *w.textBG)
		if drawn, err = w.font.Draw(r.frame, w.fontSize, w.textColor, pos, msg); err != nil {
			return err
		}
	}
	w.lastText = drawn

	return r.push(old.Union(drawn))
}

// drawGraph redraws the bar of w for v and sends the graph area.
func (r *Renderer) drawGraph(w *widget, v float32) error {
	g := w.cfg.Layout.Graph
	area := geometry.NewRect(g.X, g.Y, g.Width, g.Height)

	r.restore(area.Clip(r.frame.Width, r.frame.Height))
	if w.graphBG != nil {
		r.frame.FillRect(area, *w.graphBG)
	}

	ratio := GraphRatio(v, g.MinValue, g.MaxValue)
	bar := int(math.Round(ratio * float64(g.Width)))
	r.frame.FillRect(geometry.NewRect(g.X, g.Y, bar, g.Height), w.barColor)
	if g.BarOutline {
		r.frame.StrokeRect(area, w.barColor)
	}

	return r.push(area)
}

// FormatValue renders v right-aligned without decimals in the field size
// of t (2 when unset), followed by the unit when SHOW_UNIT is set.
func FormatValue(v float32, t *theme.Text) string {
	size := t.FieldSize
	if size <= 0 {
		size = defaultFieldSize
	}
	s := fmt.Sprintf("%*.0f", size, v)
	if t.ShowUnit {
		s += t.Unit
	}
	return s
}

// GraphRatio maps v into [lo, hi] as a fraction clamped to [0, 1]. An unset
// maximum (zero) is 100 when lo is below it; an empty range gives 0.
func GraphRatio(v float32, lo, hi float64) float64 {
	if hi == 0 && lo < defaultMaxValue {
		hi = defaultMaxValue
	}
	x := float64(v)
	if hi <= lo || math.IsNaN(x) {
		return 0
	}
	return math.Min(math.Max((x-lo)/(hi-lo), 0), 1)
}
