package framebuffer

import (
	"fmt"
	"image"
	"os"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"gitlab.com/tinyland/lab/turing-screen/pkg/geometry"
)

// builtinFonts are the Go fonts shipped with x/image, addressable by name so
// that themes work without font files on disk.
var builtinFonts = map[string][]byte{
	"goregular": goregular.TTF,
	"gobold":    gobold.TTF,
	"gomono":    gomono.TTF,
}

// FontLoadError reports font data that could not be read or parsed.
type FontLoadError struct {
	Path string
	Err  error
}

func (e *FontLoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cannot load font data: %v", e.Err)
	}
	return fmt.Sprintf("cannot load font %s: %v", e.Path, e.Err)
}

func (e *FontLoadError) Unwrap() error { return e.Err }

// Font is a parsed TrueType/OpenType font. Faces are created lazily per
// pixel size and cached. A Font must not be used for concurrent draws.
type Font struct {
	Name  string
	sfnt  *opentype.Font
	faces map[float64]font.Face
}

// ParseFont parses TrueType or OpenType font data.
func ParseFont(data []byte) (*Font, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, &FontLoadError{Err: err}
	}
	return &Font{sfnt: f, faces: make(map[float64]font.Face)}, nil
}

// IsBuiltinFont reports whether name refers to a bundled Go font.
func IsBuiltinFont(name string) bool {
	_, ok := builtinFonts[builtinKey(name)]
	return ok
}

// LoadFont reads and parses the font file at path. Paths naming a bundled Go
// font ("goregular", "gobold", "gomono", with or without a .ttf suffix) are
// served from memory.
func LoadFont(path string) (*Font, error) {
	if data, ok := builtinFonts[builtinKey(path)]; ok {
		f, err := ParseFont(data)
		if err != nil {
			return nil, err
		}
		f.Name = path
		return f, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FontLoadError{Path: path, Err: err}
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, &FontLoadError{Path: path, Err: err}
	}
	return &Font{Name: path, sfnt: f, faces: make(map[float64]font.Face)}, nil
}

func builtinKey(name string) string {
	base := name
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(strings.ToLower(base), ".ttf")
}

func (f *Font) face(size float64) (font.Face, error) {
	if face, ok := f.faces[size]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.sfnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72, // size is in pixels
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create face size %.1f: %w", size, err)
	}
	f.faces[size] = face
	return face, nil
}

type placedGlyph struct {
	dr    image.Rectangle
	mask  image.Image
	maskp image.Point
}

// Draw renders msg at pixel size into dst with its inked top-left corner at
// pos. Glyphs are laid out on a baseline one ascent below the top of a
// scratch image tall enough for ascenders and descenders, rasterized with
// the glyph coverage as alpha, and blended onto dst. The returned rectangle
// is the area of dst that was touched.
func (f *Font) Draw(dst *Image, size float64, c Color, pos geometry.Coord, msg string) (geometry.Rect, error) {
	none := geometry.NewRect(pos.X, pos.Y, 0, 0)
	if size <= 0 || msg == "" {
		return none, nil
	}
	face, err := f.face(size)
	if err != nil {
		return none, err
	}

	metrics := face.Metrics()
	h := (metrics.Ascent + metrics.Descent).Ceil()
	dot := fixed.Point26_6{X: 0, Y: metrics.Ascent}

	var glyphs []placedGlyph
	prev := rune(-1)
	for _, r := range msg {
		if prev >= 0 {
			dot.X += face.Kern(prev, r)
		}
		dr, mask, maskp, advance, ok := face.Glyph(dot, r)
		if ok && !dr.Empty() {
			glyphs = append(glyphs, placedGlyph{dr: dr, mask: mask, maskp: maskp})
		}
		dot.X += advance
		prev = r
	}

	w := dot.X.Ceil()
	if w <= 0 || h <= 0 {
		return none, nil
	}
	text := NewFilled(w, h, Transparent)
	minY, maxY := h, 0

	for _, g := range glyphs {
		for y := max(g.dr.Min.Y, 0); y < min(g.dr.Max.Y, h); y++ {
			for x := max(g.dr.Min.X, 0); x < min(g.dr.Max.X, w); x++ {
				_, _, _, a := g.mask.At(g.maskp.X+x-g.dr.Min.X, g.maskp.Y+y-g.dr.Min.Y).RGBA()
				coverage := a >> 8
				if coverage == 0 {
					continue
				}
				text.Buffer[y*w+x] = Color{R: c.R, G: c.G, B: c.B, A: uint8(coverage * uint32(c.A) / 255)}
				minY = min(minY, y)
				maxY = max(maxY, y+1)
			}
		}
	}

	if maxY <= minY {
		return none, nil
	}

	bb := geometry.NewRect(0, minY, w, maxY-minY)
	dst.BlendImage(text, bb, pos)
	return geometry.NewRect(pos.X, pos.Y, bb.W, bb.H).Clip(dst.Width, dst.Height), nil
}
