// Package framebuffer implements the RGBA8 pixel buffer the daemon composes
// frames in: cropped copies, alpha blending, solid fills and glyph
// rasterization. All pixel operations clip out-of-range geometry instead of
// failing.
package framebuffer

import (
	"image"
	"image/color"

	"gitlab.com/tinyland/lab/turing-screen/pkg/geometry"
)

// Color is a straight-alpha RGBA8 pixel. Alpha 0 is fully transparent and
// 255 fully opaque.
type Color = color.NRGBA

var (
	Black       = Color{R: 0, G: 0, B: 0, A: 255}
	White       = Color{R: 255, G: 255, B: 255, A: 255}
	Transparent = Color{}
)

// Image owns a Width x Height pixel buffer stored row-major.
type Image struct {
	Width  int
	Height int
	Buffer []Color
}

// New returns a width x height image filled with opaque black.
func New(width, height int) *Image {
	return NewFilled(width, height, Black)
}

// NewFilled returns a width x height image filled with c.
func NewFilled(width, height int, c Color) *Image {
	width, height = max(width, 0), max(height, 0)
	buf := make([]Color, width*height)
	for i := range buf {
		buf[i] = c
	}
	return &Image{Width: width, Height: height, Buffer: buf}
}

// Full returns the rectangle covering the whole image.
func (m *Image) Full() geometry.Rect {
	return geometry.NewRect(0, 0, m.Width, m.Height)
}

// At returns the pixel at (x, y), or Transparent outside the image.
func (m *Image) At(x, y int) Color {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return Transparent
	}
	return m.Buffer[y*m.Width+x]
}

// Set stores c at (x, y). Writes outside the image are ignored.
func (m *Image) Set(x, y int, c Color) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Buffer[y*m.Width+x] = c
}

// Clone returns a deep copy of m.
func (m *Image) Clone() *Image {
	buf := make([]Color, len(m.Buffer))
	copy(buf, m.Buffer)
	return &Image{Width: m.Width, Height: m.Height, Buffer: buf}
}

// span returns the part of crop that exists in src and fits at dest inside
// a dstW x dstH image. The returned rect is in source coordinates.
func span(src *Image, crop geometry.Rect, dstW, dstH int, dest geometry.Coord) geometry.Rect {
	c := crop.Clip(src.Width, src.Height)
	d := geometry.NewRect(dest.X, dest.Y, c.W, c.H).Clip(dstW, dstH)
	return geometry.NewRect(c.X, c.Y, d.W, d.H)
}

// CopyImage overwrites the pixels of m at dest with the crop area of src.
// No blending takes place.
func (m *Image) CopyImage(src *Image, crop geometry.Rect, dest geometry.Coord) {
	r := span(src, crop, m.Width, m.Height, dest)
	for y := 0; y < r.H; y++ {
		offset := (dest.Y+y)*m.Width + dest.X
		srcOffset := (r.Y+y)*src.Width + r.X
		copy(m.Buffer[offset:offset+r.W], src.Buffer[srcOffset:srcOffset+r.W])
	}
}

// BlendImage alpha-blends the crop area of src over m at dest.
func (m *Image) BlendImage(src *Image, crop geometry.Rect, dest geometry.Coord) {
	r := span(src, crop, m.Width, m.Height, dest)
	offset := dest.Y*m.Width + dest.X
	srcOffset := r.Y*src.Width + r.X

	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			fg := src.Buffer[srcOffset+x]
			if fg.A == 0 {
				continue
			}
			m.Buffer[offset+x] = BlendAlpha(m.Buffer[offset+x], fg)
		}
		offset += m.Width
		srcOffset += src.Width
	}
}

// BlendToBackground blends the crop area of m over background at pos and
// stores the result back into m. The background is left untouched.
func (m *Image) BlendToBackground(crop geometry.Rect, pos geometry.Coord, background *Image) {
	r := span(m, crop, background.Width, background.Height, pos)
	offset := pos.Y*background.Width + pos.X
	srcOffset := r.Y*m.Width + r.X

	for y := 0; y < r.H; y++ {
		for x := 0; x < r.W; x++ {
			m.Buffer[srcOffset+x] = BlendAlpha(background.Buffer[offset+x], m.Buffer[srcOffset+x])
		}
		offset += background.Width
		srcOffset += m.Width
	}
}

// FillRect blends c over every pixel of rect.
func (m *Image) FillRect(rect geometry.Rect, c Color) {
	if c.A == 0 {
		return
	}
	r := rect.Clip(m.Width, m.Height)
	for y := r.Y; y < r.Y+r.H; y++ {
		row := m.Buffer[y*m.Width : (y+1)*m.Width]
		for x := r.X; x < r.X+r.W; x++ {
			row[x] = BlendAlpha(row[x], c)
		}
	}
}

// StrokeRect draws a one pixel outline of rect in c.
func (m *Image) StrokeRect(rect geometry.Rect, c Color) {
	if rect.Empty() {
		return
	}
	m.FillRect(geometry.NewRect(rect.X, rect.Y, rect.W, 1), c)
	m.FillRect(geometry.NewRect(rect.X, rect.Y+rect.H-1, rect.W, 1), c)
	if rect.H > 2 {
		m.FillRect(geometry.NewRect(rect.X, rect.Y+1, 1, rect.H-2), c)
		m.FillRect(geometry.NewRect(rect.X+rect.W-1, rect.Y+1, 1, rect.H-2), c)
	}
}

// BlendAlpha composites fg over bg with the "over" operator in 8-bit fixed
// point: out = (bg*(255-a) + fg*a) >> 8. Fully transparent fg returns bg and
// fully opaque fg returns fg unchanged. The background alpha is kept.
func BlendAlpha(bg, fg Color) Color {
	switch fg.A {
	case 0x00:
		return bg
	case 0xff:
		return fg
	}

	a := uint16(fg.A)
	ac := 0x00ff - a
	bg.R = uint8((uint16(bg.R)*ac + uint16(fg.R)*a) >> 8)
	bg.G = uint8((uint16(bg.G)*ac + uint16(fg.G)*a) >> 8)
	bg.B = uint8((uint16(bg.B)*ac + uint16(fg.B)*a) >> 8)
	return bg
}

// FromImage converts any image.Image into an Image.
func FromImage(src image.Image) *Image {
	b := src.Bounds()
	m := &Image{Width: b.Dx(), Height: b.Dy(), Buffer: make([]Color, b.Dx()*b.Dy())}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			m.Buffer[y*m.Width+x] = color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
		}
	}
	return m
}

// NRGBA returns a copy of m as a standard library image.
func (m *Image) NRGBA() *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i, c := range m.Buffer {
		out.Pix[4*i] = c.R
		out.Pix[4*i+1] = c.G
		out.Pix[4*i+2] = c.B
		out.Pix[4*i+3] = c.A
	}
	return out
}
