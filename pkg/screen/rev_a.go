package screen

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"gitlab.com/tinyland/lab/turing-screen/pkg/framebuffer"
	"gitlab.com/tinyland/lab/turing-screen/pkg/geometry"
)

// RevA drives a 3.5" revision A screen over port. It keeps an RGB565 shadow
// of the panel so pixel rows can be written without per-call allocation.
// A RevA is not safe for concurrent use.
type RevA struct {
	port        io.ReadWriter
	orientation Orientation
	fb565       []byte
	logger      *slog.Logger
}

// Option configures a RevA.
type Option func(*RevA)

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *RevA) { s.logger = l }
}

// NewRevA returns a driver writing to port, in portrait orientation.
func NewRevA(port io.ReadWriter, opts ...Option) *RevA {
	s := &RevA{
		port:        port,
		orientation: Portrait,
		fb565:       make([]byte, 2*Width*Height),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Size returns the screen size in the current orientation.
func (s *RevA) Size() (width, height int) {
	return s.orientation.Size()
}

// Orientation returns the last orientation set.
func (s *RevA) Orientation() Orientation {
	return s.orientation
}

func (s *RevA) write(data []byte) (int, error) {
	n, err := s.port.Write(data)
	if err != nil {
		return n, fmt.Errorf("write to screen: %w", err)
	}
	if n != len(data) {
		return n, fmt.Errorf("write to screen: %w", io.ErrShortWrite)
	}
	return n, nil
}

func (s *RevA) read(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.port, buf); err != nil {
		return nil, fmt.Errorf("read from screen: %w", err)
	}
	return buf, nil
}

// Init performs the hello handshake. Any reply other than HelloReply
// returns an *IncompatibleDeviceError.
func (s *RevA) Init() error {
	s.logger.Debug("init screen")
	if _, err := s.write(CommandFrame(CmdHello)); err != nil {
		return err
	}
	reply, err := s.read(FrameSize)
	if err != nil {
		return err
	}
	if !bytes.Equal(reply, HelloReply[:]) {
		return &IncompatibleDeviceError{Reply: reply}
	}
	return nil
}

// Clear switches to portrait, which the hardware requires, and clears the
// screen to white.
func (s *RevA) Clear() error {
	s.logger.Debug("clear screen")
	if err := s.SetOrientation(Portrait); err != nil {
		return err
	}
	_, err := s.write(CommandFrame(CmdClear))
	return err
}

func (s *RevA) ScreenOn() error {
	s.logger.Debug("screen on")
	_, err := s.write(CommandFrame(CmdScreenOn))
	return err
}

func (s *RevA) ScreenOff() error {
	s.logger.Debug("screen off")
	_, err := s.write(CommandFrame(CmdScreenOff))
	return err
}

// SetOrientation records o and sends it with the matching screen size.
func (s *RevA) SetOrientation(o Orientation) error {
	s.logger.Debug("set screen orientation", "orientation", o)
	s.orientation = o
	_, err := s.write(OrientationFrame(o))
	return err
}

// SetBrightness sets the backlight level. The device expects the level
// bitwise inverted: 0 is brightest.
func (s *RevA) SetBrightness(level uint8) error {
	s.logger.Debug("set screen brightness", "level", level)
	_, err := s.write(ParamFrame(CmdSetBrightness, ^level))
	return err
}

// DisplayImage sends the crop area of img to the screen at pos. The area is
// clipped to the image and to the screen; an empty result sends nothing.
func (s *RevA) DisplayImage(img *framebuffer.Image, crop geometry.Rect, pos geometry.Coord) error {
	s.logger.Debug("display image", "crop", crop, "pos", pos)
	width, height := s.Size()

	r := crop.Clip(img.Width, img.Height)
	d := geometry.NewRect(pos.X, pos.Y, r.W, r.H).Clip(width, height)
	r.W, r.H = d.W, d.H
	if r.Empty() {
		return nil
	}

	s.downmix(img, r, pos)
	if _, err := s.write(RectFrame(CmdDisplayBitmap, pos.X, pos.Y, pos.X+r.W-1, pos.Y+r.H-1)); err != nil {
		return err
	}

	stride := 2 * width
	start := pos.Y*stride + 2*pos.X
	for range r.H {
		if _, err := s.write(s.fb565[start : start+2*r.W]); err != nil {
			return err
		}
		start += stride
	}
	return nil
}

// DrawBitmap sends w x h pixels of raw RGB565 data at (x, y). Rows are
// read from data consecutively.
func (s *RevA) DrawBitmap(data []byte, x, y, w, h int) error {
	if w <= 0 || h <= 0 {
		return nil
	}
	if len(data) < 2*w*h {
		return ErrShortBitmap
	}
	if _, err := s.write(RectFrame(CmdDisplayBitmap, x, y, x+w-1, y+h-1)); err != nil {
		return err
	}
	for row := range h {
		if _, err := s.write(data[2*w*row : 2*w*(row+1)]); err != nil {
			return err
		}
	}
	return nil
}

// downmix converts rect r of img to RGB565 into the shadow buffer at pos.
// r and pos must already be clipped.
func (s *RevA) downmix(img *framebuffer.Image, r geometry.Rect, pos geometry.Coord) {
	width, _ := s.Size()
	stride := 2 * width
	src := r.Y*img.Width + r.X
	dst := 2 * (pos.Y*width + pos.X)

	for range r.H {
		i, j := src, dst
		for range r.W {
			s.fb565[j], s.fb565[j+1] = Pack565(img.Buffer[i])
			i++
			j += 2
		}
		src += img.Width
		dst += stride
	}
}
