// Package emulator implements a software revision A screen. It accepts the
// same byte stream as the hardware and keeps the resulting picture in
// memory, so the daemon can run without a device and tests can inspect
// what would have been displayed.
package emulator

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"sync"

	"gitlab.com/tinyland/lab/turing-screen/pkg/framebuffer"
	"gitlab.com/tinyland/lab/turing-screen/pkg/screen"
)

// Device is an in-memory revision A screen. It implements io.ReadWriter
// and is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	pending []byte
	reply   bytes.Buffer
	bitmap  *bitmap

	orientation screen.Orientation
	brightness  uint8
	on          bool
	img         *image.NRGBA
	commands    []screen.Command
	frames      int
}

// bitmap tracks a DisplayBitmap transfer in progress.
type bitmap struct {
	rect image.Rectangle
	n    int
}

// New returns a powered-on device in portrait orientation showing black.
func New() *Device {
	d := &Device{orientation: screen.Portrait, on: true}
	d.resize()
	return d
}

// Read returns queued replies. With nothing queued it reports io.EOF, the
// way a serial read times out.
func (d *Device) Read(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reply.Read(b)
}

// Write feeds the protocol decoder. A malformed stream returns an error and
// discards the undecoded bytes.
func (d *Device) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = append(d.pending, b...)
	for {
		more, err := d.step()
		if err != nil {
			d.pending = d.pending[:0]
			d.bitmap = nil
			return 0, err
		}
		if !more {
			return len(b), nil
		}
	}
}

// step decodes one command or a run of pixel data. It reports whether the
// decoder can make progress with the bytes still pending.
func (d *Device) step() (bool, error) {
	if d.bitmap != nil {
		return d.pixels(), nil
	}
	if len(d.pending) < screen.FrameSize {
		return false, nil
	}

	frame := d.pending[:screen.FrameSize]
	cmd := screen.Command(frame[5])
	size := screen.FrameSize

	switch cmd {
	case screen.CmdHello:
		d.reply.Write(screen.HelloReply[:])
	case screen.CmdReset:
		d.orientation = screen.Portrait
		d.resize()
	case screen.CmdClear:
		if d.orientation == screen.Portrait {
			d.fill(framebuffer.White)
		}
	case screen.CmdToBlack:
		d.fill(framebuffer.Black)
	case screen.CmdScreenOff:
		d.on = false
	case screen.CmdScreenOn:
		d.on = true
	case screen.CmdSetBrightness:
		d.brightness = ^frame[0]
	case screen.CmdSetOrientation:
		size = screen.OrientationFrameSize
		if len(d.pending) < size {
			return false, nil
		}
		o := screen.Orientation(d.pending[6] - 100)
		if o > screen.ReverseLandscape {
			return false, fmt.Errorf("invalid orientation byte %d", d.pending[6])
		}
		if o != d.orientation {
			d.orientation = o
			d.resize()
		}
	case screen.CmdDisplayBitmap:
		x0, y0, x1, y1 := screen.DecodeRect(frame)
		if x1 < x0 || y1 < y0 {
			return false, fmt.Errorf("invalid bitmap rectangle (%d,%d)-(%d,%d)", x0, y0, x1, y1)
		}
		d.bitmap = &bitmap{rect: image.Rect(x0, y0, x1+1, y1+1)}
	default:
		return false, fmt.Errorf("unknown command %s", cmd)
	}

	d.commands = append(d.commands, cmd)
	d.pending = d.pending[size:]
	return true, nil
}

// pixels consumes RGB565 pairs of the current bitmap. It reports whether
// the bitmap is complete.
func (d *Device) pixels() bool {
	bm := d.bitmap
	w := bm.rect.Dx()
	total := w * bm.rect.Dy()

	for len(d.pending) >= 2 && bm.n < total {
		x := bm.rect.Min.X + bm.n%w
		y := bm.rect.Min.Y + bm.n/w
		d.img.SetNRGBA(x, y, screen.Unpack565(d.pending[0], d.pending[1]))
		d.pending = d.pending[2:]
		bm.n++
	}
	if bm.n < total {
		return false
	}
	d.bitmap = nil
	d.frames++
	return true
}

func (d *Device) resize() {
	w, h := d.orientation.Size()
	d.img = image.NewNRGBA(image.Rect(0, 0, w, h))
	d.fill(framebuffer.Black)
}

func (d *Device) fill(c framebuffer.Color) {
	draw.Draw(d.img, d.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Image returns a copy of the displayed picture.
func (d *Device) Image() *image.NRGBA {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := image.NewNRGBA(d.img.Bounds())
	copy(out.Pix, d.img.Pix)
	return out
}

// Commands returns the decoded commands in arrival order.
func (d *Device) Commands() []screen.Command {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]screen.Command, len(d.commands))
	copy(out, d.commands)
	return out
}

// Bitmaps returns how many DisplayBitmap transfers completed.
func (d *Device) Bitmaps() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Orientation returns the current orientation.
func (d *Device) Orientation() screen.Orientation {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orientation
}

// Brightness returns the backlight level, 0 being darkest.
func (d *Device) Brightness() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.brightness
}

// On reports whether the screen is powered on.
func (d *Device) On() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.on
}
