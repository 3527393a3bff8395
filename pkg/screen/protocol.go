// Package screen drives a hardware revision A Turing smart screen: it
// encodes control frames, downmixes RGBA8 pixels into RGB565 and writes them
// to any byte transport, usually a serial port.
package screen

import (
	"fmt"

	"gitlab.com/tinyland/lab/turing-screen/pkg/framebuffer"
)

// Native panel size in portrait orientation.
const (
	Width  = 320
	Height = 480
)

// FrameSize is the length of every command frame.
const FrameSize = 6

// OrientationFrameSize is the length of the SetOrientation frame, which
// carries the orientation and screen size after the command frame.
const OrientationFrameSize = 16

// Command is a protocol opcode, sent in the last byte of a frame.
type Command byte

const (
	CmdHello          Command = 69  // asks the screen for its model
	CmdReset          Command = 101 // resets the display
	CmdClear          Command = 102 // clears the display to white
	CmdToBlack        Command = 103 // makes the screen go black
	CmdScreenOff      Command = 108
	CmdScreenOn       Command = 109
	CmdSetBrightness  Command = 110
	CmdSetOrientation Command = 121
	CmdDisplayBitmap  Command = 197 // followed by RGB565 rows
)

func (c Command) String() string {
	switch c {
	case CmdHello:
		return "hello"
	case CmdReset:
		return "reset"
	case CmdClear:
		return "clear"
	case CmdToBlack:
		return "to-black"
	case CmdScreenOff:
		return "screen-off"
	case CmdScreenOn:
		return "screen-on"
	case CmdSetBrightness:
		return "set-brightness"
	case CmdSetOrientation:
		return "set-orientation"
	case CmdDisplayBitmap:
		return "display-bitmap"
	}
	return fmt.Sprintf("command(%d)", byte(c))
}

// HelloReply is the answer of a 3.5" revision A screen to CmdHello.
var HelloReply = [FrameSize]byte{0x01, 0x01, 0x01, 0x01, 0x01, 0x01}

// Orientation is the wire value of a screen orientation.
type Orientation byte

const (
	Portrait         Orientation = 0
	ReversePortrait  Orientation = 1
	Landscape        Orientation = 2
	ReverseLandscape Orientation = 3
)

// ParseOrientation maps a theme orientation name to its value.
func ParseOrientation(name string) (Orientation, error) {
	switch name {
	case "portrait", "":
		return Portrait, nil
	case "reverse_portrait":
		return ReversePortrait, nil
	case "landscape":
		return Landscape, nil
	case "reverse_landscape":
		return ReverseLandscape, nil
	}
	return Portrait, fmt.Errorf("unknown orientation %q", name)
}

func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "portrait"
	case ReversePortrait:
		return "reverse_portrait"
	case Landscape:
		return "landscape"
	case ReverseLandscape:
		return "reverse_landscape"
	}
	return fmt.Sprintf("orientation(%d)", byte(o))
}

// Size returns the screen size in pixels seen in orientation o.
func (o Orientation) Size() (width, height int) {
	if o == Landscape || o == ReverseLandscape {
		return Height, Width
	}
	return Width, Height
}

// CommandFrame encodes a command without parameters.
func CommandFrame(c Command) []byte {
	return []byte{0, 0, 0, 0, 0, byte(c)}
}

// ParamFrame encodes a command with a single byte parameter.
func ParamFrame(c Command, p byte) []byte {
	return []byte{p, 0, 0, 0, 0, byte(c)}
}

// RectFrame encodes a command carrying two corners. Each coordinate keeps
// its low 10 bits, packed big-endian:
//
//	[xxxxxxxx] [xxyyyyyy] [yyyyzzzz] [zzzzzzww] [wwwwwwww]
func RectFrame(c Command, x0, y0, x1, y1 int) []byte {
	return []byte{
		byte((x0 & 0x3ff) >> 2),
		byte((x0&0x003)<<6 | (y0&0x3ff)>>4),
		byte((y0&0x00f)<<4 | (x1&0x3ff)>>6),
		byte((x1&0x03f)<<2 | (y1&0x3ff)>>8),
		byte(y1 & 0xff),
		byte(c),
	}
}

// DecodeRect is the inverse of RectFrame for the first five bytes of frame.
func DecodeRect(frame []byte) (x0, y0, x1, y1 int) {
	b0, b1, b2, b3, b4 := int(frame[0]), int(frame[1]), int(frame[2]), int(frame[3]), int(frame[4])
	x0 = b0<<2 | b1>>6
	y0 = (b1&0x3f)<<4 | b2>>4
	x1 = (b2&0x0f)<<6 | b3>>2
	y1 = (b3&0x03)<<8 | b4
	return x0, y0, x1, y1
}

// OrientationFrame encodes SetOrientation for o with the matching size.
func OrientationFrame(o Orientation) []byte {
	w, h := o.Size()
	buf := make([]byte, OrientationFrameSize)
	buf[5] = byte(CmdSetOrientation)
	buf[6] = 100 + byte(o)
	buf[7] = byte(w >> 8)
	buf[8] = byte(w)
	buf[9] = byte(h >> 8)
	buf[10] = byte(h)
	return buf
}

// Pack565 converts c to RGB565 in wire order. Alpha is dropped.
//
//	[rrrrrggg] [gggbbbbb]  =(LE)=>  [gggbbbbb] [rrrrrggg]
func Pack565(c framebuffer.Color) (lo, hi byte) {
	lo = (c.G&0x1c)<<3 | c.B>>3
	hi = c.R&0xf8 | c.G>>5
	return lo, hi
}

// Bitmap565 packs img row by row into the RGB565 pixel data DrawBitmap
// sends.
func Bitmap565(img *framebuffer.Image) []byte {
	data := make([]byte, 0, 2*len(img.Buffer))
	for _, c := range img.Buffer {
		lo, hi := Pack565(c)
		data = append(data, lo, hi)
	}
	return data
}

// Unpack565 converts a wire RGB565 pixel back to an opaque colour. The low
// bits lost by Pack565 are zero.
func Unpack565(lo, hi byte) framebuffer.Color {
	return framebuffer.Color{
		R: hi & 0xf8,
		G: (hi&0x07)<<5 | (lo&0xe0)>>3,
		B: (lo & 0x1f) << 3,
		A: 255,
	}
}
