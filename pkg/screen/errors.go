package screen

import (
	"errors"
	"fmt"
)

// ErrShortBitmap is returned by DrawBitmap when the pixel data is smaller
// than the rectangle it should cover.
var ErrShortBitmap = errors.New("bitmap dimensions larger than bitmap data")

// IncompatibleDeviceError is returned by Init when the device answers the
// handshake with an unknown model.
type IncompatibleDeviceError struct {
	Reply []byte
}

func (e *IncompatibleDeviceError) Error() string {
	return fmt.Sprintf("incompatible screen model: hello reply % x", e.Reply)
}
