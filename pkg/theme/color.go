package theme

import (
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/tinyland/lab/turing-screen/pkg/framebuffer"
)

// ParseColor parses "r, g, b", "r, g, b, a", "#rrggbb" or "#rrggbbaa".
// Colours without alpha are opaque.
func ParseColor(s string) (framebuffer.Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return parseHex(s)
	}

	parts := strings.Split(s, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return framebuffer.Color{}, fmt.Errorf("invalid color %q (expected \"r, g, b[, a]\" or #rrggbb[aa])", s)
	}
	ch := [4]uint8{3: 255}
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return framebuffer.Color{}, fmt.Errorf("invalid color %q: component %d: %w", s, i+1, err)
		}
		ch[i] = uint8(v)
	}
	return framebuffer.Color{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

func parseHex(s string) (framebuffer.Color, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return framebuffer.Color{}, fmt.Errorf("invalid hex color %q (expected #rrggbb[aa])", s)
	}
	ch := [4]uint8{3: 255}
	for i := 0; i < len(hex)/2; i++ {
		v, err := strconv.ParseUint(hex[2*i:2*i+2], 16, 8)
		if err != nil {
			return framebuffer.Color{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		ch[i] = uint8(v)
	}
	return framebuffer.Color{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

// ColorOr parses s, returning def when s is empty.
func ColorOr(s string, def framebuffer.Color) (framebuffer.Color, error) {
	if s == "" {
		return def, nil
	}
	return ParseColor(s)
}
