//go:build !unix

package preview

import "fmt"

func cellSize(fd uintptr) (w, h int, err error) {
	return 0, 0, fmt.Errorf("TIOCGWINSZ not available on this platform")
}
