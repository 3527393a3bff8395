package framebuffer

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Load decodes the image file at path (PNG, JPEG, GIF, BMP or TIFF).
func Load(path string) (*Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", path, err)
	}
	return FromImage(img), nil
}

// LoadFitted decodes the image file at path and scales it down, keeping its
// aspect ratio, so that it fits within width x height. Smaller images are
// returned at their native size.
func LoadFitted(path string, width, height int) (*Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load image %s: %w", path, err)
	}
	return FromImage(fit(img, width, height)), nil
}

func fit(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if width <= 0 || height <= 0 || (b.Dx() <= width && b.Dy() <= height) {
		return img
	}
	return imaging.Fit(img, width, height, imaging.Lanczos)
}
