package tile

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when a bitmap cannot be decoded.
var ErrDecode = errors.New("tile: cannot decode image")

// Decode reads a tile or source bitmap from r. Any format registered with
// the image package is accepted, not just the tile formats.
func Decode(r io.Reader) (image.Image, string, error) {
	m, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return m, format, nil
}

// DecodeConfig returns the dimensions of the bitmap in r without decoding
// the pixels.
func DecodeConfig(r io.Reader) (image.Config, string, error) {
	c, format, err := image.DecodeConfig(r)
	if err != nil {
		return image.Config{}, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return c, format, nil
}
