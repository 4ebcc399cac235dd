package tile

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"github.com/ericpauley/go-quantize/quantize"
)

var errUnknownFormat = errors.New("tile: unknown format")

// JPEGQuality converts a quality fraction into the 1-100 scale used by
// image/jpeg.
func JPEGQuality(q float64) int {
	return max(int(math.Round(min(max(q, 0), 1)*100)), 1)
}

func paletted(m image.Image, colors int) *image.Paletted {
	b := m.Bounds()

	pm, _ := m.(*image.Paletted)
	if pm != nil && len(pm.Palette) <= colors {
		return pm
	}

	q := quantize.MedianCutQuantizer{}
	pm = image.NewPaletted(b, q.Quantize(make(color.Palette, 0, colors), m))
	draw.Draw(pm, b, m, b.Min, draw.Src)

	// Adjust image so that top-left corner is at (0, 0)
	if pm.Rect.Min != (image.Point{}) {
		dup := *pm
		dup.Rect = dup.Rect.Sub(dup.Rect.Min)
		pm = &dup
	}

	return pm
}

// Encode writes the Image m to w as a tile of format f.
func Encode(w io.Writer, m image.Image, f Format, o Options) error {
	o = o.Clamp()

	switch f {
	case JPG:
		return jpeg.Encode(w, m, &jpeg.Options{Quality: JPEGQuality(o.Quality)})
	case PNG:
		if o.Colors >= 2 {
			m = paletted(m, o.Colors)
		}
		e := png.Encoder{CompressionLevel: png.BestCompression}
		return e.Encode(w, m)
	}

	return fmt.Errorf("%w: %q", errUnknownFormat, string(f))
}
