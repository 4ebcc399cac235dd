package resample

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	red  = color.RGBA{0xff, 0, 0, 0xff}
	blue = color.RGBA{0, 0, 0xff, 0xff}
)

func TestParseFilter(t *testing.T) {
	tables := map[string]Filter{
		"":          Default,
		"antialias": Default,
		"NEAREST":   Nearest,
		"bilinear":  Bilinear,
		"cubic":     Bicubic,
		"bicubic":   Bicubic,
		"mitchell":  Default,
	}

	for in, want := range tables {
		assert.Equal(t, want, ParseFilter(in), in)
	}

	for _, f := range []Filter{Default, Nearest, Bilinear, Bicubic} {
		assert.Equal(t, f, ParseFilter(f.String()))
	}
}

func TestResize(t *testing.T) {
	src := Fill(10, 6, red)

	for _, f := range []Filter{Default, Nearest, Bilinear, Bicubic} {
		t.Run(f.String(), func(t *testing.T) {
			dst := Resize(src, 3, 2, f)
			assert.Equal(t, image.Rect(0, 0, 3, 2), dst.Bounds())
			assert.Equal(t, red, dst.RGBAAt(1, 1))
		})
	}
}

func TestHalve(t *testing.T) {
	tables := []struct {
		in, out image.Point
	}{
		{image.Pt(8, 8), image.Pt(4, 4)},
		{image.Pt(5, 3), image.Pt(3, 2)},
		{image.Pt(1, 1), image.Pt(1, 1)},
	}

	for _, table := range tables {
		dst := Halve(Fill(table.in.X, table.in.Y, blue), Default)
		assert.Equal(t, table.out, dst.Bounds().Size())
	}
}

func TestCrop(t *testing.T) {
	src := Fill(10, 10, red)
	Paste(src, Fill(2, 2, blue), image.Pt(4, 4), src.Bounds())

	c := Crop(src, image.Rect(3, 3, 7, 9))
	assert.Equal(t, image.Rect(0, 0, 4, 6), c.Bounds())
	assert.Equal(t, red, c.At(0, 0))
	assert.Equal(t, blue, c.At(1, 1))
	assert.Equal(t, blue, c.At(2, 2))
	assert.Equal(t, red, c.At(3, 3))

	// Anchored at the origin the crop shares pixels with the source
	c = Crop(src, image.Rect(0, 0, 5, 5))
	assert.Equal(t, image.Rect(0, 0, 5, 5), c.Bounds())
	assert.Equal(t, blue, c.At(4, 4))

	// Sources with a non-zero origin are normalized
	sub := src.SubImage(image.Rect(4, 4, 10, 10))
	c = Crop(sub, image.Rect(0, 0, 2, 2))
	assert.Equal(t, image.Rect(0, 0, 2, 2), c.Bounds())
	assert.Equal(t, blue, c.At(0, 0))
}

func TestPasteClip(t *testing.T) {
	dst := Fill(8, 8, red)
	Paste(dst, Fill(6, 6, blue), image.Pt(2, 2), image.Rect(2, 2, 4, 4))

	assert.Equal(t, blue, dst.RGBAAt(2, 2))
	assert.Equal(t, blue, dst.RGBAAt(3, 3))
	assert.Equal(t, red, dst.RGBAAt(4, 4))
	assert.Equal(t, red, dst.RGBAAt(1, 1))
}
