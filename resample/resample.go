/*
Package resample resizes, crops and composites the bitmaps that make up a
pyramid.
*/
package resample

import (
	"image"
	"image/color"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// Filter selects the interpolation used when resizing.
type Filter int

// Supported filters
const (
	Default Filter = iota // Lanczos, a=3
	Nearest
	Bilinear
	Bicubic
)

var filterNames = map[string]Filter{
	"default":   Default,
	"antialias": Default,
	"lanczos":   Default,
	"nearest":   Nearest,
	"bilinear":  Bilinear,
	"cubic":     Bicubic,
	"bicubic":   Bicubic,
}

// ParseFilter returns the filter called s, falling back to Default.
func ParseFilter(s string) Filter {
	if f, ok := filterNames[strings.ToLower(s)]; ok {
		return f
	}
	return Default
}

func (f Filter) String() string {
	switch f {
	case Nearest:
		return "nearest"
	case Bilinear:
		return "bilinear"
	case Bicubic:
		return "bicubic"
	}
	return "default"
}

func sinc(x float64) float64 {
	if x == 0 {
		return 1
	}
	x *= math.Pi
	return math.Sin(x) / x
}

// Lanczos is a Lanczos kernel with a support of 3.
var Lanczos = &xdraw.Kernel{
	Support: 3,
	At: func(t float64) float64 {
		if t < 0 {
			t = -t
		}
		if t >= 3 {
			return 0
		}
		return sinc(t) * sinc(t/3)
	},
}

func (f Filter) interpolator() xdraw.Interpolator {
	switch f {
	case Nearest:
		return xdraw.NearestNeighbor
	case Bilinear:
		return xdraw.BiLinear
	case Bicubic:
		return xdraw.CatmullRom
	}
	return Lanczos
}

// Resize scales m to width by height pixels.
func Resize(m image.Image, width, height int, f Filter) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	f.interpolator().Scale(dst, dst.Bounds(), m, m.Bounds(), xdraw.Src, nil)
	return dst
}

// Halve scales m to half its size, rounding each dimension up.
func Halve(m image.Image, f Filter) *image.RGBA {
	b := m.Bounds()
	return Resize(m, (b.Dx()+1)/2, (b.Dy()+1)/2, f)
}

type subImager interface {
	SubImage(image.Rectangle) image.Image
}

// Crop returns the part of m inside r, where r is relative to the top-left
// corner of m. The result always has its top-left corner at (0, 0).
func Crop(m image.Image, r image.Rectangle) image.Image {
	origin := m.Bounds().Min
	r = r.Add(origin).Intersect(m.Bounds())

	if s, ok := m.(subImager); ok && origin == (image.Point{}) && r.Min == (image.Point{}) {
		return s.SubImage(r)
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Draw(dst, dst.Bounds(), m, r.Min, xdraw.Src)
	return dst
}

// Fill returns a width by height bitmap of a single color.
func Fill(width, height int, c color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
	return dst
}

// Paste copies src into dst with its top-left corner at p. Nothing is
// drawn outside clip.
func Paste(dst xdraw.Image, src image.Image, p image.Point, clip image.Rectangle) {
	b := src.Bounds()
	r := image.Rectangle{Min: p, Max: p.Add(b.Size())}.Intersect(clip)
	xdraw.Draw(dst, r, src, b.Min.Add(r.Min.Sub(p)), xdraw.Src)
}
