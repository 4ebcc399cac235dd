package deepzoom

import (
	"image"
	"io"
	"log"

	"github.com/bodgit/deepzoom/pyramid"
	"github.com/bodgit/deepzoom/resample"
	"github.com/bodgit/deepzoom/tile"
)

// ImageCreator creates Deep Zoom images. It holds no per-image state so a
// single ImageCreator may be used from several goroutines, as long as they
// write to different destinations.
type ImageCreator struct {
	TileSize    int
	TileOverlap int
	TileFormat  tile.Format
	Filter      resample.Filter
	Options     tile.Options

	logger *log.Logger
}

// NewImageCreator returns an ImageCreator using the image settings of c.
// Out of range values are clamped and an unknown format becomes JPEG.
func NewImageCreator(c Config, logger *log.Logger) *ImageCreator {
	ic := &ImageCreator{
		TileSize:    c.TileSize,
		TileOverlap: min(max(c.TileOverlap, 0), pyramid.MaxTileOverlap),
		TileFormat:  tile.ParseFormat(c.TileFormat),
		Filter:      resample.ParseFilter(c.ResizeFilter),
		Options:     tile.Options{Quality: c.ImageQuality, Colors: c.Colors}.Clamp(),
		logger:      discardLogger(logger),
	}
	if ic.TileSize <= 0 {
		ic.TileSize = pyramid.DefaultTileSize
	}
	return ic
}

// levelImage returns the bitmap for a level, always resampled from the
// original so errors don't accumulate. The original is used untouched when
// the level is the same size.
func (ic *ImageCreator) levelImage(m image.Image, d *pyramid.Descriptor, level int) (image.Image, error) {
	w, h, err := d.Dimensions(level)
	if err != nil {
		return nil, err
	}
	if w == d.Width && h == d.Height {
		return m, nil
	}
	return resample.Resize(m, w, h, ic.Filter), nil
}

// Create writes the pyramid for src with its descriptor at destination and
// returns the descriptor.
func (ic *ImageCreator) Create(src Source, destination string) (*pyramid.Descriptor, error) {
	m, err := src.Image()
	if err != nil {
		return nil, err
	}

	b := m.Bounds()
	d, err := pyramid.New(b.Dx(), b.Dy(), ic.TileSize, ic.TileOverlap, ic.TileFormat)
	if err != nil {
		return nil, err
	}

	ic.logger.Printf("Creating %d levels for %s (%dx%d)\n", d.NumLevels(), src, d.Width, d.Height)

	for level := 0; level < d.NumLevels(); level++ {
		if err := ic.writeLevel(m, d, level, destination); err != nil {
			return nil, err
		}
	}

	if err := writeFile(destination, func(w io.Writer) error {
		return pyramid.Encode(w, d)
	}); err != nil {
		return nil, err
	}

	return d, nil
}

func (ic *ImageCreator) writeLevel(m image.Image, d *pyramid.Descriptor, level int, destination string) error {
	lm, err := ic.levelImage(m, d, level)
	if err != nil {
		return err
	}

	tiles, err := d.Tiles(level)
	if err != nil {
		return err
	}

	for _, p := range tiles {
		r, err := d.TileBounds(level, p.X, p.Y)
		if err != nil {
			return err
		}

		t := resample.Crop(lm, r)
		if err := writeFile(TilePath(destination, level, p.X, p.Y, d.TileFormat), func(w io.Writer) error {
			return tile.Encode(w, t, d.TileFormat, ic.Options)
		}); err != nil {
			return err
		}
	}

	return nil
}
