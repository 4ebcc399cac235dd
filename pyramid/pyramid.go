/*
Package pyramid implements the geometry of a Deep Zoom image pyramid and the
descriptor that is written alongside it.

A pyramid has NumLevels levels. Level 0 is the coarsest and level
NumLevels-1 is the image at full resolution; every level is half the size of
the one above it, rounded up. Each level is cut into square tiles of TileSize
pixels with TileOverlap extra pixels added on every edge that borders another
tile. None of the levels or tiles are ever materialized here, they are
computed on demand from the descriptor.
*/
package pyramid

import (
	"errors"
	"fmt"
	"image"
	"math"
	"math/bits"

	"github.com/bodgit/deepzoom/tile"
)

var (
	// ErrInvalidLevel is returned when a level is outside [0, NumLevels)
	ErrInvalidLevel = errors.New("pyramid: invalid level")

	// ErrMalformedDescriptor is returned when a descriptor is missing
	// required attributes or they have invalid values
	ErrMalformedDescriptor = errors.New("pyramid: malformed descriptor")
)

const (
	// DefaultTileSize is the tile size used when none is given
	DefaultTileSize = 254
	// DefaultTileOverlap is the overlap used when none is given
	DefaultTileOverlap = 1
	// MaxTileOverlap is the largest overlap accepted
	MaxTileOverlap = 10
)

// Descriptor describes the shape of an image pyramid.
type Descriptor struct {
	Width       int
	Height      int
	TileSize    int
	TileOverlap int
	TileFormat  tile.Format
}

// New returns a validated descriptor.
func New(width, height, tileSize, tileOverlap int, format tile.Format) (*Descriptor, error) {
	d := &Descriptor{
		Width:       width,
		Height:      height,
		TileSize:    tileSize,
		TileOverlap: tileOverlap,
		TileFormat:  format,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Validate checks the descriptor invariants.
func (d *Descriptor) Validate() error {
	switch {
	case d.Width <= 0 || d.Height <= 0:
		return fmt.Errorf("%w: size %dx%d", ErrMalformedDescriptor, d.Width, d.Height)
	case d.TileSize <= 0:
		return fmt.Errorf("%w: tile size %d", ErrMalformedDescriptor, d.TileSize)
	case d.TileOverlap < 0 || d.TileOverlap > MaxTileOverlap:
		return fmt.Errorf("%w: overlap %d", ErrMalformedDescriptor, d.TileOverlap)
	case d.TileFormat == "":
		return fmt.Errorf("%w: missing format", ErrMalformedDescriptor)
	}
	return nil
}

// NumLevels returns the number of levels in the pyramid,
// floor(log2(max(width, height))) + 1.
func (d *Descriptor) NumLevels() int {
	m := max(d.Width, d.Height)
	if m < 1 {
		return 0
	}
	return bits.Len(uint(m))
}

// MaxLevel returns the index of the full resolution level.
func (d *Descriptor) MaxLevel() int {
	return d.NumLevels() - 1
}

func (d *Descriptor) checkLevel(level int) error {
	if level < 0 || level >= d.NumLevels() {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidLevel, level, d.NumLevels())
	}
	return nil
}

// Scale returns the scale of the level relative to the full resolution
// image. It is exactly 1 at the maximum level.
func (d *Descriptor) Scale(level int) (float64, error) {
	if err := d.checkLevel(level); err != nil {
		return 0, err
	}
	return math.Ldexp(1, level-d.MaxLevel()), nil
}

// Dimensions returns the width and height of the level. Each dimension is
// rounded up on its own.
func (d *Descriptor) Dimensions(level int) (int, int, error) {
	scale, err := d.Scale(level)
	if err != nil {
		return 0, 0, err
	}
	return int(math.Ceil(float64(d.Width) * scale)), int(math.Ceil(float64(d.Height) * scale)), nil
}

// NumTiles returns the number of tile columns and rows in the level.
func (d *Descriptor) NumTiles(level int) (int, int, error) {
	w, h, err := d.Dimensions(level)
	if err != nil {
		return 0, 0, err
	}
	return ceilDiv(w, d.TileSize), ceilDiv(h, d.TileSize), nil
}

// TileBounds returns the crop rectangle of the tile at column, row within
// the level bitmap. Overlap is only added on edges that border another tile
// and the rectangle never extends past the level bitmap.
func (d *Descriptor) TileBounds(level, column, row int) (image.Rectangle, error) {
	lw, lh, err := d.Dimensions(level)
	if err != nil {
		return image.Rectangle{}, err
	}

	x, w := d.span(column)
	y, h := d.span(row)

	w = min(w, lw-x)
	h = min(h, lh-y)

	return image.Rect(x, y, x+w, y+h), nil
}

// span returns the start and nominal length of a tile along one axis
func (d *Descriptor) span(i int) (int, int) {
	if i == 0 {
		return 0, d.TileSize + d.TileOverlap
	}
	return i*d.TileSize - d.TileOverlap, d.TileSize + 2*d.TileOverlap
}

// Tiles returns the position of every tile in the level, column by column.
func (d *Descriptor) Tiles(level int) ([]image.Point, error) {
	columns, rows, err := d.NumTiles(level)
	if err != nil {
		return nil, err
	}
	tiles := make([]image.Point, 0, columns*rows)
	for column := 0; column < columns; column++ {
		for row := 0; row < rows; row++ {
			tiles = append(tiles, image.Pt(column, row))
		}
	}
	return tiles, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
