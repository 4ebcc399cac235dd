package pyramid

import (
	"bytes"
	"image"
	"strings"
	"testing"

	"github.com/bodgit/deepzoom/tile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, width, height, tileSize, overlap int) *Descriptor {
	t.Helper()
	d, err := New(width, height, tileSize, overlap, tile.JPG)
	require.NoError(t, err)
	return d
}

func TestNumLevels(t *testing.T) {
	tables := []struct {
		width, height int
		levels        int
	}{
		{1, 1, 1},
		{2, 1, 2},
		{3, 3, 2},
		{255, 10, 8},
		{256, 256, 9},
		{10, 300, 9},
		{511, 1, 9},
		{512, 512, 10},
		{513, 200, 10},
	}

	for _, table := range tables {
		d := mustNew(t, table.width, table.height, 254, 1)
		assert.Equal(t, table.levels, d.NumLevels(), "%dx%d", table.width, table.height)
	}
}

func TestScale(t *testing.T) {
	d := mustNew(t, 512, 512, 254, 1)

	s, err := d.Scale(9)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s)

	s, err = d.Scale(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0/512, s)
}

func TestInvalidLevel(t *testing.T) {
	d := mustNew(t, 100, 50, 254, 1)

	for _, level := range []int{-1, d.NumLevels(), 100} {
		_, err := d.Scale(level)
		assert.ErrorIs(t, err, ErrInvalidLevel)
		_, _, err = d.Dimensions(level)
		assert.ErrorIs(t, err, ErrInvalidLevel)
		_, _, err = d.NumTiles(level)
		assert.ErrorIs(t, err, ErrInvalidLevel)
		_, err = d.TileBounds(level, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidLevel)
		_, err = d.Tiles(level)
		assert.ErrorIs(t, err, ErrInvalidLevel)
	}
}

func TestDimensions(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {5, 3}, {300, 7}, {1023, 1025}, {4000, 3000}} {
		d := mustNew(t, size[0], size[1], 254, 1)
		w, h, err := d.Dimensions(d.MaxLevel())
		require.NoError(t, err)
		assert.Equal(t, size[0], w)
		assert.Equal(t, size[1], h)
	}

	// Each dimension is rounded up independently
	d := mustNew(t, 5, 3, 2, 1)
	expected := [][2]int{{2, 1}, {3, 2}, {5, 3}}
	for level, want := range expected {
		w, h, err := d.Dimensions(level)
		require.NoError(t, err)
		assert.Equal(t, want, [2]int{w, h}, "level %d", level)
	}
}

func TestSmallPyramid(t *testing.T) {
	d := mustNew(t, 5, 3, 2, 1)

	expected := map[int]map[image.Point]image.Rectangle{
		0: {
			image.Pt(0, 0): image.Rect(0, 0, 2, 1),
		},
		1: {
			image.Pt(0, 0): image.Rect(0, 0, 3, 2),
			image.Pt(1, 0): image.Rect(1, 0, 3, 2),
		},
		2: {
			image.Pt(0, 0): image.Rect(0, 0, 3, 3),
			image.Pt(0, 1): image.Rect(0, 1, 3, 3),
			image.Pt(1, 0): image.Rect(1, 0, 5, 3),
			image.Pt(1, 1): image.Rect(1, 1, 5, 3),
			image.Pt(2, 0): image.Rect(3, 0, 5, 3),
			image.Pt(2, 1): image.Rect(3, 1, 5, 3),
		},
	}

	require.Equal(t, len(expected), d.NumLevels())

	for level, tiles := range expected {
		positions, err := d.Tiles(level)
		require.NoError(t, err)
		assert.Len(t, positions, len(tiles), "level %d", level)

		for _, p := range positions {
			r, err := d.TileBounds(level, p.X, p.Y)
			require.NoError(t, err)
			assert.Equal(t, tiles[p], r, "level %d tile %v", level, p)
		}
	}

	// Column-major ordering
	positions, err := d.Tiles(2)
	require.NoError(t, err)
	assert.Equal(t, []image.Point{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {2, 0}, {2, 1}}, positions)
}

func TestLargePyramid(t *testing.T) {
	d := mustNew(t, 512, 512, 254, 1)

	assert.Equal(t, 10, d.NumLevels())

	w, h, err := d.Dimensions(9)
	require.NoError(t, err)
	assert.Equal(t, 512, w)
	assert.Equal(t, 512, h)

	columns, rows, err := d.NumTiles(9)
	require.NoError(t, err)
	assert.Equal(t, 3, columns)
	assert.Equal(t, 3, rows)

	tables := []struct {
		column, row int
		bounds      image.Rectangle
	}{
		{0, 0, image.Rect(0, 0, 255, 255)},
		{1, 0, image.Rect(253, 0, 509, 255)},
		{2, 0, image.Rect(507, 0, 512, 255)},
		{1, 1, image.Rect(253, 253, 509, 509)},
		{2, 2, image.Rect(507, 507, 512, 512)},
	}

	for _, table := range tables {
		r, err := d.TileBounds(9, table.column, table.row)
		require.NoError(t, err)
		assert.Equal(t, table.bounds, r, "tile %d,%d", table.column, table.row)
	}
}

func TestSinglePixel(t *testing.T) {
	d := mustNew(t, 1, 1, 254, 1)

	assert.Equal(t, 1, d.NumLevels())

	columns, rows, err := d.NumTiles(0)
	require.NoError(t, err)
	assert.Equal(t, 1, columns)
	assert.Equal(t, 1, rows)

	r, err := d.TileBounds(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1, 1), r)
}

func TestTilesCoverLevelOnce(t *testing.T) {
	for _, size := range [][3]int{{37, 23, 8}, {100, 100, 10}, {513, 7, 64}, {1, 1, 254}} {
		d := mustNew(t, size[0], size[1], size[2], 0)

		for level := 0; level < d.NumLevels(); level++ {
			lw, lh, err := d.Dimensions(level)
			require.NoError(t, err)

			count := make([]int, lw*lh)
			positions, err := d.Tiles(level)
			require.NoError(t, err)
			for _, p := range positions {
				r, err := d.TileBounds(level, p.X, p.Y)
				require.NoError(t, err)
				for y := r.Min.Y; y < r.Max.Y; y++ {
					for x := r.Min.X; x < r.Max.X; x++ {
						count[y*lw+x]++
					}
				}
			}

			for i, c := range count {
				if !assert.Equal(t, 1, c, "%v level %d pixel %d,%d", size, level, i%lw, i/lw) {
					break
				}
			}
		}
	}
}

func TestNewInvalid(t *testing.T) {
	tables := []struct {
		width, height, tileSize, overlap int
		format                           tile.Format
	}{
		{0, 10, 254, 1, tile.JPG},
		{10, -1, 254, 1, tile.JPG},
		{10, 10, 0, 1, tile.JPG},
		{10, 10, 254, 11, tile.JPG},
		{10, 10, 254, 1, ""},
	}

	for _, table := range tables {
		_, err := New(table.width, table.height, table.tileSize, table.overlap, table.format)
		assert.ErrorIs(t, err, ErrMalformedDescriptor)
	}
}

func TestEncodeDecode(t *testing.T) {
	d, err := New(4000, 3000, 510, 2, tile.PNG)
	require.NoError(t, err)

	b := new(bytes.Buffer)
	require.NoError(t, Encode(b, d))

	out := b.String()
	assert.True(t, strings.HasPrefix(out, "<?xml"))
	assert.Contains(t, out, `xmlns="`+Namespace+`"`)
	assert.Contains(t, out, `TileSize="510"`)
	assert.Contains(t, out, `Format="png"`)
	assert.Contains(t, out, `Width="4000"`)

	r, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, d, r)
}

func TestDecode(t *testing.T) {
	in := `<?xml version="1.0" encoding="UTF-8"?>
<Image TileSize="254" Overlap="1" Format="JPG" xmlns="http://schemas.microsoft.com/deepzoom/2008">
  <Size Width="1024" Height="768"/>
</Image>`

	d, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, &Descriptor{Width: 1024, Height: 768, TileSize: 254, TileOverlap: 1, TileFormat: tile.JPG}, d)
}

func TestDecodeMalformed(t *testing.T) {
	tables := map[string]string{
		"no size":      `<Image TileSize="254" Overlap="1" Format="jpg"></Image>`,
		"no tile size": `<Image Overlap="1" Format="jpg"><Size Width="1" Height="1"/></Image>`,
		"no overlap":   `<Image TileSize="254" Format="jpg"><Size Width="1" Height="1"/></Image>`,
		"no format":    `<Image TileSize="254" Overlap="1"><Size Width="1" Height="1"/></Image>`,
		"no width":     `<Image TileSize="254" Overlap="1" Format="jpg"><Size Height="1"/></Image>`,
		"bad height":   `<Image TileSize="254" Overlap="1" Format="jpg"><Size Width="1" Height="x"/></Image>`,
		"not xml":      `hello`,
		"wrong root":   `<Collection MaxLevel="7"/>`,
	}

	for name, in := range tables {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(in))
			assert.ErrorIs(t, err, ErrMalformedDescriptor)
		})
	}
}
