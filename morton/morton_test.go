package morton

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Bit at a time reference
func slowPosition(i uint64) (uint32, uint32) {
	var column, row uint32
	for b := 0; b < Bits; b++ {
		column |= uint32(i>>(2*b)&1) << b
		row |= uint32(i>>(2*b+1)&1) << b
	}
	return column, row
}

func TestPosition(t *testing.T) {
	tables := []struct {
		index       uint64
		column, row uint32
	}{
		{0, 0, 0},
		{1, 1, 0},
		{2, 0, 1},
		{3, 1, 1},
		{4, 2, 0},
		{5, 3, 0},
		{6, 2, 1},
		{8, 0, 2},
		{9, 1, 2},
		{15, 3, 3},
		{16, 4, 0},
		{63, 7, 7},
		{0xffffffffffffffff, 0xffffffff, 0xffffffff},
		{0x5555555555555555, 0xffffffff, 0},
		{0xaaaaaaaaaaaaaaaa, 0, 0xffffffff},
	}

	for _, table := range tables {
		column, row := Position(table.index)
		assert.Equal(t, table.column, column, "index %d", table.index)
		assert.Equal(t, table.row, row, "index %d", table.index)
		assert.Equal(t, table.index, Index(table.column, table.row))
	}
}

func TestMatchesReference(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		index := r.Uint64()
		column, row := Position(index)
		wantColumn, wantRow := slowPosition(index)
		assert.Equal(t, wantColumn, column)
		assert.Equal(t, wantRow, row)
	}
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 10000; i++ {
		column := uint32(r.Int63n(1 << 20))
		row := uint32(r.Int63n(1 << 20))

		index := Index(column, row)
		c, rw := Position(index)
		assert.Equal(t, column, c)
		assert.Equal(t, row, rw)
		assert.Equal(t, index, Index(Position(index)))
	}

	// Every index below 2^16 maps to a distinct position and back
	seen := make(map[[2]uint32]struct{})
	for i := uint64(0); i < 1<<16; i++ {
		c, rw := Position(i)
		assert.Less(t, c, uint32(256))
		assert.Less(t, rw, uint32(256))
		seen[[2]uint32{c, rw}] = struct{}{}
		if Index(c, rw) != i {
			t.Fatalf("index %d did not round trip", i)
		}
	}
	assert.Len(t, seen, 1<<16)
}
