/*
Package morton maps between a linear index and a position on a two
dimensional grid by interleaving the bits of the column and row, also known
as a Z-order curve.

Bit i of the column is stored in bit 2i of the index and bit i of the row in
bit 2i+1. Both directions handle 32 bits per axis so every column and row
that fits in a uint32 round trips exactly.
*/
package morton

// Bits is the number of bits per axis.
const Bits = 32

// spread moves bit i of v to bit 2i
func spread(v uint32) uint64 {
	x := uint64(v)
	x = (x | x<<16) & 0x0000ffff0000ffff
	x = (x | x<<8) & 0x00ff00ff00ff00ff
	x = (x | x<<4) & 0x0f0f0f0f0f0f0f0f
	x = (x | x<<2) & 0x3333333333333333
	x = (x | x<<1) & 0x5555555555555555
	return x
}

// compact is the inverse of spread, bit 2i of x moves to bit i
func compact(x uint64) uint32 {
	x &= 0x5555555555555555
	x = (x | x>>1) & 0x3333333333333333
	x = (x | x>>2) & 0x0f0f0f0f0f0f0f0f
	x = (x | x>>4) & 0x00ff00ff00ff00ff
	x = (x | x>>8) & 0x0000ffff0000ffff
	x = (x | x>>16) & 0x00000000ffffffff
	return uint32(x)
}

// Position returns the column and row for index i. Even bits make up the
// column and odd bits the row.
func Position(i uint64) (column, row uint32) {
	return compact(i), compact(i >> 1)
}

// Index returns the index of the given column and row.
func Index(column, row uint32) uint64 {
	return spread(column) | spread(row)<<1
}
