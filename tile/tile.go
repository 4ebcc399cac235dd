/*
Package tile implements encoding and decoding of individual pyramid tiles.

Tiles are stored either as JPEG, where the quality is given as a fraction
between 0 and 1, or as lossless PNG. PNG tiles can optionally be reduced to a
palette of at most 256 colors which usually shrinks flat artwork
considerably.
*/
package tile

import (
	"strings"
)

// Format is the file format of a tile. The value is also the file extension.
type Format string

// Supported tile formats
const (
	JPG Format = "jpg"
	PNG Format = "png"
)

// DefaultFormat is used whenever an unrecognized format is requested
const DefaultFormat = JPG

const (
	// DefaultQuality is the JPEG quality used when none is given
	DefaultQuality = 0.8
	maxColors      = 256
)

// ParseFormat returns the format matching s, or DefaultFormat.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "png":
		return PNG
	case "jpg", "jpeg":
		return JPG
	}
	return DefaultFormat
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	return f == JPG || f == PNG
}

func (f Format) String() string {
	return string(f)
}

// Options control how tiles are encoded.
type Options struct {
	// Quality is the JPEG quality between 0 and 1
	Quality float64
	// Colors, if between 2 and 256, reduces PNG tiles to a palette
	Colors int
}

// Clamp returns a copy of o with the quality forced into [0, 1].
func (o Options) Clamp() Options {
	o.Quality = min(max(o.Quality, 0), 1)
	if o.Colors > maxColors {
		o.Colors = maxColors
	}
	return o
}
