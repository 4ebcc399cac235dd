package deepzoom

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

var errBadColor = errors.New("deepzoom: invalid color")

// ParseColor parses "#RGB", "#RRGGBB", "#RRGGBBAA" or an SVG color name
// such as "black".
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)

	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}

	hex := strings.TrimPrefix(s, "#")

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errBadColor, s)
	}

	switch len(hex) {
	case 3: // RGB
		return color.RGBA{
			R: uint8(v>>8&0xf) * 17,
			G: uint8(v>>4&0xf) * 17,
			B: uint8(v&0xf) * 17,
			A: 0xff,
		}, nil
	case 6: // RRGGBB
		return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, nil
	case 8: // RRGGBBAA
		return color.NRGBA{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
	}

	return nil, fmt.Errorf("%w: %q", errBadColor, s)
}
