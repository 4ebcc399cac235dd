package pyramid

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bodgit/deepzoom/tile"
)

// Namespace is the XML namespace of Deep Zoom descriptors.
const Namespace = "http://schemas.microsoft.com/deepzoom/2008"

type xmlImage struct {
	XMLName  xml.Name `xml:"http://schemas.microsoft.com/deepzoom/2008 Image"`
	TileSize string   `xml:"TileSize,attr"`
	Overlap  string   `xml:"Overlap,attr"`
	Format   string   `xml:"Format,attr"`
	Size     Size     `xml:"Size"`
}

// Matches an Image element in any namespace
type xmlImageAnyNS struct {
	XMLName  xml.Name `xml:"Image"`
	TileSize string   `xml:"TileSize,attr"`
	Overlap  string   `xml:"Overlap,attr"`
	Format   string   `xml:"Format,attr"`
	Size     *Size    `xml:"Size"`
}

// Size is the markup form of a Size element.
type Size struct {
	Width  string `xml:"Width,attr"`
	Height string `xml:"Height,attr"`
}

// NewSize returns the markup form of a width and height. It is shared with
// the collection descriptor.
func NewSize(width, height int) Size {
	return Size{
		Width:  strconv.Itoa(width),
		Height: strconv.Itoa(height),
	}
}

// Ints parses the width and height back.
func (s Size) Ints() (int, int, error) {
	w, err := Attr("Width", s.Width)
	if err != nil {
		return 0, 0, err
	}
	h, err := Attr("Height", s.Height)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

// Attr parses a required integer attribute.
func Attr(name, value string) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrMalformedDescriptor, name)
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedDescriptor, name, err)
	}
	return i, nil
}

// Encode writes the descriptor to w.
func Encode(w io.Writer, d *Descriptor) error {
	if err := d.Validate(); err != nil {
		return err
	}

	doc := xmlImage{
		TileSize: strconv.Itoa(d.TileSize),
		Overlap:  strconv.Itoa(d.TileOverlap),
		Format:   string(d.TileFormat),
		Size:     NewSize(d.Width, d.Height),
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(doc)
}

// Decode reads a descriptor from r.
func Decode(r io.Reader) (*Descriptor, error) {
	var doc xmlImageAnyNS
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDescriptor, err)
	}

	if doc.Size == nil {
		return nil, fmt.Errorf("%w: missing Size", ErrMalformedDescriptor)
	}

	width, height, err := doc.Size.Ints()
	if err != nil {
		return nil, err
	}

	tileSize, err := Attr("TileSize", doc.TileSize)
	if err != nil {
		return nil, err
	}

	overlap, err := Attr("Overlap", doc.Overlap)
	if err != nil {
		return nil, err
	}

	if doc.Format == "" {
		return nil, fmt.Errorf("%w: missing Format", ErrMalformedDescriptor)
	}

	return New(width, height, tileSize, overlap, tile.Format(strings.ToLower(doc.Format)))
}
