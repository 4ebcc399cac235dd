package deepzoom

import (
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/bodgit/deepzoom/morton"
	"github.com/bodgit/deepzoom/pyramid"
	"github.com/bodgit/deepzoom/resample"
	"github.com/bodgit/deepzoom/tile"
)

// CollectionItem is a single image pyramid within a collection.
type CollectionItem struct {
	ID     int
	Source string
	Width  int
	Height int
}

// Position returns the grid position of the item, derived from its ID.
func (i CollectionItem) Position() (int, int) {
	column, row := morton.Position(uint64(i.ID))
	return int(column), int(row)
}

// Collection is a Deep Zoom collection. Every level of the collection
// pyramid packs a miniature of each item into shared tiles, item i taking
// the 2^level square cell at its Z-order position.
type Collection struct {
	MaxLevel   int
	TileSize   int
	TileFormat tile.Format
	Options    tile.Options
	Background color.Color

	path       string
	nextItemID int
	items      []CollectionItem
	logger     *log.Logger
	warnings   []error
}

// NewCollection returns an empty collection that will be saved to p.
func NewCollection(p string, c Config, logger *log.Logger) (*Collection, error) {
	background, err := ParseColor(c.Collection.BackgroundColor)
	if err != nil {
		return nil, err
	}

	col := &Collection{
		MaxLevel:   c.Collection.MaxLevel,
		TileSize:   c.Collection.TileSize,
		TileFormat: tile.ParseFormat(c.Collection.TileFormat),
		Options:    tile.Options{Quality: c.Collection.ImageQuality}.Clamp(),
		Background: background,
		path:       p,
		logger:     discardLogger(logger),
	}

	if err := col.validate(); err != nil {
		return nil, err
	}

	return col, nil
}

// OpenCollection reads the collection descriptor at p. The background color
// isn't stored in the descriptor so it is taken from c.
func OpenCollection(p string, c Config, logger *log.Logger) (*Collection, error) {
	r, err := open(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	col, err := NewCollection(p, c, logger)
	if err != nil {
		return nil, err
	}

	if err := col.decode(r); err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	if err := col.validate(); err != nil {
		return nil, err
	}

	return col, nil
}

func (c *Collection) validate() error {
	switch {
	case c.TileSize <= 0:
		return fmt.Errorf("%w: tile size %d", pyramid.ErrMalformedDescriptor, c.TileSize)
	case c.MaxLevel < 0 || c.MaxLevel > 30 || 1<<c.MaxLevel > c.TileSize:
		return fmt.Errorf("%w: max level %d doesn't fit tile size %d", pyramid.ErrInvalidLevel, c.MaxLevel, c.TileSize)
	}
	return nil
}

// Path returns where the collection descriptor is saved.
func (c *Collection) Path() string {
	return c.path
}

// Items returns a copy of the items in the order they were appended.
func (c *Collection) Items() []CollectionItem {
	return append([]CollectionItem(nil), c.items...)
}

// NextItemID returns the ID the next appended item will get.
func (c *Collection) NextItemID() int {
	return c.nextItemID
}

// Warnings returns the problems skipped over by the last Save.
func (c *Collection) Warnings() []error {
	return append([]error(nil), c.warnings...)
}

// Append adds the image pyramid whose descriptor is at source. Only the
// descriptor is read, tiles are not touched until Save.
func (c *Collection) Append(source string) (CollectionItem, error) {
	d, err := ReadDescriptor(source)
	if err != nil {
		return CollectionItem{}, err
	}

	item := CollectionItem{
		ID:     c.nextItemID,
		Source: source,
		Width:  d.Width,
		Height: d.Height,
	}
	c.items = append(c.items, item)
	c.nextItemID++

	return item, nil
}

// Save composes every item into the shared tiles and writes the
// descriptor. The items are left in place so Save can be called again, for
// example after appending more items.
func (c *Collection) Save() error {
	c.warnings = nil

	tiles := newSharedTiles(c)
	for _, item := range c.items {
		if err := c.compose(tiles, item); err != nil {
			return err
		}
	}

	return writeFile(c.path, c.encode)
}

func (c *Collection) warn(err error) {
	c.logger.Printf("Warning: %v\n", err)
	c.warnings = append(c.warnings, err)
}

func skippable(err error) bool {
	return errors.Is(err, tile.ErrDecode) || errors.Is(err, fs.ErrNotExist)
}

// compose folds the item from the finest level down, each level halving
// the contribution of the one before it.
func (c *Collection) compose(tiles *sharedTiles, item CollectionItem) error {
	d, err := ReadDescriptor(item.Source)
	if err != nil {
		return err
	}

	contribution, err := c.finest(item, d)
	if err != nil {
		if skippable(err) {
			c.warn(fmt.Errorf("skipped item %d: %w", item.ID, err))
			return nil
		}
		return err
	}

	column, row := item.Position()

	for level := c.MaxLevel; level >= 0; level-- {
		if level < c.MaxLevel {
			contribution = resample.Halve(contribution, resample.Default)
		}

		if err := tiles.paste(level, column, row, contribution); err != nil {
			if skippable(err) {
				c.warn(fmt.Errorf("skipped level %d of item %d: %w", level, item.ID, err))
				continue
			}
			return err
		}
	}

	return nil
}

// finest returns the contribution of the item at MaxLevel, which is the
// top-left tile of the matching level of its own pyramid. Pyramids with
// fewer levels contribute their full resolution tile.
func (c *Collection) finest(item CollectionItem, d *pyramid.Descriptor) (image.Image, error) {
	level := min(c.MaxLevel, d.MaxLevel())

	m, err := decodeFile(TilePath(item.Source, level, 0, 0, d.TileFormat))
	if err != nil {
		return nil, err
	}

	w, h, err := d.Dimensions(level)
	if err != nil {
		return nil, err
	}

	// Some producers write oversized tiles for the low levels
	if b := m.Bounds(); b.Dx() != w || b.Dy() != h {
		c.logger.Printf("Resizing level %d tile of item %d from %dx%d to %dx%d\n", level, item.ID, b.Dx(), b.Dy(), w, h)
		return resample.Resize(m, w, h, resample.Default), nil
	}

	return m, nil
}

// sharedTiles tracks which collection tiles exist. Tiles are read, pasted
// into and written back for every item at every level so only one Save
// may run against a collection at a time.
type sharedTiles struct {
	c        *Collection
	existing map[string]bool
}

func newSharedTiles(c *Collection) *sharedTiles {
	return &sharedTiles{
		c:        c,
		existing: make(map[string]bool),
	}
}

func (s *sharedTiles) exists(file string) bool {
	if ok, seen := s.existing[file]; seen {
		return ok
	}
	_, err := os.Stat(file)
	s.existing[file] = err == nil
	return err == nil
}

func (s *sharedTiles) load(file string) (*image.RGBA, error) {
	if !s.exists(file) {
		return resample.Fill(s.c.TileSize, s.c.TileSize, s.c.Background), nil
	}

	m, err := decodeFile(file)
	if err != nil {
		return nil, err
	}

	dst := resample.Fill(s.c.TileSize, s.c.TileSize, s.c.Background)
	resample.Paste(dst, m, image.Point{}, dst.Bounds())
	return dst, nil
}

func (s *sharedTiles) paste(level, column, row int, m image.Image) error {
	size := 1 << level
	perTile := s.c.TileSize / size

	// Same as column*size/TileSize when size divides TileSize, but never
	// lets two items share a cell when it doesn't
	file := TilePath(s.c.path, level, column/perTile, row/perTile, s.c.TileFormat)

	dst, err := s.load(file)
	if err != nil {
		return err
	}

	at := image.Pt(column%perTile*size, row%perTile*size)
	resample.Paste(dst, m, at, image.Rectangle{Min: at, Max: at.Add(image.Pt(size, size))})

	if err := writeFile(file, func(w io.Writer) error {
		return tile.Encode(w, dst, s.c.TileFormat, s.c.Options)
	}); err != nil {
		return err
	}
	s.existing[file] = true

	return nil
}

type xmlCollection struct {
	XMLName    xml.Name `xml:"http://schemas.microsoft.com/deepzoom/2008 Collection"`
	MaxLevel   string   `xml:"MaxLevel,attr"`
	TileSize   string   `xml:"TileSize,attr"`
	Format     string   `xml:"Format,attr"`
	Quality    string   `xml:"Quality,attr"`
	NextItemID string   `xml:"NextItemId,attr"`
	Items      xmlItems `xml:"Items"`
}

// Matches a Collection element in any namespace
type xmlCollectionAnyNS struct {
	XMLName    xml.Name `xml:"Collection"`
	MaxLevel   string   `xml:"MaxLevel,attr"`
	TileSize   string   `xml:"TileSize,attr"`
	Format     string   `xml:"Format,attr"`
	Quality    string   `xml:"Quality,attr"`
	NextItemID string   `xml:"NextItemId,attr"`
	Items      xmlItems `xml:"Items"`
}

type xmlItems struct {
	Items []xmlItem `xml:"I"`
}

type xmlItem struct {
	ID     string        `xml:"Id,attr"`
	N      string        `xml:"N,attr"`
	Source string        `xml:"Source,attr"`
	Size   *pyramid.Size `xml:"Size"`
}

func (c *Collection) encode(w io.Writer) error {
	doc := xmlCollection{
		MaxLevel:   strconv.Itoa(c.MaxLevel),
		TileSize:   strconv.Itoa(c.TileSize),
		Format:     string(c.TileFormat),
		Quality:    strconv.FormatFloat(c.Options.Quality, 'g', -1, 64),
		NextItemID: strconv.Itoa(c.nextItemID),
	}

	for _, item := range c.items {
		size := pyramid.NewSize(item.Width, item.Height)
		doc.Items.Items = append(doc.Items.Items, xmlItem{
			ID:     strconv.Itoa(item.ID),
			N:      strconv.Itoa(item.ID),
			Source: item.Source,
			Size:   &size,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(doc)
}

func (c *Collection) decode(r io.Reader) error {
	var doc xmlCollectionAnyNS
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("%w: %v", pyramid.ErrMalformedDescriptor, err)
	}

	var err error
	if c.MaxLevel, err = pyramid.Attr("MaxLevel", doc.MaxLevel); err != nil {
		return err
	}
	if c.TileSize, err = pyramid.Attr("TileSize", doc.TileSize); err != nil {
		return err
	}
	if doc.Format == "" {
		return fmt.Errorf("%w: missing Format", pyramid.ErrMalformedDescriptor)
	}
	c.TileFormat = tile.Format(strings.ToLower(doc.Format))

	if doc.Quality != "" {
		q, err := strconv.ParseFloat(doc.Quality, 64)
		if err != nil {
			return fmt.Errorf("%w: Quality: %v", pyramid.ErrMalformedDescriptor, err)
		}
		c.Options.Quality = min(max(q, 0), 1)
	}

	c.items = c.items[:0]
	c.nextItemID = 0
	for _, x := range doc.Items.Items {
		id, err := pyramid.Attr("Id", x.ID)
		if err != nil {
			return err
		}
		if x.Size == nil {
			return fmt.Errorf("%w: item %d missing Size", pyramid.ErrMalformedDescriptor, id)
		}
		w, h, err := x.Size.Ints()
		if err != nil {
			return err
		}
		c.items = append(c.items, CollectionItem{
			ID:     id,
			Source: x.Source,
			Width:  w,
			Height: h,
		})
		c.nextItemID = max(c.nextItemID, id+1)
	}

	// IDs are never reused, even those of removed items
	if doc.NextItemID != "" {
		next, err := pyramid.Attr("NextItemId", doc.NextItemID)
		if err != nil {
			return err
		}
		c.nextItemID = max(c.nextItemID, next)
	}

	return nil
}
