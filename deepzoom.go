/*
Package deepzoom converts images into Deep Zoom pyramids and composes
pyramids into Deep Zoom collections.

A pyramid is written as a descriptor, for example image.dzi, next to a
directory image_files containing one directory per level, each holding the
tiles of that level named <column>_<row>.<format>. Collections use the same
layout with a .dzc descriptor.
*/
package deepzoom

import (
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bodgit/deepzoom/tile"
)

const filesSuffix = "_files"

// ErrDecode is returned, wrapped, when a source image or tile cannot be
// decoded.
var ErrDecode = tile.ErrDecode

func discardLogger(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return logger
}

// FilesPath returns the directory holding the tiles of the descriptor at p.
func FilesPath(p string) string {
	if isURL(p) {
		return strings.TrimSuffix(p, path.Ext(p)) + filesSuffix
	}
	return strings.TrimSuffix(p, filepath.Ext(p)) + filesSuffix
}

// LevelPath returns the directory holding the tiles of one level.
func LevelPath(p string, level int) string {
	if isURL(p) {
		return FilesPath(p) + "/" + strconv.Itoa(level)
	}
	return filepath.Join(FilesPath(p), strconv.Itoa(level))
}

// TilePath returns the location of a single tile.
func TilePath(p string, level, column, row int, f tile.Format) string {
	name := fmt.Sprintf("%d_%d.%s", column, row, f)
	if isURL(p) {
		return LevelPath(p, level) + "/" + name
	}
	return filepath.Join(LevelPath(p, level), name)
}

// Remove deletes the descriptor at p along with all of its tiles.
func Remove(p string) error {
	if err := os.Remove(p); err != nil {
		return err
	}
	return os.RemoveAll(FilesPath(p))
}

func writeFile(file string, fn func(io.Writer) error) (err error) {
	if err = os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}

	f, err := os.Create(file)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	return fn(f)
}
