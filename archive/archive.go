/*
Package archive stores finished image pyramids in a single SQLite database so
they can be copied or served without thousands of small files.

Each pyramid is stored under a name with its descriptor. Tiles are stored
once per distinct content, which helps with the flat background tiles that
are common at the edges of a pyramid.
*/
package archive

import (
	"bytes"
	"crypto/sha1"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/deepzoom"
	"github.com/bodgit/deepzoom/pyramid"
	_ "github.com/mattn/go-sqlite3" // register
)

var errNotFound = errors.New("archive: no such pyramid")

// Archive is a SQLite database of image pyramids.
type Archive struct {
	db *sql.DB
}

// Open opens or creates the archive in file.
func Open(file string) (*Archive, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_foreign_keys=on", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"CREATE TABLE IF NOT EXISTS pyramid (id INTEGER PRIMARY KEY NOT NULL, name TEXT NOT NULL UNIQUE, descriptor BLOB NOT NULL)",
		"CREATE TABLE IF NOT EXISTS blob (id INTEGER PRIMARY KEY NOT NULL, sha1 TEXT NOT NULL UNIQUE, data BLOB NOT NULL)",
		"CREATE TABLE IF NOT EXISTS tile (pyramid_id INTEGER NOT NULL, level INTEGER NOT NULL, col INTEGER NOT NULL, row INTEGER NOT NULL, blob_id INTEGER NOT NULL, PRIMARY KEY(pyramid_id, level, col, row), FOREIGN KEY(pyramid_id) REFERENCES pyramid(id) ON DELETE CASCADE, FOREIGN KEY(blob_id) REFERENCES blob(id))",
	} {
		if _, err = db.Exec(stmt); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &Archive{
		db: db,
	}, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Name returns the name a descriptor is stored under, its base name
// without the extension.
func Name(descriptor string) string {
	base := filepath.Base(descriptor)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

type querier interface {
	Exec(string, ...interface{}) (sql.Result, error)
	QueryRow(string, ...interface{}) *sql.Row
}

func addBlob(q querier, b []byte) (int64, error) {
	sha := fmt.Sprintf("%X", sha1.Sum(b))

	var id int64
	switch err := q.QueryRow("SELECT id FROM blob WHERE sha1 = ?", sha).Scan(&id); err {
	case sql.ErrNoRows:
		result, err := q.Exec("INSERT INTO blob (sha1, data) VALUES (?, ?)", sha, b)
		if err != nil {
			return 0, err
		}
		return result.LastInsertId()
	case nil:
		return id, nil
	default:
		return 0, err
	}
}

// Pack adds the pyramid whose descriptor is at file, replacing any pyramid
// already stored under the same name.
func (a *Archive) Pack(file string) (err error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	d, err := pyramid.Decode(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	name := Name(file)
	if _, err = tx.Exec("DELETE FROM pyramid WHERE name = ?", name); err != nil {
		return err
	}

	result, err := tx.Exec("INSERT INTO pyramid (name, descriptor) VALUES (?, ?)", name, raw)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	for level := 0; level < d.NumLevels(); level++ {
		tiles, err := d.Tiles(level)
		if err != nil {
			return err
		}
		for _, p := range tiles {
			b, err := os.ReadFile(deepzoom.TilePath(file, level, p.X, p.Y, d.TileFormat))
			if err != nil {
				return err
			}

			blob, err := addBlob(tx, b)
			if err != nil {
				return err
			}

			if _, err = tx.Exec("INSERT INTO tile (pyramid_id, level, col, row, blob_id) VALUES (?, ?, ?, ?, ?)", id, level, p.X, p.Y, blob); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// Names returns the names of all stored pyramids.
func (a *Archive) Names() ([]string, error) {
	rows, err := a.db.Query("SELECT name FROM pyramid ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Descriptor returns the descriptor of the named pyramid.
func (a *Archive) Descriptor(name string) (*pyramid.Descriptor, error) {
	var raw []byte
	switch err := a.db.QueryRow("SELECT descriptor FROM pyramid WHERE name = ?", name).Scan(&raw); err {
	case sql.ErrNoRows:
		return nil, fmt.Errorf("%w: %s", errNotFound, name)
	case nil:
		return pyramid.Decode(bytes.NewReader(raw))
	default:
		return nil, err
	}
}

// Tile returns the encoded tile, or nil if the pyramid has no such tile.
func (a *Archive) Tile(name string, level, column, row int) ([]byte, error) {
	var b []byte
	switch err := a.db.QueryRow("SELECT b.data FROM tile AS t JOIN pyramid AS p ON t.pyramid_id = p.id JOIN blob AS b ON t.blob_id = b.id WHERE p.name = ? AND t.level = ? AND t.col = ? AND t.row = ?", name, level, column, row).Scan(&b); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return b, nil
	default:
		return nil, err
	}
}

// Unpack writes the named pyramid back out with its descriptor at file.
func (a *Archive) Unpack(name, file string) error {
	var raw []byte
	switch err := a.db.QueryRow("SELECT descriptor FROM pyramid WHERE name = ?", name).Scan(&raw); err {
	case sql.ErrNoRows:
		return fmt.Errorf("%w: %s", errNotFound, name)
	case nil:
	default:
		return err
	}

	d, err := pyramid.Decode(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	for level := 0; level < d.NumLevels(); level++ {
		tiles, err := d.Tiles(level)
		if err != nil {
			return err
		}
		for _, p := range tiles {
			b, err := a.Tile(name, level, p.X, p.Y)
			if err != nil {
				return err
			}
			if b == nil {
				return fmt.Errorf("archive: %s is missing tile %d/%d_%d", name, level, p.X, p.Y)
			}
			if err := writeFile(deepzoom.TilePath(file, level, p.X, p.Y, d.TileFormat), b); err != nil {
				return err
			}
		}
	}

	return writeFile(file, raw)
}

func writeFile(file string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return err
	}
	return os.WriteFile(file, b, 0o644)
}

// Remove deletes the named pyramid. Blobs are left behind.
func (a *Archive) Remove(name string) error {
	result, err := a.db.Exec("DELETE FROM pyramid WHERE name = ?", name)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", errNotFound, name)
	}
	return nil
}
