package deepzoom

import (
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/bodgit/deepzoom/pyramid"
	"github.com/bodgit/deepzoom/tile"
)

var httpClient = &http.Client{
	Timeout: 60 * time.Second,
}

var errNoSource = errors.New("deepzoom: empty source")

func isURL(p string) bool {
	u, err := url.Parse(p)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// open returns a reader for a local file or an http(s) URL. URLs are
// fetched exactly once.
func open(p string) (io.ReadCloser, error) {
	if !isURL(p) {
		return os.Open(p)
	}

	resp, err := httpClient.Get(p)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound, http.StatusGone:
		resp.Body.Close()
		return nil, &fs.PathError{Op: "get", Path: p, Err: fs.ErrNotExist}
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("get %s: %s", p, resp.Status)
	}
}

func decodeFile(p string) (image.Image, error) {
	r, err := open(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	m, _, err := tile.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return m, nil
}

// ReadDescriptor reads an image pyramid descriptor from a file or URL.
func ReadDescriptor(p string) (*pyramid.Descriptor, error) {
	r, err := open(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	d, err := pyramid.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}
	return d, nil
}

// Source is the image a pyramid is created from, either a bitmap already
// in memory or the path or URL of an encoded image.
type Source struct {
	image image.Image
	path  string
}

// ImageSource returns a Source for m.
func ImageSource(m image.Image) Source {
	return Source{image: m}
}

// PathSource returns a Source for the image at a path or URL.
func PathSource(p string) Source {
	return Source{path: p}
}

// Image returns the bitmap, decoding it first if necessary.
func (s Source) Image() (image.Image, error) {
	switch {
	case s.image != nil:
		return s.image, nil
	case s.path != "":
		return decodeFile(s.path)
	}
	return nil, errNoSource
}

func (s Source) String() string {
	if s.image != nil {
		b := s.image.Bounds()
		return fmt.Sprintf("bitmap %dx%d", b.Dx(), b.Dy())
	}
	return s.path
}
