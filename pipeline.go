package deepzoom

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// CollectionCreator creates Deep Zoom collections.
type CollectionCreator struct {
	// Workers is the number of images tiled at once by CreateFromImages
	Workers int

	config Config
	logger *log.Logger
}

// NewCollectionCreator returns a CollectionCreator using c for both the
// item pyramids and the collection.
func NewCollectionCreator(c Config, logger *log.Logger) *CollectionCreator {
	return &CollectionCreator{
		Workers: runtime.NumCPU(),
		config:  c,
		logger:  discardLogger(logger),
	}
}

// Create builds a collection at destination from existing image pyramid
// descriptors, in the order given.
func (cc *CollectionCreator) Create(images []string, destination string) (*Collection, error) {
	col, err := NewCollection(destination, cc.config, cc.logger)
	if err != nil {
		return nil, err
	}

	for _, image := range images {
		if _, err := col.Append(image); err != nil {
			return nil, err
		}
	}

	if err := col.Save(); err != nil {
		return nil, err
	}

	return col, nil
}

// ItemsPath returns the directory CreateFromImages writes the item
// pyramids of the collection at p to.
func ItemsPath(p string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + "_images"
}

type job struct {
	source      string
	destination string
}

func itemDestination(dir string, i int, source string) string {
	base := path.Base(filepath.ToSlash(source))
	if j := strings.IndexAny(base, "?#"); j >= 0 {
		base = base[:j]
	}
	return filepath.Join(dir, fmt.Sprintf("%d_%s.dzi", i, strings.TrimSuffix(base, path.Ext(base))))
}

func (cc *CollectionCreator) emitJobs(ctx context.Context, jobs []job) (<-chan job, <-chan error) {
	out := make(chan job)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		for _, j := range jobs {
			select {
			case out <- j:
			case <-ctx.Done():
				errc <- errors.New("tiling cancelled")
				return
			}
		}
	}()
	return out, errc
}

func (cc *CollectionCreator) tileWorker(ctx context.Context, ic *ImageCreator, in <-chan job) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for j := range in {
			if ctx.Err() != nil {
				return
			}
			if _, err := ic.Create(PathSource(j.source), j.destination); err != nil {
				errc <- fmt.Errorf("%s: %w", j.source, err)
				return
			}
		}
	}()
	return errc
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// CreateFromImages tiles every source image into its own pyramid under
// ItemsPath(destination), several at a time, and then composes them into a
// collection at destination. Items get IDs in the order of sources.
func (cc *CollectionCreator) CreateFromImages(ctx context.Context, sources []string, destination string) (*Collection, error) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	dir := ItemsPath(destination)
	jobs := make([]job, len(sources))
	for i, source := range sources {
		jobs[i] = job{source: source, destination: itemDestination(dir, i, source)}
	}

	ic := NewImageCreator(cc.config, cc.logger)

	var errcList []<-chan error

	in, errc := cc.emitJobs(ctx, jobs)
	errcList = append(errcList, errc)

	for i := 0; i < max(cc.Workers, 1); i++ {
		errcList = append(errcList, cc.tileWorker(ctx, ic, in))
	}

	if err := waitForPipeline(errcList...); err != nil {
		return nil, err
	}

	images := make([]string, len(jobs))
	for i, j := range jobs {
		images[i] = j.destination
	}

	return cc.Create(images, destination)
}
