// Package prefetch implements a single-slot predictive cache in front of a
// slow raster source.
//
// A Cache serves each Request synchronously from its cached slot plus
// whatever the slot is missing, and then starts one background task that
// guesses the next region and fetches it into the slot. The task is joined at
// the start of the next Request, so at most one fetch is ever in flight and
// the slot is never read while it is being replaced.
//
// The access pattern the predictor understands is a quasi raster scan: square
// tiles left to right and top to bottom with a truncated last column, or
// full-width stripes. Any other order is served correctly but gains nothing.
package prefetch

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pspoerri/rasterprefetch/internal/logger"
	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

// ErrClosed is returned by Request after Close.
var ErrClosed = errors.New("prefetch cache closed")

// Options configures a Cache. The zero value uses RasterScan with no size
// limit and no observer.
type Options struct {
	Predictor Predictor

	// MaxPrefetchBytes drops predictions whose buffer would be larger than
	// this many bytes. Zero means unlimited.
	MaxPrefetchBytes int64

	Observer Observer
}

// entry is the single cached slot. An empty region means no data.
type entry struct {
	region region.Rect
	buf    *raster.Buffer
}

// task is the handle of the background prefetch. err is valid once done is
// closed.
type task struct {
	done chan struct{}
	err  error
}

func (t *task) wait() error {
	<-t.done
	return t.err
}

// Cache is a predictive single-slot cache. Request and Close must be called
// from a single goroutine; Snapshot may be called from any goroutine.
type Cache struct {
	src       *lockedSource
	extent    region.Rect
	channels  int
	predictor Predictor
	maxBytes  int64
	obs       Observer

	// Owned by the caller's goroutine, except that entry is handed to the
	// background task between spawn and join.
	entry    entry
	previous region.Rect
	current  region.Rect
	pending  *task
	closed   bool

	mu      sync.Mutex
	metrics Metrics
}

// New returns a cache reading from src. src must outlive the cache.
func New(src Source, opts Options) *Cache {
	p := opts.Predictor
	if p == nil {
		p = RasterScan{}
	}
	return &Cache{
		src:       newLockedSource(src),
		extent:    src.Extent(),
		channels:  src.Channels(),
		predictor: p,
		maxBytes:  opts.MaxPrefetchBytes,
		obs:       opts.Observer,
	}
}

// Extent returns the extent of the underlying source.
func (c *Cache) Extent() region.Rect { return c.extent }

// Channels returns the channel count of the underlying source.
func (c *Cache) Channels() int { return c.channels }

// Request returns a new buffer covering r. The caller owns the buffer.
//
// A zero-area request returns an empty buffer without touching the source,
// the history or the background task. A source error from this request's
// fetches, or from the previous background prefetch, is returned as is;
// no partial buffer is returned with it.
func (c *Cache) Request(r region.Rect) (*raster.Buffer, error) {
	if c.closed {
		return nil, ErrClosed
	}
	if r.Empty() {
		return raster.NewBuffer(r, c.channels), nil
	}
	start := time.Now()

	if err := c.join(); err != nil {
		return nil, err
	}

	missing, delta := missingRegions(r, c.entry.region)
	c.mu.Lock()
	c.metrics.add(delta)
	c.mu.Unlock()
	if c.obs != nil {
		c.obs.ObserveGuesses(delta)
	}
	logger.Debug("prefetch: serving request",
		"region", r, "cached", c.entry.region, "missing", len(missing),
		"good", delta.GoodGuesses, "missed", delta.MissedGuesses, "extra", delta.ExtraGuesses)

	out := raster.NewBuffer(r, c.channels)
	for _, m := range missing {
		buf, err := c.fetch(FetchForeground, m)
		if err != nil {
			return nil, err
		}
		if _, err := out.CopyFrom(buf); err != nil {
			return nil, err
		}
		raster.PutBuffer(buf)
	}
	if c.entry.buf != nil {
		if _, err := out.CopyFrom(c.entry.buf); err != nil {
			return nil, err
		}
	}

	c.previous, c.current = c.current, r
	c.spawn(c.previous, c.current)

	if c.obs != nil {
		c.obs.ObserveRequest(region.Area(r), time.Since(start))
	}
	return out, nil
}

// Close waits for the outstanding prefetch and releases the cached slot.
// It returns the prefetch error, if any. Snapshot keeps working after Close.
func (c *Cache) Close() error {
	if c.closed {
		return nil
	}
	err := c.join()
	c.closed = true
	raster.PutBuffer(c.entry.buf)
	c.entry = entry{}
	logger.Debug("prefetch: closed", "metrics", c.Snapshot())
	return err
}

// Snapshot returns the current metrics.
func (c *Cache) Snapshot() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.metrics
}

func (c *Cache) join() error {
	t := c.pending
	if t == nil {
		return nil
	}
	c.pending = nil

	start := time.Now()
	err := t.wait()
	if c.obs != nil {
		c.obs.ObserveJoin(time.Since(start))
	}
	logger.Debug("prefetch: joined background task", "wait_ms", logger.Duration(start), "cached", c.entry.region)
	return err
}

func (c *Cache) spawn(previous, current region.Rect) {
	t := &task{done: make(chan struct{})}
	c.pending = t
	go func() {
		defer close(t.done)
		t.err = c.prefetch(previous, current)
	}()
}

// prefetch runs on the background goroutine. It owns c.entry until the task
// is joined.
func (c *Cache) prefetch(previous, current region.Rect) error {
	next, ok := c.predictor.Predict(previous, current, c.extent)
	if ok && c.maxBytes > 0 {
		if size := raster.Bytes(next, c.channels); size > c.maxBytes {
			logger.Debug("prefetch: prediction exceeds size limit", "region", next, "bytes", size, "max", c.maxBytes)
			ok = false
		}
	}
	if !ok {
		logger.Debug("prefetch: no prediction, resetting slot", "previous", previous, "current", current)
		c.reset()
		return nil
	}

	logger.Debug("prefetch: fetching prediction", "region", next)
	buf, err := c.fetch(FetchPrefetch, next)
	if err != nil {
		c.reset()
		return fmt.Errorf("prefetch: %w", err)
	}
	raster.PutBuffer(c.entry.buf)
	c.entry = entry{region: next, buf: buf}
	return nil
}

func (c *Cache) reset() {
	raster.PutBuffer(c.entry.buf)
	c.entry = entry{}
}

func (c *Cache) fetch(kind FetchKind, r region.Rect) (*raster.Buffer, error) {
	start := time.Now()
	buf, err := c.src.fetch(r)
	if c.obs != nil && err == nil {
		c.obs.ObserveFetch(kind, region.Area(r), time.Since(start))
	}
	return buf, err
}
