package sink

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	atomicfile "github.com/natefinch/atomic"
	"golang.org/x/sync/errgroup"

	"github.com/pspoerri/rasterprefetch/internal/encode"
	"github.com/pspoerri/rasterprefetch/internal/logger"
	"github.com/pspoerri/rasterprefetch/internal/raster"
)

// TileDir encodes each region as an image file named after its pixel
// origin, <dir>/<x>_<y><ext>. Encoding and writing run on a worker pool so
// the producer only blocks when all workers are busy.
type TileDir struct {
	dir  string
	enc  encode.Encoder
	rng  encode.Range
	jobs chan *raster.Buffer
	g    *errgroup.Group
	ctx  context.Context

	regions atomic.Int64
	bytes   atomic.Int64
	closed  bool

	errOnce sync.Once
	err     error
}

// NewTileDir creates dir and starts the encoding workers. workers <= 0 uses
// GOMAXPROCS.
func NewTileDir(dir string, enc encode.Encoder, rng encode.Range, workers int) (*TileDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, ctx := errgroup.WithContext(context.Background())
	td := &TileDir{
		dir:  dir,
		enc:  enc,
		rng:  rng,
		jobs: make(chan *raster.Buffer, workers*2),
		g:    g,
		ctx:  ctx,
	}
	for range workers {
		g.Go(td.work)
	}
	return td, nil
}

func (td *TileDir) work() error {
	for b := range td.jobs {
		if td.ctx.Err() != nil {
			raster.PutBuffer(b)
			return nil
		}
		if err := td.writeTile(b); err != nil {
			td.errOnce.Do(func() { td.err = err })
			return err
		}
	}
	return nil
}

func (td *TileDir) writeTile(b *raster.Buffer) error {
	defer raster.PutBuffer(b)
	data, err := encode.EncodeBuffer(td.enc, b, td.rng)
	if err != nil {
		return err
	}
	name := filepath.Join(td.dir, td.Name(b.Region.X(), b.Region.Y()))
	if err := atomicfile.WriteFile(name, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing tile %s: %w", name, err)
	}
	td.regions.Add(1)
	td.bytes.Add(int64(len(data)))
	logger.Debug("tile written", "path", name, "bytes", len(data))
	return nil
}

// Name returns the file name of the region with origin (x, y).
func (td *TileDir) Name(x, y int) string {
	return fmt.Sprintf("%d_%d%s", x, y, td.enc.FileExtension())
}

// Write queues b for encoding. It fails once a worker has failed.
func (td *TileDir) Write(ctx context.Context, b *raster.Buffer) error {
	select {
	case td.jobs <- b:
		return nil
	case <-td.ctx.Done():
		// The group context is only cancelled by a failing worker, which
		// records its error first.
		raster.PutBuffer(b)
		return td.err
	case <-ctx.Done():
		raster.PutBuffer(b)
		return ctx.Err()
	}
}

// Close waits for queued tiles and returns the first worker error.
func (td *TileDir) Close() error {
	if td.closed {
		return nil
	}
	td.closed = true
	close(td.jobs)
	return td.g.Wait()
}

func (td *TileDir) Stats() Stats {
	return Stats{Regions: td.regions.Load(), Bytes: td.bytes.Load()}
}
