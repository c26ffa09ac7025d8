package sink

import (
	"context"
	"sync"

	"github.com/pspoerri/rasterprefetch/internal/cog"
	"github.com/pspoerri/rasterprefetch/internal/raster"
)

// TIFF assembles output regions into a tiled GeoTIFF.
type TIFF struct {
	mu    sync.Mutex
	w     *cog.Writer
	stats Stats
}

// NewTIFF creates path sized to opts.Extent.
func NewTIFF(path string, opts Options) (*TIFF, error) {
	w, err := cog.Create(path, opts.Extent.W(), opts.Extent.H(), opts.Channels, cog.WriterOptions{
		TileSize:    opts.TileSize,
		DataType:    opts.DataType,
		Compression: opts.Compression,
		Geo:         opts.Geo,
		Software:    "rasterprefetch",
	})
	if err != nil {
		return nil, err
	}
	return &TIFF{w: w}, nil
}

func (t *TIFF) Write(ctx context.Context, b *raster.Buffer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer raster.PutBuffer(b)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.w.WriteRegion(b); err != nil {
		return err
	}
	t.stats.Regions++
	t.stats.Bytes += raster.Bytes(b.Region, b.Channels)
	return nil
}

func (t *TIFF) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Close()
}

func (t *TIFF) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
