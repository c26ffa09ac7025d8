// Package sink writes the filtered output regions of a run.
package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pspoerri/rasterprefetch/internal/cog"
	"github.com/pspoerri/rasterprefetch/internal/encode"
	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

// Sink consumes output regions. Write takes ownership of the buffer.
type Sink interface {
	Write(ctx context.Context, b *raster.Buffer) error
	// Close flushes pending output and reports the first write error.
	Close() error
	Stats() Stats
}

// Stats counts what a sink has written.
type Stats struct {
	Regions int64 `json:"regions"`
	Bytes   int64 `json:"bytes"`
}

// Options configures Open.
type Options struct {
	Extent   region.Rect
	Channels int

	// TIFF output.
	TileSize    int
	DataType    cog.DataType
	Compression string
	Geo         cog.GeoInfo

	// Tile directory output.
	Format  string
	Quality int
	Workers int
	Range   encode.Range
}

// Open picks the sink for path: nothing at all for "-", a tiled GeoTIFF when
// path ends in .tif or .tiff or the format is "tiff", and a directory of
// encoded tiles otherwise.
func Open(path string, opts Options) (Sink, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case path == "-":
		return &Discard{}, nil
	case ext == ".tif" || ext == ".tiff" || opts.Format == "tiff":
		return NewTIFF(path, opts)
	default:
		enc, err := encode.NewEncoder(opts.Format, opts.Quality)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", path, err)
		}
		return NewTileDir(path, enc, opts.Range, opts.Workers)
	}
}

// Discard drops every region. It measures the cache and filter alone.
type Discard struct {
	stats Stats
}

func (d *Discard) Write(_ context.Context, b *raster.Buffer) error {
	d.stats.Regions++
	d.stats.Bytes += raster.Bytes(b.Region, b.Channels)
	raster.PutBuffer(b)
	return nil
}

func (d *Discard) Close() error { return nil }
func (d *Discard) Stats() Stats { return d.stats }
