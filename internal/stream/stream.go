// Package stream enumerates the output regions of a raster in the access
// orders used to drive the prefetch cache.
package stream

import (
	"fmt"

	"github.com/pspoerri/rasterprefetch/internal/region"
)

// Mode names accepted by New.
const (
	ModeTiled    = "tiled"
	ModeStripped = "stripped"
	ModeHilbert  = "hilbert"
)

// Splitter cuts an extent into the regions a consumer requests, in request
// order. The regions partition the extent.
type Splitter interface {
	Name() string
	Regions(extent region.Rect) []region.Rect
}

// New returns the splitter for mode. size is the tile edge for tiled and
// hilbert orders, and the stripe height for stripped order.
func New(mode string, size int) (Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid tile size %d", size)
	}
	switch mode {
	case ModeTiled:
		return Tiled{Size: size}, nil
	case ModeStripped:
		return Stripped{Rows: size}, nil
	case ModeHilbert:
		return Hilbert{Size: size}, nil
	default:
		return nil, fmt.Errorf("unknown stream mode %q (want %s, %s or %s)", mode, ModeTiled, ModeStripped, ModeHilbert)
	}
}

// Tiled walks square tiles row by row. The last column and row are
// truncated at the extent.
type Tiled struct{ Size int }

func (Tiled) Name() string { return ModeTiled }

func (t Tiled) Regions(extent region.Rect) []region.Rect {
	return grid(extent, t.Size, t.Size)
}

// Stripped walks full-width stripes of Rows rows from top to bottom.
type Stripped struct{ Rows int }

func (Stripped) Name() string { return ModeStripped }

func (s Stripped) Regions(extent region.Rect) []region.Rect {
	return grid(extent, extent.W(), s.Rows)
}

// grid cuts extent into w×h cells in row-major order.
func grid(extent region.Rect, w, h int) []region.Rect {
	if extent.Empty() || w <= 0 || h <= 0 {
		return nil
	}
	var out []region.Rect
	for y := extent.Y(); y < extent.End(1); y += h {
		for x := extent.X(); x < extent.End(0); x += w {
			r, _ := region.Crop(region.New(x, y, w, h), extent)
			out = append(out, r)
		}
	}
	return out
}
