package stream

import (
	"cmp"
	"slices"

	"github.com/pspoerri/rasterprefetch/internal/region"
)

// Hilbert walks square tiles along a Hilbert curve. Consecutive tiles are
// neighbours but the order is not a raster scan, so the raster-scan
// predictor mostly misses.
type Hilbert struct{ Size int }

func (Hilbert) Name() string { return ModeHilbert }

func (h Hilbert) Regions(extent region.Rect) []region.Rect {
	tiles := grid(extent, h.Size, h.Size)
	if len(tiles) < 2 {
		return tiles
	}
	cols := (extent.W() + h.Size - 1) / h.Size
	rows := (extent.H() + h.Size - 1) / h.Size
	side := uint64(1)
	for side < uint64(max(cols, rows)) {
		side <<= 1
	}

	type keyed struct {
		d    uint64
		tile region.Rect
	}
	order := make([]keyed, len(tiles))
	for i, t := range tiles {
		col := uint64((t.X() - extent.X()) / h.Size)
		row := uint64((t.Y() - extent.Y()) / h.Size)
		order[i] = keyed{d: hilbertIndex(col, row, side), tile: t}
	}
	slices.SortFunc(order, func(a, b keyed) int { return cmp.Compare(a.d, b.d) })
	for i := range order {
		tiles[i] = order[i].tile
	}
	return tiles
}

// hilbertIndex returns the distance of cell (col, row) along the Hilbert
// curve filling a side×side grid. side is a power of two.
func hilbertIndex(col, row, side uint64) uint64 {
	var d uint64
	for q := side >> 1; q > 0; q >>= 1 {
		right := col&q != 0
		lower := row&q != 0
		switch {
		case right && lower:
			d += 2 * q * q
		case right:
			d += 3 * q * q
		case lower:
			d += q * q
		}
		if !lower {
			if right {
				col, row = q*2-1-col, q*2-1-row
			}
			col, row = row, col
		}
	}
	return d
}
