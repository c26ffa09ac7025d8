// Package raster holds the in-memory pixel buffer exchanged between sources,
// the prefetch cache and downstream consumers.
package raster

import (
	"fmt"

	"github.com/pspoerri/rasterprefetch/internal/region"
)

// Buffer is a block of float32 samples covering Region. Samples are
// pixel-interleaved and rows are stored top to bottom, so the sample for
// channel c of pixel (x, y) lives at PixOffset(x, y)+c. Coordinates are
// absolute raster coordinates, not relative to Region.
type Buffer struct {
	Region   region.Rect
	Channels int
	Pix      []float32
}

// NewBuffer allocates a zeroed buffer covering r.
func NewBuffer(r region.Rect, channels int) *Buffer {
	return &Buffer{
		Region:   r,
		Channels: channels,
		Pix:      make([]float32, region.Area(r)*channels),
	}
}

// Stride returns the number of samples per row.
func (b *Buffer) Stride() int {
	return b.Region.W() * b.Channels
}

// PixOffset returns the index of the first sample of pixel (x, y).
func (b *Buffer) PixOffset(x, y int) int {
	return (y-b.Region.Y())*b.Stride() + (x-b.Region.X())*b.Channels
}

// At returns channel c of pixel (x, y).
func (b *Buffer) At(x, y, c int) float32 {
	return b.Pix[b.PixOffset(x, y)+c]
}

// Set stores v into channel c of pixel (x, y).
func (b *Buffer) Set(x, y, c int, v float32) {
	b.Pix[b.PixOffset(x, y)+c] = v
}

// Bytes returns the in-memory size of a buffer covering r.
func Bytes(r region.Rect, channels int) int64 {
	return int64(region.Area(r)) * int64(channels) * 4
}

// CopyFrom copies the part of src that overlaps b into b and returns the
// number of pixels copied.
func (b *Buffer) CopyFrom(src *Buffer) (int, error) {
	if src.Channels != b.Channels {
		return 0, fmt.Errorf("copying %v into %v: channel mismatch (%d vs %d)",
			src.Region, b.Region, src.Channels, b.Channels)
	}
	overlap, ok := region.Intersect(b.Region, src.Region)
	if !ok {
		return 0, nil
	}
	n := overlap.W() * b.Channels
	for y := overlap.Y(); y < overlap.End(1); y++ {
		d := b.PixOffset(overlap.X(), y)
		s := src.PixOffset(overlap.X(), y)
		copy(b.Pix[d:d+n], src.Pix[s:s+n])
	}
	return region.Area(overlap), nil
}

// Sub returns a copy of the part of b inside r. r must lie inside b.Region.
func (b *Buffer) Sub(r region.Rect) *Buffer {
	out := NewBuffer(r, b.Channels)
	_, _ = out.CopyFrom(b)
	return out
}
