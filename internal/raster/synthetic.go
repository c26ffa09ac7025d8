package raster

import (
	"fmt"
	"time"

	"github.com/pspoerri/rasterprefetch/internal/region"
)

// Synthetic is a deterministic in-memory source. Each sample is a function of
// its coordinates, so any fetched region can be checked against ground truth.
type Synthetic struct {
	extent   region.Rect
	channels int
	latency  time.Duration
}

// NewSynthetic returns a synthetic source of size w×h. latency is slept on
// every fetch to imitate a slow upstream.
func NewSynthetic(w, h, channels int, latency time.Duration) *Synthetic {
	return &Synthetic{
		extent:   region.New(0, 0, w, h),
		channels: channels,
		latency:  latency,
	}
}

// Value is the ground-truth sample at (x, y) in channel c.
func (s *Synthetic) Value(x, y, c int) float32 {
	return float32(x) + float32(y)*0.25 + float32(c)*1000
}

// Fetch fills a buffer covering r. r must lie inside the extent.
func (s *Synthetic) Fetch(r region.Rect) (*Buffer, error) {
	if !region.Contains(s.extent, r) {
		return nil, fmt.Errorf("region %v outside extent %v", r, s.extent)
	}
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
	b := GetBuffer(r, s.channels)
	i := 0
	for y := r.Y(); y < r.End(1); y++ {
		for x := r.X(); x < r.End(0); x++ {
			for c := 0; c < s.channels; c++ {
				b.Pix[i] = s.Value(x, y, c)
				i++
			}
		}
	}
	return b, nil
}

func (s *Synthetic) Extent() region.Rect { return s.extent }
func (s *Synthetic) Channels() int       { return s.channels }

func (s *Synthetic) Metadata() Metadata {
	return Metadata{
		Extent:     s.extent,
		Channels:   s.channels,
		SpacingX:   1,
		SpacingY:   1,
		Dictionary: map[string]string{"source": "synthetic"},
	}
}
