// Package filter holds the downstream operations run on each output region.
// A filter declares which input region it needs, the pipeline requests that
// region from the prefetch cache, and the filter computes the output.
package filter

import (
	"fmt"

	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

// Kinds accepted by New.
const (
	KindNone = "none"
	KindMean = "mean"
)

// Filter computes output regions from input regions.
type Filter interface {
	Name() string
	// InputRegion returns the input needed to compute out, cropped to extent.
	InputRegion(out, extent region.Rect) region.Rect
	// Apply computes out from in, which covers InputRegion(out, extent).
	Apply(in *raster.Buffer, out region.Rect) (*raster.Buffer, error)
}

// New returns the filter for kind.
func New(kind string, radius int) (Filter, error) {
	switch kind {
	case KindNone, "":
		return None{}, nil
	case KindMean:
		if radius < 0 {
			return nil, fmt.Errorf("mean filter: negative radius %d", radius)
		}
		return Mean{Radius: radius}, nil
	default:
		return nil, fmt.Errorf("unknown filter %q (want %s or %s)", kind, KindNone, KindMean)
	}
}

// None passes its input through.
type None struct{}

func (None) Name() string { return KindNone }

func (None) InputRegion(out, extent region.Rect) region.Rect {
	r, _ := region.Crop(out, extent)
	return r
}

func (None) Apply(in *raster.Buffer, out region.Rect) (*raster.Buffer, error) {
	if in.Region == out {
		return in, nil
	}
	if !region.Contains(in.Region, out) {
		return nil, fmt.Errorf("none filter: input %v does not cover %v", in.Region, out)
	}
	return in.Sub(out), nil
}
