package pipeline

import (
	"time"

	"github.com/pspoerri/rasterprefetch/internal/prefetch"
	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

// slowSource delays every fetch of the wrapped source, emulating a remote
// upstream on top of a local file.
type slowSource struct {
	prefetch.Source
	latency time.Duration
}

// WithLatency returns src with latency added to each Fetch. A non-positive
// latency returns src unchanged.
func WithLatency(src prefetch.Source, latency time.Duration) prefetch.Source {
	if latency <= 0 {
		return src
	}
	return &slowSource{Source: src, latency: latency}
}

func (s *slowSource) Fetch(r region.Rect) (*raster.Buffer, error) {
	time.Sleep(s.latency)
	return s.Source.Fetch(r)
}
