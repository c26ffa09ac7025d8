package prefetch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

// ErrBadBuffer is returned when a source hands back a buffer that does not
// cover the requested region.
var ErrBadBuffer = errors.New("source returned a buffer of the wrong shape")

// Source is the upstream raster read by a Cache.
//
// Fetch blocks until r is available and returns a buffer covering exactly r;
// the caller owns the returned buffer. Implementations need not be safe for
// concurrent use. Extent, Channels and Metadata are fixed for the lifetime of
// the source.
type Source interface {
	Fetch(r region.Rect) (*raster.Buffer, error)
	Extent() region.Rect
	Channels() int
	Metadata() raster.Metadata
}

// lockedSource serializes every Fetch on the wrapped source.
type lockedSource struct {
	mu       sync.Mutex
	src      Source
	channels int
}

func newLockedSource(src Source) *lockedSource {
	return &lockedSource{src: src, channels: src.Channels()}
}

func (l *lockedSource) fetch(r region.Rect) (*raster.Buffer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	buf, err := l.src.Fetch(r)
	if err != nil {
		return nil, fmt.Errorf("fetching %v: %w", r, err)
	}
	if buf == nil || buf.Region != r || buf.Channels != l.channels || len(buf.Pix) != region.Area(r)*l.channels {
		return nil, fmt.Errorf("fetching %v: %w", r, ErrBadBuffer)
	}
	return buf, nil
}
