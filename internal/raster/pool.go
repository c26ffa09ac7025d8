package raster

import (
	"sync"

	"github.com/pspoerri/rasterprefetch/internal/region"
)

// bufferPools maps a sample count to a *sync.Pool of []float32. In practice a
// run only sees a handful of distinct request sizes, so the map stays small.
var bufferPools sync.Map

// GetBuffer returns a zeroed buffer covering r, reusing pooled storage when a
// slice of the right length is available.
func GetBuffer(r region.Rect, channels int) *Buffer {
	n := region.Area(r) * channels
	if p, ok := bufferPools.Load(n); ok {
		if v := p.(*sync.Pool).Get(); v != nil {
			pix := *(v.(*[]float32))
			clear(pix)
			return &Buffer{Region: r, Channels: channels, Pix: pix}
		}
	}
	return NewBuffer(r, channels)
}

// PutBuffer returns a buffer's storage to the pool. The caller must not use
// b afterwards. Nil and empty buffers are silently ignored.
func PutBuffer(b *Buffer) {
	if b == nil || len(b.Pix) == 0 {
		return
	}
	pix := b.Pix
	b.Pix = nil
	p, _ := bufferPools.LoadOrStore(len(pix), &sync.Pool{})
	p.(*sync.Pool).Put(&pix)
}
