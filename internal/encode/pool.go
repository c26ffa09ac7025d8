package encode

import (
	"image"
	"sync"
)

// pixPool recycles RGBA pixel slices. Tiles of one run share a size apart
// from the truncated edge tiles, which fit into a full tile's capacity.
var pixPool sync.Pool // *[]uint8

// getRGBA returns a zeroed w×h image backed by a pooled slice when one is
// large enough.
func getRGBA(w, h int) *image.RGBA {
	n := 4 * w * h
	var pix []uint8
	if p, ok := pixPool.Get().(*[]uint8); ok && cap(*p) >= n {
		pix = (*p)[:n]
		clear(pix)
	} else {
		pix = make([]uint8, n)
	}
	return &image.RGBA{Pix: pix, Stride: 4 * w, Rect: image.Rect(0, 0, w, h)}
}

// putRGBA hands img's pixels back to the pool. Nil images are ignored.
func putRGBA(img *image.RGBA) {
	if img == nil {
		return
	}
	pix := img.Pix[:0]
	pixPool.Put(&pix)
}
