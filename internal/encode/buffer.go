package encode

import (
	"fmt"
	"image"

	"github.com/pspoerri/rasterprefetch/internal/raster"
)

// Range is the sample interval mapped onto 0..255 for 8-bit formats.
// The zero Range maps samples directly, clamping to 0..255.
type Range struct {
	Min, Max float32
}

func (r Range) scale(v float32) uint8 {
	if r.Max > r.Min {
		v = (v - r.Min) * 255 / (r.Max - r.Min)
	}
	switch {
	case v != v || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// ToImage renders b as an RGBA image with origin (0,0). One channel is
// grey, two are grey and alpha, three are RGB and four or more are RGBA.
// The image comes from a pool; release it with ReleaseImage.
func ToImage(b *raster.Buffer, rng Range) *image.RGBA {
	w, h := b.Region.W(), b.Region.H()
	img := getRGBA(w, h)
	ch := b.Channels
	for y := 0; y < h; y++ {
		src := b.PixOffset(b.Region.X(), b.Region.Y()+y)
		dst := y * img.Stride
		for x := 0; x < w; x++ {
			s := b.Pix[src+x*ch : src+(x+1)*ch]
			p := img.Pix[dst+x*4 : dst+x*4+4]
			switch {
			case ch == 1:
				g := rng.scale(s[0])
				p[0], p[1], p[2], p[3] = g, g, g, 255
			case ch == 2:
				g := rng.scale(s[0])
				p[0], p[1], p[2], p[3] = g, g, g, rng.scale(s[1])
			case ch == 3:
				p[0], p[1], p[2], p[3] = rng.scale(s[0]), rng.scale(s[1]), rng.scale(s[2]), 255
			default:
				p[0], p[1], p[2], p[3] = rng.scale(s[0]), rng.scale(s[1]), rng.scale(s[2]), rng.scale(s[3])
			}
		}
	}
	return img
}

// TerrariumImage renders channel 0 of b as Terrarium-encoded elevation.
func TerrariumImage(b *raster.Buffer) *image.RGBA {
	w, h := b.Region.W(), b.Region.H()
	img := getRGBA(w, h)
	for y := 0; y < h; y++ {
		src := b.PixOffset(b.Region.X(), b.Region.Y()+y)
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, ElevationToTerrarium(float64(b.Pix[src+x*b.Channels])))
		}
	}
	return img
}

// ReleaseImage returns an image produced by ToImage or TerrariumImage to
// the pool. img must not be used afterwards.
func ReleaseImage(img *image.RGBA) { putRGBA(img) }

// EncodeBuffer renders b and encodes it with enc. Terrarium encoders get
// elevation-encoded pixels; other formats use rng.
func EncodeBuffer(enc Encoder, b *raster.Buffer, rng Range) ([]byte, error) {
	var img *image.RGBA
	if enc.Format() == "terrarium" {
		img = TerrariumImage(b)
	} else {
		img = ToImage(b, rng)
	}
	defer ReleaseImage(img)

	data, err := enc.Encode(img)
	if err != nil {
		return nil, fmt.Errorf("encoding %s tile %v: %w", enc.Format(), b.Region, err)
	}
	return data, nil
}
