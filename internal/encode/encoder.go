// Package encode renders raster buffers as 8-bit images and encodes them as
// image tiles.
package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/gen2brain/webp"
)

// Encoder turns a rendered tile into file bytes.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
	Format() string
	FileExtension() string
}

const defaultQuality = 85

// NewEncoder returns the encoder for format. quality applies to the lossy
// formats; values <= 0 select 85.
func NewEncoder(format string, quality int) (Encoder, error) {
	if quality <= 0 {
		quality = defaultQuality
	}
	switch format {
	case "jpeg", "jpg":
		return &JPEGEncoder{Quality: quality}, nil
	case "png":
		return &PNGEncoder{}, nil
	case "webp":
		return &WebPEncoder{Quality: quality}, nil
	case "terrarium":
		return &TerrariumEncoder{}, nil
	default:
		return nil, fmt.Errorf("unsupported tile format: %q (supported: jpeg, png, webp, terrarium)", format)
	}
}

func encodeTo(write func(w io.Writer) error) ([]byte, error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pngFast favours speed; tiles are written once and rarely large.
var pngFast = &png.Encoder{CompressionLevel: png.BestSpeed}

// PNGEncoder writes lossless PNG tiles.
type PNGEncoder struct{}

func (*PNGEncoder) Encode(img image.Image) ([]byte, error) {
	return encodeTo(func(w io.Writer) error { return pngFast.Encode(w, img) })
}

func (*PNGEncoder) Format() string        { return "png" }
func (*PNGEncoder) FileExtension() string { return ".png" }

// JPEGEncoder writes JPEG tiles. Alpha is dropped.
type JPEGEncoder struct {
	Quality int
}

func (e *JPEGEncoder) Encode(img image.Image) ([]byte, error) {
	q := e.Quality
	if q <= 0 {
		q = defaultQuality
	}
	return encodeTo(func(w io.Writer) error { return jpeg.Encode(w, img, &jpeg.Options{Quality: q}) })
}

func (*JPEGEncoder) Format() string        { return "jpeg" }
func (*JPEGEncoder) FileExtension() string { return ".jpg" }

// WebPEncoder writes lossy WebP tiles. gen2brain/webp uses a system libwebp
// through purego when present and an embedded WASM build otherwise.
type WebPEncoder struct {
	Quality int
}

func (e *WebPEncoder) Encode(img image.Image) ([]byte, error) {
	q := e.Quality
	if q <= 0 {
		q = defaultQuality
	}
	return encodeTo(func(w io.Writer) error { return webp.Encode(w, img, webp.Options{Quality: q}) })
}

func (*WebPEncoder) Format() string        { return "webp" }
func (*WebPEncoder) FileExtension() string { return ".webp" }

// TerrariumEncoder writes PNG tiles whose RGB holds elevation in the
// Mapzen Terrarium encoding. EncodeBuffer renders channel 0 accordingly.
type TerrariumEncoder struct{}

func (*TerrariumEncoder) Encode(img image.Image) ([]byte, error) {
	return encodeTo(func(w io.Writer) error { return pngFast.Encode(w, img) })
}

func (*TerrariumEncoder) Format() string        { return "terrarium" }
func (*TerrariumEncoder) FileExtension() string { return ".png" }
