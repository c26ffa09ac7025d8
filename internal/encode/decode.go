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

// decoders reads back what each Encoder writes, keyed by Format().
var decoders = map[string]func(io.Reader) (image.Image, error){
	"png":       png.Decode,
	"terrarium": png.Decode,
	"jpeg":      jpeg.Decode,
	"webp":      webp.Decode,
}

// DecodeImage decodes tile bytes written by the encoder for format. "jpg" is
// accepted as an alias of "jpeg".
func DecodeImage(data []byte, format string) (image.Image, error) {
	if format == "jpg" {
		format = "jpeg"
	}
	dec, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("no decoder for tile format %q", format)
	}
	img, err := dec(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s tile: %w", format, err)
	}
	return img, nil
}
