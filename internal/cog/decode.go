package cog

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"
)

// checkSampleLayout rejects sample layouts decodeTile cannot handle.
func checkSampleLayout(ifd *IFD) error {
	bits := ifd.Bits()
	for _, b := range ifd.BitsPerSample {
		if int(b) != bits {
			return fmt.Errorf("mixed bits per sample %v are not supported", ifd.BitsPerSample)
		}
	}
	switch ifd.SampleFormat {
	case sfUint, sfInt:
		if bits != 8 && bits != 16 && bits != 32 {
			return fmt.Errorf("%d-bit integer samples are not supported", bits)
		}
	case sfFloat:
		if bits != 32 && bits != 64 {
			return fmt.Errorf("%d-bit float samples are not supported", bits)
		}
	default:
		return fmt.Errorf("sample format %d is not supported", ifd.SampleFormat)
	}
	if ifd.Predictor != 1 && ifd.Predictor != predictorHorizontal {
		return fmt.Errorf("predictor %d is not supported", ifd.Predictor)
	}
	if ifd.Predictor == predictorHorizontal && ifd.SampleFormat == sfFloat {
		return fmt.Errorf("horizontal predictor on float samples is not supported")
	}
	switch ifd.Compression {
	case compNone, compLZW, compDeflate, compDeflateLegacy:
	case compJPEG:
		if bits != 8 {
			return fmt.Errorf("JPEG tiles with %d-bit samples are not supported", bits)
		}
	default:
		return fmt.Errorf("unsupported compression: %d", ifd.Compression)
	}
	return nil
}

// decodeTile decompresses one tile or strip into out.
func decodeTile(ifd *IFD, bo binary.ByteOrder, data []byte, out []float32) error {
	var raw []byte
	switch ifd.Compression {
	case compJPEG:
		return decodeJPEGTile(ifd, data, out)
	case compNone:
		raw = data
	case compLZW:
		rc := lzw.NewReader(bytes.NewReader(data), lzw.MSB, 8)
		defer rc.Close()
		var err error
		if raw, err = readAllTolerant(rc); err != nil {
			return fmt.Errorf("lzw: %w", err)
		}
	case compDeflate, compDeflateLegacy:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		if raw, err = readAllTolerant(zr); err != nil {
			return fmt.Errorf("deflate: %w", err)
		}
	default:
		return fmt.Errorf("unsupported compression: %d", ifd.Compression)
	}

	spp := int(ifd.SamplesPerPixel)
	bytesPer := ifd.Bits() / 8
	rowBytes := int(ifd.TileWidth) * spp * bytesPer
	// A short final strip decodes fewer rows than the nominal tile height.
	rows := min(int(ifd.TileHeight), len(raw)/rowBytes)
	raw = raw[:rows*rowBytes]

	if ifd.Predictor == predictorHorizontal {
		if ifd.Compression == compNone {
			// raw still points into the read-only mapping.
			raw = append([]byte(nil), raw...)
		}
		undoHorizontalDiff(raw, bo, rowBytes, spp, bytesPer)
	}
	return convertSamples(raw, bo, ifd.SampleFormat, bytesPer, out)
}

// readAllTolerant reads until EOF, accepting a truncated stream as long as
// some data was produced. Several writers end LZW strips without an EOI code.
func readAllTolerant(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(r)
	if err != nil && len(b) > 0 && (err == io.ErrUnexpectedEOF || err == io.EOF) {
		return b, nil
	}
	return b, err
}

// undoHorizontalDiff reverses TIFF predictor 2 row by row.
func undoHorizontalDiff(raw []byte, bo binary.ByteOrder, rowBytes, spp, bytesPer int) {
	stride := spp * bytesPer
	for start := 0; start+rowBytes <= len(raw); start += rowBytes {
		row := raw[start : start+rowBytes]
		for i := stride; i < len(row); i += bytesPer {
			switch bytesPer {
			case 1:
				row[i] += row[i-stride]
			case 2:
				bo.PutUint16(row[i:], bo.Uint16(row[i:])+bo.Uint16(row[i-stride:]))
			case 4:
				bo.PutUint32(row[i:], bo.Uint32(row[i:])+bo.Uint32(row[i-stride:]))
			}
		}
	}
}

// convertSamples widens raw samples to float32.
func convertSamples(raw []byte, bo binary.ByteOrder, format uint16, bytesPer int, out []float32) error {
	n := min(len(out), len(raw)/bytesPer)
	switch {
	case format == sfUint && bytesPer == 1:
		for i := 0; i < n; i++ {
			out[i] = float32(raw[i])
		}
	case format == sfInt && bytesPer == 1:
		for i := 0; i < n; i++ {
			out[i] = float32(int8(raw[i]))
		}
	case format == sfUint && bytesPer == 2:
		for i := 0; i < n; i++ {
			out[i] = float32(bo.Uint16(raw[i*2:]))
		}
	case format == sfInt && bytesPer == 2:
		for i := 0; i < n; i++ {
			out[i] = float32(int16(bo.Uint16(raw[i*2:])))
		}
	case format == sfUint && bytesPer == 4:
		for i := 0; i < n; i++ {
			out[i] = float32(bo.Uint32(raw[i*4:]))
		}
	case format == sfInt && bytesPer == 4:
		for i := 0; i < n; i++ {
			out[i] = float32(int32(bo.Uint32(raw[i*4:])))
		}
	case format == sfFloat && bytesPer == 4:
		for i := 0; i < n; i++ {
			out[i] = math.Float32frombits(bo.Uint32(raw[i*4:]))
		}
	case format == sfFloat && bytesPer == 8:
		for i := 0; i < n; i++ {
			out[i] = float32(math.Float64frombits(bo.Uint64(raw[i*8:])))
		}
	default:
		return fmt.Errorf("sample format %d with %d bytes per sample is not supported", format, bytesPer)
	}
	return nil
}

// decodeJPEGTile decodes a JPEG-compressed tile, prepending the shared JPEG
// tables when the file has them.
func decodeJPEGTile(ifd *IFD, data []byte, out []float32) error {
	jpegData := data
	if len(ifd.JPEGTables) > 0 {
		// Strip the trailing EOI from the tables and the leading SOI from the tile.
		tables := ifd.JPEGTables
		if len(tables) >= 2 && tables[len(tables)-2] == 0xFF && tables[len(tables)-1] == 0xD9 {
			tables = tables[:len(tables)-2]
		}
		tile := data
		if len(tile) >= 2 && tile[0] == 0xFF && tile[1] == 0xD8 {
			tile = tile[2:]
		}
		jpegData = make([]byte, 0, len(tables)+len(tile))
		jpegData = append(jpegData, tables...)
		jpegData = append(jpegData, tile...)
	}

	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return fmt.Errorf("decoding JPEG tile: %w", err)
	}

	tw := int(ifd.TileWidth)
	spp := int(ifd.SamplesPerPixel)
	b := img.Bounds()
	for y := 0; y < min(b.Dy(), int(ifd.TileHeight)); y++ {
		for x := 0; x < min(b.Dx(), tw); x++ {
			off := (y*tw + x) * spp
			switch src := img.(type) {
			case *image.Gray:
				out[off] = float32(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			default:
				c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
				px := [4]uint8{c.R, c.G, c.B, c.A}
				for s := 0; s < min(spp, 4); s++ {
					out[off+s] = float32(px[s])
				}
			}
		}
	}
	return nil
}
