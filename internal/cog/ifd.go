package cog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
)

var errTruncated = errors.New("truncated TIFF structure")

// IFD is a parsed TIFF Image File Directory. Strip-organised images are
// exposed as tiles that span the full width, so every level can be read tile
// by tile.
type IFD struct {
	Width           uint32
	Height          uint32
	TileWidth       uint32
	TileHeight      uint32
	Stripped        bool
	BitsPerSample   []uint16
	SamplesPerPixel uint16
	SampleFormat    uint16
	Compression     uint16
	Photometric     uint16
	PlanarConfig    uint16
	Predictor       uint16
	TileOffsets     []uint64
	TileByteCounts  []uint64
	JPEGTables      []byte
	ModelTiepoint   []float64
	ModelPixelScale []float64
	GeoKeys         []uint16
	GeoDoubleParams []float64
	GeoASCIIParams  string
	NoData          string
	Software        string
}

// TilesAcross returns the number of tiles in the horizontal direction.
func (ifd *IFD) TilesAcross() int {
	return int((ifd.Width + ifd.TileWidth - 1) / ifd.TileWidth)
}

// TilesDown returns the number of tiles in the vertical direction.
func (ifd *IFD) TilesDown() int {
	return int((ifd.Height + ifd.TileHeight - 1) / ifd.TileHeight)
}

// Bits returns the bit depth of the first sample.
func (ifd *IFD) Bits() int {
	if len(ifd.BitsPerSample) == 0 {
		return 1
	}
	return int(ifd.BitsPerSample[0])
}

// entry is one directory entry with its value bytes resolved.
type entry struct {
	tag   uint16
	typ   uint16
	count uint64
	value []byte
}

// parseTIFF walks the IFD chain of an in-memory TIFF or BigTIFF file.
func parseTIFF(data []byte) ([]IFD, binary.ByteOrder, error) {
	if len(data) < 8 {
		return nil, nil, fmt.Errorf("reading TIFF header: %w", errTruncated)
	}

	var bo binary.ByteOrder
	switch string(data[0:2]) {
	case "II":
		bo = binary.LittleEndian
	case "MM":
		bo = binary.BigEndian
	default:
		return nil, nil, fmt.Errorf("invalid TIFF byte order: %x", data[0:2])
	}

	var big bool
	var offset uint64
	switch magic := bo.Uint16(data[2:4]); magic {
	case 42:
		offset = uint64(bo.Uint32(data[4:8]))
	case 43:
		// BigTIFF: offset size (always 8), reserved, then the first IFD offset.
		if len(data) < 16 {
			return nil, nil, fmt.Errorf("reading BigTIFF header: %w", errTruncated)
		}
		big = true
		offset = bo.Uint64(data[8:16])
	default:
		return nil, nil, fmt.Errorf("invalid TIFF magic: %d", magic)
	}

	var ifds []IFD
	seen := make(map[uint64]bool)
	for offset != 0 {
		if seen[offset] {
			return nil, nil, fmt.Errorf("IFD chain loops at offset %d", offset)
		}
		seen[offset] = true

		entries, next, err := readEntries(data, bo, offset, big)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing IFD at offset %d: %w", offset, err)
		}
		ifd, err := buildIFD(entries, bo)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing IFD at offset %d: %w", offset, err)
		}
		ifds = append(ifds, ifd)
		offset = next
	}
	return ifds, bo, nil
}

func slice(data []byte, off, n uint64) ([]byte, error) {
	if off > uint64(len(data)) || n > uint64(len(data))-off {
		return nil, errTruncated
	}
	return data[off : off+n], nil
}

func readEntries(data []byte, bo binary.ByteOrder, offset uint64, big bool) ([]entry, uint64, error) {
	countSize, entrySize, inline := uint64(2), uint64(12), uint64(4)
	if big {
		countSize, entrySize, inline = 8, 20, 8
	}

	head, err := slice(data, offset, countSize)
	if err != nil {
		return nil, 0, err
	}
	var n uint64
	if big {
		n = bo.Uint64(head)
	} else {
		n = uint64(bo.Uint16(head))
	}

	body, err := slice(data, offset+countSize, n*entrySize+inline)
	if err != nil {
		return nil, 0, err
	}

	entries := make([]entry, 0, n)
	for i := uint64(0); i < n; i++ {
		raw := body[i*entrySize : (i+1)*entrySize]
		e := entry{tag: bo.Uint16(raw[0:2]), typ: bo.Uint16(raw[2:4])}
		var field []byte
		if big {
			e.count = bo.Uint64(raw[4:12])
			field = raw[12:20]
		} else {
			e.count = uint64(bo.Uint32(raw[4:8]))
			field = raw[8:12]
		}

		size := e.count * uint64(dataTypeSize(e.typ))
		if size <= inline {
			e.value = field[:size]
		} else {
			var at uint64
			if big {
				at = bo.Uint64(field)
			} else {
				at = uint64(bo.Uint32(field))
			}
			if e.value, err = slice(data, at, size); err != nil {
				return nil, 0, fmt.Errorf("resolving tag %d: %w", e.tag, err)
			}
		}
		entries = append(entries, e)
	}

	tail := body[n*entrySize:]
	var next uint64
	if big {
		next = bo.Uint64(tail)
	} else {
		next = uint64(bo.Uint32(tail))
	}
	return entries, next, nil
}

func buildIFD(entries []entry, bo binary.ByteOrder) (IFD, error) {
	ifd := IFD{SamplesPerPixel: 1, PlanarConfig: 1, SampleFormat: sfUint, Predictor: 1, Compression: compNone}
	var stripOffsets, stripCounts []uint64
	var rowsPerStrip uint32

	for _, e := range entries {
		switch e.tag {
		case tagImageWidth:
			ifd.Width = uint32(e.first(bo))
		case tagImageLength:
			ifd.Height = uint32(e.first(bo))
		case tagTileWidth:
			ifd.TileWidth = uint32(e.first(bo))
		case tagTileLength:
			ifd.TileHeight = uint32(e.first(bo))
		case tagRowsPerStrip:
			rowsPerStrip = uint32(e.first(bo))
		case tagBitsPerSample:
			for _, v := range e.uints(bo) {
				ifd.BitsPerSample = append(ifd.BitsPerSample, uint16(v))
			}
		case tagSamplesPerPixel:
			ifd.SamplesPerPixel = uint16(e.first(bo))
		case tagSampleFormat:
			ifd.SampleFormat = uint16(e.first(bo))
		case tagCompression:
			ifd.Compression = uint16(e.first(bo))
		case tagPhotometric:
			ifd.Photometric = uint16(e.first(bo))
		case tagPlanarConfig:
			ifd.PlanarConfig = uint16(e.first(bo))
		case tagPredictor:
			ifd.Predictor = uint16(e.first(bo))
		case tagTileOffsets:
			ifd.TileOffsets = e.uints(bo)
		case tagTileByteCounts:
			ifd.TileByteCounts = e.uints(bo)
		case tagStripOffsets:
			stripOffsets = e.uints(bo)
		case tagStripByteCounts:
			stripCounts = e.uints(bo)
		case tagJPEGTables:
			ifd.JPEGTables = append([]byte(nil), e.value...)
		case tagModelTiepoint:
			ifd.ModelTiepoint = e.floats(bo)
		case tagModelPixelScale:
			ifd.ModelPixelScale = e.floats(bo)
		case tagGeoKeyDirectory:
			for _, v := range e.uints(bo) {
				ifd.GeoKeys = append(ifd.GeoKeys, uint16(v))
			}
		case tagGeoDoubleParams:
			ifd.GeoDoubleParams = e.floats(bo)
		case tagGeoASCIIParams:
			ifd.GeoASCIIParams = e.ascii()
		case tagGDALNoData:
			ifd.NoData = e.ascii()
		case tagSoftware:
			ifd.Software = e.ascii()
		}
	}

	if ifd.Width == 0 || ifd.Height == 0 {
		return IFD{}, fmt.Errorf("missing image dimensions")
	}
	if ifd.TileWidth == 0 || ifd.TileHeight == 0 {
		if len(stripOffsets) == 0 {
			return IFD{}, fmt.Errorf("neither tiles nor strips present")
		}
		if rowsPerStrip == 0 || rowsPerStrip > ifd.Height {
			rowsPerStrip = ifd.Height
		}
		ifd.Stripped = true
		ifd.TileWidth = ifd.Width
		ifd.TileHeight = rowsPerStrip
		ifd.TileOffsets = stripOffsets
		ifd.TileByteCounts = stripCounts
	}
	if len(ifd.TileOffsets) != len(ifd.TileByteCounts) {
		return IFD{}, fmt.Errorf("%d tile offsets but %d byte counts", len(ifd.TileOffsets), len(ifd.TileByteCounts))
	}
	return ifd, nil
}

// uints decodes integer-typed values.
func (e entry) uints(bo binary.ByteOrder) []uint64 {
	size := dataTypeSize(e.typ)
	n := len(e.value) / size
	out := make([]uint64, n)
	for i := range out {
		b := e.value[i*size:]
		switch e.typ {
		case dtShort, dtSShort:
			out[i] = uint64(bo.Uint16(b))
		case dtLong, dtSLong:
			out[i] = uint64(bo.Uint32(b))
		case dtLong8, dtSLong8, dtIFD8:
			out[i] = bo.Uint64(b)
		default:
			out[i] = uint64(b[0])
		}
	}
	return out
}

func (e entry) first(bo binary.ByteOrder) uint64 {
	if v := e.uints(bo); len(v) > 0 {
		return v[0]
	}
	return 0
}

// floats decodes DOUBLE and FLOAT values.
func (e entry) floats(bo binary.ByteOrder) []float64 {
	switch e.typ {
	case dtDouble:
		out := make([]float64, len(e.value)/8)
		for i := range out {
			out[i] = math.Float64frombits(bo.Uint64(e.value[i*8:]))
		}
		return out
	case dtFloat:
		out := make([]float64, len(e.value)/4)
		for i := range out {
			out[i] = float64(math.Float32frombits(bo.Uint32(e.value[i*4:])))
		}
		return out
	}
	var out []float64
	for _, v := range e.uints(bo) {
		out = append(out, float64(v))
	}
	return out
}

func (e entry) ascii() string {
	return strings.TrimRight(string(e.value), "\x00 ")
}
