package cog

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
)

// Reader provides tile-level access to a tiled or stripped GeoTIFF.
// The file is memory-mapped, so ReadTile is safe for concurrent use.
type Reader struct {
	data []byte
	bo   binary.ByteOrder
	ifds []IFD
	geo  GeoInfo
	path string
}

// Open memory-maps path and parses its TIFF structure.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	data, err := mapFile(f, int(fi.Size()))
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}

	r, err := newReader(path, data)
	if err != nil {
		_ = unmapFile(data)
		return nil, err
	}
	return r, nil
}

func newReader(path string, data []byte) (*Reader, error) {
	ifds, bo, err := parseTIFF(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(ifds) == 0 {
		return nil, fmt.Errorf("%s: no IFDs found", path)
	}

	first := &ifds[0]
	if first.PlanarConfig != 1 {
		return nil, fmt.Errorf("%s: planar configuration %d is not supported", path, first.PlanarConfig)
	}
	if err := checkSampleLayout(first); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	geo := parseGeoInfo(first)
	if !geo.Valid() {
		wf, ok, err := readWorldFile(path)
		if err != nil {
			return nil, err
		}
		if ok {
			geo = wf
		}
	}
	if geo.EPSG == 0 && geo.Valid() {
		geo.EPSG = inferEPSG(geo, int(first.Width), int(first.Height))
	}

	return &Reader{data: data, bo: bo, ifds: ifds, geo: geo, path: path}, nil
}

// Close unmaps the file.
func (r *Reader) Close() error {
	if r.data == nil {
		return nil
	}
	err := unmapFile(r.data)
	r.data = nil
	return err
}

// Path returns the file path.
func (r *Reader) Path() string { return r.path }

// GeoInfo returns the georeferencing of the full-resolution image.
func (r *Reader) GeoInfo() GeoInfo { return r.geo }

// Width returns the full-resolution image width.
func (r *Reader) Width() int { return int(r.ifds[0].Width) }

// Height returns the full-resolution image height.
func (r *Reader) Height() int { return int(r.ifds[0].Height) }

// Bands returns the number of samples per pixel.
func (r *Reader) Bands() int { return int(r.ifds[0].SamplesPerPixel) }

// TileSize returns the tile width and height of the full-resolution image.
// For stripped files this is the image width and the rows per strip.
func (r *Reader) TileSize() (int, int) {
	return int(r.ifds[0].TileWidth), int(r.ifds[0].TileHeight)
}

// NumOverviews returns the number of overview levels (IFDs beyond the first).
func (r *Reader) NumOverviews() int { return len(r.ifds) - 1 }

// IFD returns the directory of the given level. Level 0 is full resolution.
func (r *Reader) IFD(level int) *IFD { return &r.ifds[level] }

// ByteOrder returns the byte order of the file.
func (r *Reader) ByteOrder() binary.ByteOrder { return r.bo }

// BoundsInCRS returns the bounding box in the source CRS.
func (r *Reader) BoundsInCRS() (minX, minY, maxX, maxY float64) {
	ifd := &r.ifds[0]
	minX = r.geo.OriginX
	maxY = r.geo.OriginY
	maxX = minX + float64(ifd.Width)*r.geo.PixelSizeX
	minY = maxY - float64(ifd.Height)*r.geo.PixelSizeY
	return
}

// Describe returns printable key/value metadata for the full-resolution
// image.
func (r *Reader) Describe() map[string]string {
	ifd := &r.ifds[0]
	d := map[string]string{
		"compression":   compressionName(ifd.Compression),
		"sample_format": sampleFormatName(ifd.SampleFormat, ifd.Bits()),
		"layout":        "tiled",
		"overviews":     strconv.Itoa(r.NumOverviews()),
	}
	if ifd.Stripped {
		d["layout"] = "stripped"
	}
	if ifd.Software != "" {
		d["software"] = ifd.Software
	}
	if ifd.NoData != "" {
		d["nodata"] = ifd.NoData
	}
	if ifd.GeoASCIIParams != "" {
		d["geo_ascii"] = ifd.GeoASCIIParams
	}
	return d
}

// ReadTile decodes the tile at (col, row) of level 0 into float32 samples.
// The result always holds TileWidth×TileHeight pixels, pixel-interleaved;
// rows missing from a short final strip are left zero.
func (r *Reader) ReadTile(col, row int) ([]float32, error) {
	return r.ReadTileLevel(0, col, row)
}

// ReadTileLevel is ReadTile for an arbitrary IFD level.
func (r *Reader) ReadTileLevel(level, col, row int) ([]float32, error) {
	if level < 0 || level >= len(r.ifds) {
		return nil, fmt.Errorf("invalid IFD level %d (have %d)", level, len(r.ifds))
	}
	ifd := &r.ifds[level]
	across, down := ifd.TilesAcross(), ifd.TilesDown()
	if col < 0 || col >= across || row < 0 || row >= down {
		return nil, fmt.Errorf("tile (%d,%d) out of range (%dx%d)", col, row, across, down)
	}

	idx := row*across + col
	if idx >= len(ifd.TileOffsets) {
		return nil, fmt.Errorf("tile index %d out of range", idx)
	}

	spp := int(ifd.SamplesPerPixel)
	out := make([]float32, int(ifd.TileWidth)*int(ifd.TileHeight)*spp)

	offset, size := ifd.TileOffsets[idx], ifd.TileByteCounts[idx]
	if size == 0 {
		// Sparse tile.
		return out, nil
	}
	data, err := slice(r.data, offset, size)
	if err != nil {
		return nil, fmt.Errorf("tile (%d,%d) data [%d:%d] exceeds file size %d", col, row, offset, offset+size, len(r.data))
	}

	if err := decodeTile(ifd, r.bo, data, out); err != nil {
		return nil, fmt.Errorf("reading tile (%d,%d): %w", col, row, err)
	}
	return out, nil
}
