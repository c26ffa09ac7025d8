package cog

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/klauspost/compress/zlib"

	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

// DataType selects the on-disk sample type of a Writer.
type DataType string

const (
	Float32 DataType = "float32"
	Uint8   DataType = "uint8"
)

// WriterOptions configures a Writer.
type WriterOptions struct {
	TileSize    int      // tile edge in pixels, multiple of 16; default 256
	DataType    DataType // default Float32
	Compression string   // "none" or "deflate"; default "none"
	Geo         GeoInfo  // georeferencing, written when Valid
	Software    string
}

// Writer streams a tiled little-endian GeoTIFF. Regions can arrive in any
// order and shape; each tile is encoded and written as soon as all of its
// pixels have been supplied, and the directory is written by Close.
// Regions passed to WriteRegion must not overlap.
type Writer struct {
	f    *os.File
	bw   *bufio.Writer
	pos  uint64
	opts WriterOptions

	extent   region.Rect
	channels int
	across   int
	down     int

	offsets []uint64
	counts  []uint64
	pending map[int]*pendingTile
	closed  bool
}

type pendingTile struct {
	buf    *raster.Buffer
	inside region.Rect // part of the tile inside the image
	filled int
}

// Create opens path for writing a width×height image with the given number
// of channels.
func Create(path string, width, height, channels int, opts WriterOptions) (*Writer, error) {
	if opts.TileSize == 0 {
		opts.TileSize = 256
	}
	if opts.DataType == "" {
		opts.DataType = Float32
	}
	if opts.Compression == "" {
		opts.Compression = "none"
	}
	switch {
	case width <= 0 || height <= 0:
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	case channels <= 0:
		return nil, fmt.Errorf("invalid channel count %d", channels)
	case opts.TileSize%16 != 0:
		return nil, fmt.Errorf("tile size %d is not a multiple of 16", opts.TileSize)
	case opts.DataType != Float32 && opts.DataType != Uint8:
		return nil, fmt.Errorf("unsupported data type %q", opts.DataType)
	case opts.Compression != "none" && opts.Compression != "deflate":
		return nil, fmt.Errorf("unsupported compression %q", opts.Compression)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	across := (width + opts.TileSize - 1) / opts.TileSize
	down := (height + opts.TileSize - 1) / opts.TileSize
	w := &Writer{
		f:        f,
		bw:       bufio.NewWriterSize(f, 1<<20),
		opts:     opts,
		extent:   region.New(0, 0, width, height),
		channels: channels,
		across:   across,
		down:     down,
		offsets:  make([]uint64, across*down),
		counts:   make([]uint64, across*down),
		pending:  make(map[int]*pendingTile),
	}

	// Header; the IFD offset is patched in Close.
	header := []byte{'I', 'I', 42, 0, 0, 0, 0, 0}
	if err := w.write(header); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// Extent returns the image extent.
func (w *Writer) Extent() region.Rect { return w.extent }

// WriteRegion copies b into the image. Parts of b outside the extent are
// ignored.
func (w *Writer) WriteRegion(b *raster.Buffer) error {
	if w.closed {
		return fmt.Errorf("write to closed TIFF writer")
	}
	if b.Channels != w.channels {
		return fmt.Errorf("region %v has %d channels, image has %d", b.Region, b.Channels, w.channels)
	}
	r, ok := region.Intersect(b.Region, w.extent)
	if !ok {
		return nil
	}

	ts := w.opts.TileSize
	upper := region.UpperIndex(r)
	for row := r.Y() / ts; row <= upper[1]/ts; row++ {
		for col := r.X() / ts; col <= upper[0]/ts; col++ {
			idx := row*w.across + col
			p := w.pending[idx]
			if p == nil {
				full := region.New(col*ts, row*ts, ts, ts)
				inside, _ := region.Intersect(full, w.extent)
				p = &pendingTile{buf: raster.NewBuffer(full, w.channels), inside: inside}
				w.pending[idx] = p
			}
			if _, err := p.buf.CopyFrom(b); err != nil {
				return err
			}
			if ov, ok := region.Intersect(p.inside, r); ok {
				p.filled += region.Area(ov)
			}
			if p.filled >= region.Area(p.inside) {
				if err := w.flushTile(idx, p); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (w *Writer) flushTile(idx int, p *pendingTile) error {
	delete(w.pending, idx)

	var raw []byte
	switch w.opts.DataType {
	case Uint8:
		raw = make([]byte, len(p.buf.Pix))
		for i, v := range p.buf.Pix {
			raw[i] = toUint8(v)
		}
	default:
		raw = make([]byte, 4*len(p.buf.Pix))
		for i, v := range p.buf.Pix {
			binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
		}
	}

	if w.opts.Compression == "deflate" {
		var zbuf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&zbuf, zlib.DefaultCompression)
		if err != nil {
			return err
		}
		if _, err := zw.Write(raw); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		raw = zbuf.Bytes()
	}

	w.offsets[idx] = w.pos
	w.counts[idx] = uint64(len(raw))
	if err := w.write(raw); err != nil {
		return fmt.Errorf("writing tile %d: %w", idx, err)
	}
	return nil
}

func toUint8(v float32) uint8 {
	switch {
	case v != v || v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

func (w *Writer) write(b []byte) error {
	if w.pos+uint64(len(b)) > math.MaxUint32 {
		return fmt.Errorf("output exceeds the 4 GiB classic TIFF limit")
	}
	n, err := w.bw.Write(b)
	w.pos += uint64(n)
	return err
}

// Close writes the tiles that are still incomplete, the image directory
// and the header, then closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.finish()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (w *Writer) finish() error {
	idxs := make([]int, 0, len(w.pending))
	for idx := range w.pending {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	for _, idx := range idxs {
		if err := w.flushTile(idx, w.pending[idx]); err != nil {
			return err
		}
	}

	if w.pos%2 == 1 {
		if err := w.write([]byte{0}); err != nil {
			return err
		}
	}
	ifdOffset := w.pos
	if err := w.write(w.directory(uint32(ifdOffset))); err != nil {
		return fmt.Errorf("writing directory: %w", err)
	}
	if err := w.bw.Flush(); err != nil {
		return err
	}

	var off [4]byte
	binary.LittleEndian.PutUint32(off[:], uint32(ifdOffset))
	if _, err := w.f.WriteAt(off[:], 4); err != nil {
		return fmt.Errorf("patching header: %w", err)
	}
	return nil
}

type dirEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// directory builds the image directory placed at offset.
func (w *Writer) directory(offset uint32) []byte {
	spp := w.channels
	bits, format := uint16(32), uint16(sfFloat)
	if w.opts.DataType == Uint8 {
		bits, format = 8, sfUint
	}
	photometric := uint16(photoMinIsBlack)
	extra := spp - 1
	if w.opts.DataType == Uint8 && spp >= 3 {
		photometric = photoRGB
		extra = spp - 3
	}
	compression := uint16(compNone)
	if w.opts.Compression == "deflate" {
		compression = compDeflate
	}

	entries := []dirEntry{
		longs(tagImageWidth, uint32(w.extent.W())),
		longs(tagImageLength, uint32(w.extent.H())),
		shorts(tagBitsPerSample, repeat(bits, spp)...),
		shorts(tagCompression, compression),
		shorts(tagPhotometric, photometric),
		shorts(tagSamplesPerPixel, uint16(spp)),
		shorts(tagPlanarConfig, 1),
		longs(tagTileWidth, uint32(w.opts.TileSize)),
		longs(tagTileLength, uint32(w.opts.TileSize)),
		longs(tagTileOffsets, narrow(w.offsets)...),
		longs(tagTileByteCounts, narrow(w.counts)...),
		shorts(tagSampleFormat, repeat(format, spp)...),
	}
	if extra > 0 {
		entries = append(entries, shorts(tagExtraSamples, repeat(0, extra)...))
	}
	if w.opts.Software != "" {
		entries = append(entries, ascii(tagSoftware, w.opts.Software))
	}
	if g := w.opts.Geo; g.Valid() {
		entries = append(entries,
			doubles(tagModelPixelScale, g.PixelSizeX, g.PixelSizeY, 0),
			doubles(tagModelTiepoint, 0, 0, 0, g.OriginX, g.OriginY, 0),
			shorts(tagGeoKeyDirectory, encodeGeoKeys(g.EPSG)...),
		)
	}
	return encodeDirectory(entries, offset)
}

// encodeDirectory writes entries as a little-endian IFD located at offset,
// followed by the values that do not fit inline.
func encodeDirectory(entries []dirEntry, offset uint32) []byte {
	le := binary.LittleEndian
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	dirSize := 2 + 12*len(entries) + 4
	var dir, ext bytes.Buffer
	var u16 [2]byte
	le.PutUint16(u16[:], uint16(len(entries)))
	dir.Write(u16[:])
	for _, e := range entries {
		var head [12]byte
		le.PutUint16(head[0:], e.tag)
		le.PutUint16(head[2:], e.typ)
		le.PutUint32(head[4:], e.count)
		if len(e.data) <= 4 {
			copy(head[8:], e.data)
		} else {
			le.PutUint32(head[8:], offset+uint32(dirSize+ext.Len()))
			ext.Write(e.data)
			if ext.Len()%2 == 1 {
				ext.WriteByte(0)
			}
		}
		dir.Write(head[:])
	}
	dir.Write([]byte{0, 0, 0, 0}) // no further IFDs
	dir.Write(ext.Bytes())
	return dir.Bytes()
}

func shorts(tag uint16, vals ...uint16) dirEntry {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	return dirEntry{tag: tag, typ: dtShort, count: uint32(len(vals)), data: b}
}

func longs(tag uint16, vals ...uint32) dirEntry {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return dirEntry{tag: tag, typ: dtLong, count: uint32(len(vals)), data: b}
}

func doubles(tag uint16, vals ...float64) dirEntry {
	b := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return dirEntry{tag: tag, typ: dtDouble, count: uint32(len(vals)), data: b}
}

func ascii(tag uint16, s string) dirEntry {
	b := append([]byte(s), 0)
	return dirEntry{tag: tag, typ: dtASCII, count: uint32(len(b)), data: b}
}

func repeat(v uint16, n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func narrow(vals []uint64) []uint32 {
	out := make([]uint32, len(vals))
	for i, v := range vals {
		out[i] = uint32(v)
	}
	return out
}
