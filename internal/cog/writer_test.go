package cog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

// writeSynthetic writes the full synthetic image in horizontal stripes of the
// given height.
func writeSynthetic(t *testing.T, path string, src *raster.Synthetic, stripe int, opts WriterOptions) {
	t.Helper()
	ext := src.Extent()
	w, err := Create(path, ext.W(), ext.H(), src.Channels(), opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	for y := 0; y < ext.H(); y += stripe {
		r, _ := region.Crop(region.New(0, y, ext.W(), stripe), ext)
		buf, err := src.Fetch(r)
		if err != nil {
			t.Fatalf("Fetch(%v): %v", r, err)
		}
		if err := w.WriteRegion(buf); err != nil {
			t.Fatalf("WriteRegion(%v): %v", r, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		compression string
		width       int
		height      int
		channels    int
	}{
		{"none", "none", 70, 45, 1},
		{"deflate", "deflate", 70, 45, 1},
		{"multiband", "deflate", 33, 17, 3},
		{"exact tiles", "none", 64, 32, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.tif")
			src := raster.NewSynthetic(tt.width, tt.height, tt.channels, 0)
			writeSynthetic(t, path, src, 7, WriterOptions{TileSize: 16, Compression: tt.compression})

			r, err := Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer r.Close()

			if r.Width() != tt.width || r.Height() != tt.height || r.Bands() != tt.channels {
				t.Fatalf("got %dx%dx%d, want %dx%dx%d",
					r.Width(), r.Height(), r.Bands(), tt.width, tt.height, tt.channels)
			}
			if tw, th := r.TileSize(); tw != 16 || th != 16 {
				t.Errorf("TileSize() = %d,%d, want 16,16", tw, th)
			}

			s := NewSource(r, 0)
			buf, err := s.Fetch(s.Extent())
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			for y := 0; y < tt.height; y++ {
				for x := 0; x < tt.width; x++ {
					for c := 0; c < tt.channels; c++ {
						if got, want := buf.At(x, y, c), src.Value(x, y, c); got != want {
							t.Fatalf("pixel (%d,%d,%d) = %v, want %v", x, y, c, got, want)
						}
					}
				}
			}
		})
	}
}

func TestWriter_Uint8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rgb.tif")
	w, err := Create(path, 20, 20, 3, WriterOptions{TileSize: 16, DataType: Uint8})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	buf := raster.NewBuffer(region.New(0, 0, 20, 20), 3)
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			buf.Set(x, y, 0, float32(x*20))
			buf.Set(x, y, 1, -5)
			buf.Set(x, y, 2, 300)
		}
	}
	if err := w.WriteRegion(buf); err != nil {
		t.Fatalf("WriteRegion: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if got := r.IFD(0).Photometric; got != photoRGB {
		t.Errorf("photometric = %d, want %d", got, photoRGB)
	}
	got, err := NewSource(r, 4).Fetch(region.New(5, 18, 2, 2))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if v := got.At(6, 19, 0); v != 120 {
		t.Errorf("red = %v, want 120", v)
	}
	if v := got.At(6, 19, 1); v != 0 {
		t.Errorf("green = %v, want 0 (clamped)", v)
	}
	if v := got.At(6, 19, 2); v != 255 {
		t.Errorf("blue = %v, want 255 (clamped)", v)
	}
}

func TestWriter_UnwrittenTilesAreSparse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sparse.tif")
	w, err := Create(path, 32, 32, 1, WriterOptions{TileSize: 16})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Fill only the top-left tile, partially.
	buf := raster.NewBuffer(region.New(0, 0, 8, 8), 1)
	for i := range buf.Pix {
		buf.Pix[i] = 7
	}
	if err := w.WriteRegion(buf); err != nil {
		t.Fatalf("WriteRegion: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	ifd := r.IFD(0)
	if ifd.TileByteCounts[0] == 0 {
		t.Error("partially written tile was not flushed on Close")
	}
	for i := 1; i < 4; i++ {
		if ifd.TileByteCounts[i] != 0 {
			t.Errorf("tile %d byte count = %d, want 0", i, ifd.TileByteCounts[i])
		}
	}
	tile, err := r.ReadTile(0, 0)
	if err != nil {
		t.Fatalf("ReadTile: %v", err)
	}
	if tile[0] != 7 || tile[15] != 0 {
		t.Errorf("tile row 0 = %v..%v, want 7..0", tile[0], tile[15])
	}
}

func TestWriter_GeoTags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geo.tif")
	geo := GeoInfo{EPSG: 2056, OriginX: 2600000, OriginY: 1200000, PixelSizeX: 0.5, PixelSizeY: 0.5}
	src := raster.NewSynthetic(16, 16, 1, 0)
	writeSynthetic(t, path, src, 16, WriterOptions{TileSize: 16, Geo: geo, Software: "rasterprefetch"})

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if got := r.GeoInfo(); got != geo {
		t.Errorf("GeoInfo() = %+v, want %+v", got, geo)
	}
	if got := r.Describe()["software"]; got != "rasterprefetch" {
		t.Errorf("software = %q, want rasterprefetch", got)
	}
	minX, minY, maxX, maxY := r.BoundsInCRS()
	if minX != 2600000 || maxY != 1200000 || maxX != 2600008 || minY != 1199992 {
		t.Errorf("BoundsInCRS() = %v %v %v %v", minX, minY, maxX, maxY)
	}
}

func TestWriter_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		w, h int
		ch   int
		opts WriterOptions
	}{
		{"zero size", 0, 10, 1, WriterOptions{}},
		{"zero channels", 10, 10, 0, WriterOptions{}},
		{"tile not multiple of 16", 10, 10, 1, WriterOptions{TileSize: 20}},
		{"data type", 10, 10, 1, WriterOptions{DataType: "int16"}},
		{"compression", 10, 10, 1, WriterOptions{Compression: "lzw"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Create(filepath.Join(dir, "x.tif"), tt.w, tt.h, tt.ch, tt.opts); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}

	w, err := Create(filepath.Join(dir, "ok.tif"), 16, 16, 1, WriterOptions{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.WriteRegion(raster.NewBuffer(region.New(0, 0, 4, 4), 2)); err == nil {
		t.Error("channel mismatch accepted")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if err := w.WriteRegion(raster.NewBuffer(region.New(0, 0, 4, 4), 1)); err == nil {
		t.Error("write after Close accepted")
	}
	if _, err := os.Stat(filepath.Join(dir, "ok.tif")); err != nil {
		t.Errorf("output missing: %v", err)
	}
}
