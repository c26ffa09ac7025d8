package encode

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

// gradient returns an RGB buffer at (x0,y0) with values in 0..255.
func gradient(x0, y0, size int) *raster.Buffer {
	b := raster.NewBuffer(region.New(x0, y0, size, size), 3)
	for y := y0; y < y0+size; y++ {
		for x := x0; x < x0+size; x++ {
			b.Set(x, y, 0, float32((x-x0)%256))
			b.Set(x, y, 1, float32((y-y0)%256))
			b.Set(x, y, 2, float32((x+y-x0-y0)%256))
		}
	}
	return b
}

func TestNewEncoder(t *testing.T) {
	tests := []struct {
		format  string
		wantFmt string
		wantExt string
		wantErr bool
	}{
		{"jpeg", "jpeg", ".jpg", false},
		{"jpg", "jpeg", ".jpg", false},
		{"png", "png", ".png", false},
		{"webp", "webp", ".webp", false},
		{"terrarium", "terrarium", ".png", false},
		{"bmp", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			enc, err := NewEncoder(tt.format, 85)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if enc.Format() != tt.wantFmt {
				t.Errorf("Format() = %q, want %q", enc.Format(), tt.wantFmt)
			}
			if enc.FileExtension() != tt.wantExt {
				t.Errorf("FileExtension() = %q, want %q", enc.FileExtension(), tt.wantExt)
			}
		})
	}
}

func TestPNG_BufferRoundTrip(t *testing.T) {
	buf := gradient(100, 40, 64)
	enc, _ := NewEncoder("png", 0)
	data, err := EncodeBuffer(enc, buf, Range{})
	if err != nil {
		t.Fatalf("EncodeBuffer: %v", err)
	}

	decoded, err := DecodeImage(data, "png")
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 64 || b.Dy() != 64 {
		t.Fatalf("decoded size = %dx%d, want 64x64", b.Dx(), b.Dy())
	}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			r, g, b, a := decoded.At(x, y).RGBA()
			want := [4]uint32{uint32(x), uint32(y), uint32(x + y), 255}
			if got := [4]uint32{r >> 8, g >> 8, b >> 8, a >> 8}; got != want {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got, want)
			}
		}
	}
}

func TestJPEG_Lossy(t *testing.T) {
	buf := gradient(0, 0, 64)
	enc := &JPEGEncoder{Quality: 85}
	data, err := EncodeBuffer(enc, buf, Range{})
	if err != nil {
		t.Fatalf("EncodeBuffer: %v", err)
	}
	decoded, err := DecodeImage(data, "jpeg")
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}

	maxDiff := 0
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			r, _, _, _ := decoded.At(x, y).RGBA()
			diff := int(r>>8) - x
			if diff < 0 {
				diff = -diff
			}
			maxDiff = max(maxDiff, diff)
		}
	}
	// At quality 85, max diff should be small (JPEG compression artifacts).
	if maxDiff > 30 {
		t.Errorf("JPEG max pixel diff = %d, want <= 30 for quality 85", maxDiff)
	}
}

func TestWebP_RoundTrip(t *testing.T) {
	enc, err := NewEncoder("webp", 90)
	if err != nil {
		t.Fatalf("NewEncoder: %v", err)
	}
	data, err := EncodeBuffer(enc, gradient(0, 0, 32), Range{})
	if err != nil {
		t.Fatalf("EncodeBuffer: %v", err)
	}
	decoded, err := DecodeImage(data, "webp")
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	if b := decoded.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Errorf("decoded size = %dx%d, want 32x32", b.Dx(), b.Dy())
	}
}

func TestTerrarium_RoundTrip(t *testing.T) {
	elev := raster.NewBuffer(region.New(0, 0, 4, 1), 1)
	copy(elev.Pix, []float32{-100.5, 0, 4478.25, float32(math.NaN())})

	enc := &TerrariumEncoder{}
	data, err := EncodeBuffer(enc, elev, Range{})
	if err != nil {
		t.Fatalf("EncodeBuffer: %v", err)
	}
	img, err := DecodeImage(data, "terrarium")
	if err != nil {
		t.Fatalf("DecodeImage: %v", err)
	}
	for x, want := range []float64{-100.5, 0, 4478.25} {
		c := color.RGBAModel.Convert(img.At(x, 0)).(color.RGBA)
		if got := TerrariumToElevation(c); math.Abs(got-want) > 1.0/256 {
			t.Errorf("elevation %d = %v, want %v", x, got, want)
		}
	}
	c := color.RGBAModel.Convert(img.At(3, 0)).(color.RGBA)
	if !math.IsNaN(TerrariumToElevation(c)) {
		t.Error("NaN elevation did not round-trip as nodata")
	}
}

func TestToImage_Channels(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		samples  []float32
		want     color.RGBA
	}{
		{"gray", 1, []float32{77}, color.RGBA{77, 77, 77, 255}},
		{"gray alpha", 2, []float32{10, 128}, color.RGBA{10, 10, 10, 128}},
		{"rgb", 3, []float32{1, 2, 3}, color.RGBA{1, 2, 3, 255}},
		{"rgba", 4, []float32{1, 2, 3, 4}, color.RGBA{1, 2, 3, 4}},
		{"five bands", 5, []float32{1, 2, 3, 4, 5}, color.RGBA{1, 2, 3, 4}},
		{"clamped", 1, []float32{-3}, color.RGBA{0, 0, 0, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := raster.NewBuffer(region.New(5, 5, 1, 1), tt.channels)
			copy(b.Pix, tt.samples)
			img := ToImage(b, Range{})
			defer ReleaseImage(img)
			if got := img.RGBAAt(0, 0); got != tt.want {
				t.Errorf("pixel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRange_Scale(t *testing.T) {
	r := Range{Min: 1000, Max: 2000}
	tests := []struct {
		in   float32
		want uint8
	}{
		{500, 0},
		{1000, 0},
		{1500, 128},
		{2000, 255},
		{9000, 255},
		{float32(math.NaN()), 0},
	}
	for _, tt := range tests {
		if got := r.scale(tt.in); got != tt.want {
			t.Errorf("scale(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRGBAPool_ReturnsZeroedImages(t *testing.T) {
	img := getRGBA(8, 8)
	img.Pix[0] = 200
	putRGBA(img)

	again := getRGBA(8, 8)
	if again.Pix[0] != 0 {
		t.Errorf("pooled image not cleared: Pix[0] = %d", again.Pix[0])
	}
	if again.Bounds() != image.Rect(0, 0, 8, 8) {
		t.Errorf("bounds = %v", again.Bounds())
	}
	putRGBA(nil)
}
