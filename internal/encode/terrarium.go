package encode

import (
	"image/color"
	"math"
)

// terrariumOffset shifts elevations so that -32768 m encodes as zero.
const terrariumOffset = 32768

// ElevationToTerrarium encodes an elevation in metres as
// R*256 + G + B/256 - 32768. NaN and infinities become transparent nodata;
// values outside the representable range are clamped.
func ElevationToTerrarium(elevation float64) color.RGBA {
	if math.IsNaN(elevation) || math.IsInf(elevation, 0) {
		return color.RGBA{}
	}
	v := min(max(elevation+terrariumOffset, 0), 65535+255.0/256)

	hi := math.Floor(v / 256)
	mid := math.Floor(v - hi*256)
	lo := math.Floor((v - hi*256 - mid) * 256)
	return color.RGBA{R: clampByte(hi), G: clampByte(mid), B: clampByte(lo), A: 255}
}

// TerrariumToElevation decodes a Terrarium pixel. Transparent pixels are
// nodata and return NaN.
func TerrariumToElevation(c color.RGBA) float64 {
	if c.A == 0 {
		return math.NaN()
	}
	return float64(c.R)*256 + float64(c.G) + float64(c.B)/256 - terrariumOffset
}

func clampByte(v float64) uint8 {
	return uint8(min(max(v, 0), 255))
}
