package coord

import (
	"fmt"
	"math"
)

// Bounds is a WGS84 bounding box in degrees.
type Bounds struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

func (b Bounds) String() string {
	return fmt.Sprintf("lon=[%.6f, %.6f], lat=[%.6f, %.6f]", b.MinLon, b.MaxLon, b.MinLat, b.MaxLat)
}

// edgeSamples is the number of points sampled along each edge; projected
// edges are curves, so the corners alone can miss the extremes.
const edgeSamples = 16

// ToWGS84 projects the CRS box (minX, minY, maxX, maxY) of epsg to WGS84.
// ok is false when epsg is unsupported or the box is empty.
func ToWGS84(epsg int, minX, minY, maxX, maxY float64) (b Bounds, ok bool) {
	p := ForEPSG(epsg)
	if p == nil || !(maxX > minX) || !(maxY > minY) {
		return Bounds{}, false
	}
	b = Bounds{MinLon: math.Inf(1), MinLat: math.Inf(1), MaxLon: math.Inf(-1), MaxLat: math.Inf(-1)}
	add := func(x, y float64) {
		lon, lat := p.ToWGS84(x, y)
		b.MinLon = min(b.MinLon, lon)
		b.MaxLon = max(b.MaxLon, lon)
		b.MinLat = min(b.MinLat, lat)
		b.MaxLat = max(b.MaxLat, lat)
	}
	for i := 0; i <= edgeSamples; i++ {
		t := float64(i) / edgeSamples
		x := minX + t*(maxX-minX)
		y := minY + t*(maxY-minY)
		add(x, minY)
		add(x, maxY)
		add(minX, y)
		add(maxX, y)
	}
	return b, true
}
