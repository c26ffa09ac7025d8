package coord

import (
	"math"
	"testing"
)

func TestForEPSG(t *testing.T) {
	tests := []struct {
		epsg     int
		wantNil  bool
		wantEPSG int
	}{
		{2056, false, 2056},
		{4326, false, 4326},
		{3857, false, 3857},
		{32632, true, 0}, // UTM 32N, unsupported
		{0, true, 0},
	}
	for _, tt := range tests {
		p := ForEPSG(tt.epsg)
		if tt.wantNil {
			if p != nil {
				t.Errorf("ForEPSG(%d) = %v, want nil", tt.epsg, p)
			}
			continue
		}
		if p == nil {
			t.Fatalf("ForEPSG(%d) = nil, want non-nil", tt.epsg)
		}
		if got := p.EPSG(); got != tt.wantEPSG {
			t.Errorf("ForEPSG(%d).EPSG() = %d, want %d", tt.epsg, got, tt.wantEPSG)
		}
	}
}

func TestSwissLV95_ReferencePoints(t *testing.T) {
	// swisstopo reference points.
	refs := []struct {
		name              string
		easting, northing float64
		lon, lat          float64
		tol               float64
	}{
		{"Bern", 2_600_000, 1_200_000, 7.438632, 46.951083, 0.001},
		{"Zurich", 2_683_474, 1_247_862, 8.5417, 47.3769, 0.005},
		{"Geneva", 2_500_560, 1_118_017, 6.1432, 46.2075, 0.01},
	}
	for _, ref := range refs {
		t.Run(ref.name, func(t *testing.T) {
			lon, lat := SwissLV95{}.ToWGS84(ref.easting, ref.northing)
			if math.Abs(lon-ref.lon) > ref.tol || math.Abs(lat-ref.lat) > ref.tol {
				t.Errorf("ToWGS84 = (%.6f, %.6f), want ~(%.6f, %.6f)", lon, lat, ref.lon, ref.lat)
			}
		})
	}
}

func TestProjectionRoundTrip(t *testing.T) {
	points := [][2]float64{
		{8.5417, 47.3769}, // Zurich
		{6.6323, 46.5197}, // Lausanne
		{8.9511, 46.0037}, // Lugano
	}
	for _, p := range []Projection{WGS84{}, WebMercator{}, SwissLV95{}} {
		for _, pt := range points {
			x, y := p.FromWGS84(pt[0], pt[1])
			lon, lat := p.ToWGS84(x, y)
			// LV95 is a polynomial approximation; ~1m is fine.
			if math.Abs(lon-pt[0]) > 1e-4 || math.Abs(lat-pt[1]) > 1e-4 {
				t.Errorf("EPSG:%d round trip of %v = (%.6f, %.6f)", p.EPSG(), pt, lon, lat)
			}
		}
	}
}

func TestWebMercator_Origin(t *testing.T) {
	lon, lat := WebMercator{}.ToWGS84(0, 0)
	if math.Abs(lon) > 1e-10 || math.Abs(lat) > 1e-10 {
		t.Errorf("ToWGS84(0, 0) = (%v, %v), want (0, 0)", lon, lat)
	}
	if x, _ := (WebMercator{}).FromWGS84(180, 0); math.Abs(x-originShift) > 1 {
		t.Errorf("FromWGS84(180, 0).x = %v, want ~%v", x, originShift)
	}
}

func TestToWGS84_Bounds(t *testing.T) {
	// 10 km square south-east of Bern.
	b, ok := ToWGS84(2056, 2_600_000, 1_190_000, 2_610_000, 1_200_000)
	if !ok {
		t.Fatal("ToWGS84 failed for EPSG:2056")
	}
	if b.MinLon > 7.4387 || b.MaxLat < 46.951 {
		t.Errorf("bounds %v do not contain the Bern origin", b)
	}
	if b.MaxLon-b.MinLon < 0.12 || b.MaxLon-b.MinLon > 0.14 {
		t.Errorf("longitude span %.4f, want ~0.13 for 10 km", b.MaxLon-b.MinLon)
	}

	if _, ok := ToWGS84(32632, 0, 0, 1, 1); ok {
		t.Error("unsupported EPSG accepted")
	}
	if _, ok := ToWGS84(4326, 1, 1, 1, 2); ok {
		t.Error("empty box accepted")
	}
	if b, _ := ToWGS84(4326, 5, 45, 6, 46); b != (Bounds{5, 45, 6, 46}) {
		t.Errorf("identity bounds = %v", b)
	}
}
