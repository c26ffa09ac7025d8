// Package coord converts raster bounds between the supported coordinate
// reference systems and WGS84.
package coord

import "math"

// Projection converts between a projected CRS and WGS84 degrees.
type Projection interface {
	ToWGS84(x, y float64) (lon, lat float64)
	FromWGS84(lon, lat float64) (x, y float64)
	EPSG() int
}

// ForEPSG returns the projection for epsg, or nil if it is not supported.
func ForEPSG(epsg int) Projection {
	switch epsg {
	case 2056:
		return SwissLV95{}
	case 3857:
		return WebMercator{}
	case 4326:
		return WGS84{}
	default:
		return nil
	}
}

// WGS84 is the identity projection for EPSG:4326.
type WGS84 struct{}

func (WGS84) ToWGS84(x, y float64) (lon, lat float64)   { return x, y }
func (WGS84) FromWGS84(lon, lat float64) (x, y float64) { return lon, lat }
func (WGS84) EPSG() int                                 { return 4326 }

// originShift is half the equatorial circumference in metres.
const originShift = 40075016.685578488 / 2

// WebMercator is EPSG:3857.
type WebMercator struct{}

func (WebMercator) EPSG() int { return 3857 }

func (WebMercator) ToWGS84(x, y float64) (lon, lat float64) {
	lon = x / originShift * 180
	lat = y / originShift * 180
	lat = 180 / math.Pi * (2*math.Atan(math.Exp(lat*math.Pi/180)) - math.Pi/2)
	return lon, lat
}

func (WebMercator) FromWGS84(lon, lat float64) (x, y float64) {
	x = lon * originShift / 180
	y = math.Log(math.Tan((90+lat)*math.Pi/360)) / (math.Pi / 180)
	return x, y * originShift / 180
}

// SwissLV95 is EPSG:2056 (CH1903+ / LV95), using swisstopo's polynomial
// approximation. Accuracy is about a metre inside Switzerland.
type SwissLV95 struct{}

func (SwissLV95) EPSG() int { return 2056 }

func (SwissLV95) ToWGS84(easting, northing float64) (lon, lat float64) {
	// Offsets from the Bern origin in 1000 km.
	y := (easting - 2_600_000) / 1_000_000
	x := (northing - 1_200_000) / 1_000_000

	// Results in units of 10000".
	lon = 2.6779094 + 4.728982*y + 0.791484*y*x + 0.1306*y*x*x - 0.0436*y*y*y
	lat = 16.9023892 + 3.238272*x - 0.270978*y*y - 0.002528*x*x - 0.0447*y*y*x - 0.0140*x*x*x
	return lon * 100 / 36, lat * 100 / 36
}

func (SwissLV95) FromWGS84(lon, lat float64) (easting, northing float64) {
	phi := (lat*3600 - 169028.66) / 10000
	lambda := (lon*3600 - 26782.5) / 10000

	easting = 2_600_072.37 + 211_455.93*lambda - 10_938.51*lambda*phi -
		0.36*lambda*phi*phi - 44.54*lambda*lambda*lambda
	northing = 1_200_147.07 + 308_807.95*phi + 3_745.25*lambda*lambda +
		76.63*phi*phi - 194.56*lambda*lambda*phi + 119.79*phi*phi*phi
	return easting, northing
}
