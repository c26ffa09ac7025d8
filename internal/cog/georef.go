package cog

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GeoTIFF GeoKey IDs.
const (
	gkModelType         = 1024
	gkRasterType        = 1025
	gkGeographicType    = 2048
	gkProjectedCSType   = 3072
	modelTypeProjected  = 1
	modelTypeGeographic = 2
	rasterPixelIsArea   = 1
)

// GeoInfo holds the georeferencing of a raster.
type GeoInfo struct {
	EPSG       int     // EPSG code (e.g. 2056), 0 if unknown
	OriginX    float64 // easting of upper-left corner
	OriginY    float64 // northing of upper-left corner
	PixelSizeX float64 // pixel width in CRS units (positive)
	PixelSizeY float64 // pixel height in CRS units (positive)
}

// Valid reports whether the pixel size is known.
func (g GeoInfo) Valid() bool {
	return g.PixelSizeX > 0 && g.PixelSizeY > 0
}

// parseGeoInfo extracts georeferencing from the GeoTIFF tags of ifd.
func parseGeoInfo(ifd *IFD) GeoInfo {
	var info GeoInfo

	// ModelPixelScale: [ScaleX, ScaleY, ScaleZ]
	if len(ifd.ModelPixelScale) >= 2 {
		info.PixelSizeX = ifd.ModelPixelScale[0]
		info.PixelSizeY = ifd.ModelPixelScale[1]
	}

	// ModelTiepoint: [I, J, K, X, Y, Z] maps pixel (I,J) to (X,Y).
	if len(ifd.ModelTiepoint) >= 6 {
		info.OriginX = ifd.ModelTiepoint[3] - ifd.ModelTiepoint[0]*info.PixelSizeX
		info.OriginY = ifd.ModelTiepoint[4] + ifd.ModelTiepoint[1]*info.PixelSizeY
	}

	info.EPSG = parseEPSG(ifd.GeoKeys)
	return info
}

// parseEPSG extracts the EPSG code from GeoKey directory entries.
func parseEPSG(geoKeys []uint16) int {
	if len(geoKeys) < 4 {
		return 0
	}
	// Header: [KeyDirectoryVersion, KeyRevision, MinorRevision, NumberOfKeys]
	numKeys := int(geoKeys[3])
	for i := 0; i < numKeys; i++ {
		base := 4 + i*4
		if base+3 >= len(geoKeys) {
			break
		}
		switch geoKeys[base] {
		case gkProjectedCSType, gkGeographicType:
			if v := geoKeys[base+3]; v > 0 && v != 32767 {
				return int(v)
			}
		}
	}
	return 0
}

// encodeGeoKeys builds a GeoKey directory declaring epsg. Codes 4000-4999
// are written as geographic systems, everything else as projected.
func encodeGeoKeys(epsg int) []uint16 {
	keys := [][4]uint16{{gkRasterType, 0, 1, rasterPixelIsArea}}
	if epsg > 0 {
		if epsg >= 4000 && epsg < 5000 {
			keys = append([][4]uint16{{gkModelType, 0, 1, modelTypeGeographic}}, keys...)
			keys = append(keys, [4]uint16{gkGeographicType, 0, 1, uint16(epsg)})
		} else {
			keys = append([][4]uint16{{gkModelType, 0, 1, modelTypeProjected}}, keys...)
			keys = append(keys, [4]uint16{gkProjectedCSType, 0, 1, uint16(epsg)})
		}
	}
	out := []uint16{1, 1, 0, uint16(len(keys))}
	for _, k := range keys {
		out = append(out, k[:]...)
	}
	return out
}

// readWorldFile reads the six-line TIFF world file next to tiffPath, if any.
// The world file origin is the centre of the upper-left pixel; the returned
// origin is its outer corner. Rotated world files are rejected.
func readWorldFile(tiffPath string) (GeoInfo, bool, error) {
	ext := filepath.Ext(tiffPath)
	base := strings.TrimSuffix(tiffPath, ext)

	var path string
	for _, c := range []string{".tfw", ".TFW", ".tifw", ".TIFW"} {
		if _, err := os.Stat(base + c); err == nil {
			path = base + c
			break
		}
	}
	if path == "" {
		return GeoInfo{}, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return GeoInfo{}, false, fmt.Errorf("reading world file %s: %w", path, err)
	}
	fields := strings.Fields(string(data))
	if len(fields) < 6 {
		return GeoInfo{}, false, fmt.Errorf("world file %s: expected 6 values, got %d", path, len(fields))
	}
	var v [6]float64
	for i := range v {
		if v[i], err = strconv.ParseFloat(fields[i], 64); err != nil {
			return GeoInfo{}, false, fmt.Errorf("world file %s line %d: %w", path, i+1, err)
		}
	}
	if v[1] != 0 || v[2] != 0 {
		return GeoInfo{}, false, fmt.Errorf("world file %s: rotated world files are not supported", path)
	}

	sx, sy := math.Abs(v[0]), math.Abs(v[3])
	return GeoInfo{
		PixelSizeX: sx,
		PixelSizeY: sy,
		OriginX:    v[4] - sx/2,
		OriginY:    v[5] + sy/2,
	}, true, nil
}

// inferEPSG guesses the EPSG code from the coordinate ranges when the file
// does not declare one.
func inferEPSG(info GeoInfo, width, height int) int {
	maxX := info.OriginX + float64(width)*info.PixelSizeX
	minY := info.OriginY - float64(height)*info.PixelSizeY

	if info.OriginX >= -180 && maxX <= 360 && minY >= -90 && info.OriginY <= 90 {
		return 4326
	}
	if info.OriginX >= 2400000 && info.OriginX <= 2900000 &&
		info.OriginY >= 1000000 && info.OriginY <= 1400000 {
		return 2056
	}
	if math.Abs(info.OriginX) <= 20037508.34 && math.Abs(info.OriginY) <= 20048966.10 {
		return 3857
	}
	return 0
}
