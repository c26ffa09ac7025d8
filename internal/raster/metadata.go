package raster

import "github.com/pspoerri/rasterprefetch/internal/region"

// Metadata describes a raster source. It is read once when the source is
// opened and does not change afterwards.
type Metadata struct {
	Extent   region.Rect
	Channels int

	// Georeferencing of the upper-left corner of pixel (0, 0).
	OriginX, OriginY   float64
	SpacingX, SpacingY float64
	EPSG               int

	// Dictionary carries free-form key/value pairs such as the TIFF
	// software tag or the sample format.
	Dictionary map[string]string
}

// Bounds returns the georeferenced bounding box (minX, minY, maxX, maxY).
func (m Metadata) Bounds() (minX, minY, maxX, maxY float64) {
	minX = m.OriginX
	maxY = m.OriginY
	maxX = m.OriginX + float64(m.Extent.W())*m.SpacingX
	minY = m.OriginY - float64(m.Extent.H())*m.SpacingY
	return
}
