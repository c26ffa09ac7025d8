package cog

import (
	"fmt"

	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

// Source reads arbitrary regions of a GeoTIFF by assembling the decoded
// tiles that cover them. It satisfies prefetch.Source.
type Source struct {
	reader *Reader
	tiles  *TileCache
	meta   raster.Metadata
	tw, th int
}

// NewSource wraps r. cacheTiles bounds the number of decoded tiles kept in
// memory; zero selects a default.
func NewSource(r *Reader, cacheTiles int) *Source {
	tw, th := r.TileSize()
	geo := r.GeoInfo()
	return &Source{
		reader: r,
		tiles:  NewTileCache(cacheTiles),
		tw:     tw,
		th:     th,
		meta: raster.Metadata{
			Extent:     region.New(0, 0, r.Width(), r.Height()),
			Channels:   r.Bands(),
			OriginX:    geo.OriginX,
			OriginY:    geo.OriginY,
			SpacingX:   geo.PixelSizeX,
			SpacingY:   geo.PixelSizeY,
			EPSG:       geo.EPSG,
			Dictionary: r.Describe(),
		},
	}
}

// Fetch returns the pixels of rect. rect must lie inside the extent.
func (s *Source) Fetch(rect region.Rect) (*raster.Buffer, error) {
	if !region.Contains(s.meta.Extent, rect) {
		return nil, fmt.Errorf("%s: region %v outside extent %v", s.reader.Path(), rect, s.meta.Extent)
	}

	buf := raster.GetBuffer(rect, s.meta.Channels)
	upper := region.UpperIndex(rect)
	for row := rect.Y() / s.th; row <= upper[1]/s.th; row++ {
		for col := rect.X() / s.tw; col <= upper[0]/s.tw; col++ {
			data, err := s.tile(col, row)
			if err != nil {
				raster.PutBuffer(buf)
				return nil, err
			}
			tile := &raster.Buffer{
				Region:   region.New(col*s.tw, row*s.th, s.tw, s.th),
				Channels: s.meta.Channels,
				Pix:      data,
			}
			if _, err := buf.CopyFrom(tile); err != nil {
				raster.PutBuffer(buf)
				return nil, err
			}
		}
	}
	return buf, nil
}

func (s *Source) tile(col, row int) ([]float32, error) {
	if data := s.tiles.Get(col, row); data != nil {
		return data, nil
	}
	data, err := s.reader.ReadTile(col, row)
	if err != nil {
		return nil, err
	}
	s.tiles.Put(col, row, data)
	return data, nil
}

func (s *Source) Extent() region.Rect       { return s.meta.Extent }
func (s *Source) Channels() int             { return s.meta.Channels }
func (s *Source) Metadata() raster.Metadata { return s.meta }

// TileCache exposes the decoded tile cache for statistics.
func (s *Source) TileCache() *TileCache { return s.tiles }
