package commands

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pspoerri/rasterprefetch/internal/cog"
	"github.com/pspoerri/rasterprefetch/internal/logger"
	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

type synthOptions struct {
	width       int
	height      int
	bands       int
	tileSize    int
	dataType    string
	compression string
	epsg        int
	originX     float64
	originY     float64
	pixelSize   float64
}

func newSynthCmd(g *globalFlags) *cobra.Command {
	o := &synthOptions{}
	cmd := &cobra.Command{
		Use:   "synth <output.tif>",
		Short: "Write a synthetic tiled GeoTIFF",
		Long: `Write a tiled GeoTIFF filled with a deterministic gradient.

Sample (x, y) of band c is x + y/4 + 1000c; uint8 output wraps it modulo 256.

Examples:
  # A 20000x20000 single-band float32 image
  rasterprefetch synth big.tif --width 20000 --height 20000

  # A small RGB image in Swiss LV95
  rasterprefetch synth rgb.tif --bands 3 --data-type uint8 --epsg 2056 --origin-x 2600000 --origin-y 1200000`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := g.load(); err != nil {
				return err
			}
			return runSynth(cmd, args[0], o)
		},
	}

	f := cmd.Flags()
	f.IntVar(&o.width, "width", 4096, "image width in pixels")
	f.IntVar(&o.height, "height", 4096, "image height in pixels")
	f.IntVar(&o.bands, "bands", 1, "number of bands")
	f.IntVar(&o.tileSize, "tile-size", 256, "TIFF tile size in pixels (multiple of 16)")
	f.StringVar(&o.dataType, "data-type", "float32", "sample type: float32, uint8")
	f.StringVar(&o.compression, "compression", "deflate", "tile compression: none, deflate")
	f.IntVar(&o.epsg, "epsg", 0, "EPSG code to georeference the image with (0 = none)")
	f.Float64Var(&o.originX, "origin-x", 0, "easting of the upper-left corner")
	f.Float64Var(&o.originY, "origin-y", 0, "northing of the upper-left corner")
	f.Float64Var(&o.pixelSize, "pixel-size", 1, "pixel size in CRS units")
	return cmd
}

func runSynth(cmd *cobra.Command, path string, o *synthOptions) error {
	if o.tileSize <= 0 {
		return fmt.Errorf("tile size must be positive, got %d", o.tileSize)
	}
	start := time.Now()
	opts := cog.WriterOptions{
		TileSize:    o.tileSize,
		DataType:    cog.DataType(o.dataType),
		Compression: o.compression,
		Software:    "rasterprefetch " + Version,
	}
	if o.epsg > 0 {
		opts.Geo = cog.GeoInfo{
			EPSG:       o.epsg,
			OriginX:    o.originX,
			OriginY:    o.originY,
			PixelSizeX: o.pixelSize,
			PixelSizeY: o.pixelSize,
		}
	}

	w, err := cog.Create(path, o.width, o.height, o.bands, opts)
	if err != nil {
		return err
	}
	src := raster.NewSynthetic(o.width, o.height, o.bands, 0)
	ext := src.Extent()

	// One row of tiles at a time keeps at most one tile row pending.
	for y := 0; y < ext.H(); y += opts.TileSize {
		r, _ := region.Crop(region.New(0, y, ext.W(), opts.TileSize), ext)
		buf, err := src.Fetch(r)
		if err != nil {
			w.Close()
			return err
		}
		if opts.DataType == cog.Uint8 {
			for i, v := range buf.Pix {
				buf.Pix[i] = float32(math.Mod(float64(v), 256))
			}
		}
		err = w.WriteRegion(buf)
		raster.PutBuffer(buf)
		if err != nil {
			w.Close()
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	logger.Debug("synthetic image written", "path", path, "elapsed_ms", logger.Duration(start))
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Done: %dx%dx%d %s, %s → %s\n",
		o.width, o.height, o.bands, o.dataType, humanSize(fi.Size()), path)
	return err
}
