package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pspoerri/rasterprefetch/internal/cog"
	"github.com/pspoerri/rasterprefetch/internal/coord"
	"github.com/pspoerri/rasterprefetch/internal/report"
)

func newInfoCmd(g *globalFlags) *cobra.Command {
	var samples int
	cmd := &cobra.Command{
		Use:   "info <file.tif>",
		Short: "Print raster metadata",
		Long: `Print the size, layout, georeferencing and encoding of a GeoTIFF, then
decode the first tile of every level to check that it can be read.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := g.load(); err != nil {
				return err
			}
			return runInfo(cmd.OutOrStdout(), args[0], samples)
		},
	}
	cmd.Flags().IntVar(&samples, "samples", 5, "number of diagonal pixels to print from the first tile")
	return cmd
}

func runInfo(w io.Writer, path string, samples int) error {
	r, err := cog.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	geo := r.GeoInfo()
	tw, th := r.TileSize()
	minX, minY, maxX, maxY := r.BoundsInCRS()
	pairs := [][2]string{
		{"File", path},
		{"Size", fmt.Sprintf("%d x %d", r.Width(), r.Height())},
		{"Bands", fmt.Sprint(r.Bands())},
		{"Tile size", fmt.Sprintf("%d x %d", tw, th)},
		{"EPSG", fmt.Sprint(geo.EPSG)},
		{"Pixel size", fmt.Sprintf("%g x %g", geo.PixelSizeX, geo.PixelSizeY)},
		{"Origin", fmt.Sprintf("X=%f, Y=%f", geo.OriginX, geo.OriginY)},
		{"Bounds", fmt.Sprintf("X=[%f, %f], Y=[%f, %f]", minX, maxX, minY, maxY)},
	}
	if b, ok := coord.ToWGS84(geo.EPSG, minX, minY, maxX, maxY); ok {
		pairs = append(pairs, [2]string{"Bounds (WGS84)", b.String()})
	}
	desc := r.Describe()
	keys := make([]string, 0, len(desc))
	for k := range desc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, desc[k]})
	}
	report.PrintPairs(w, pairs)

	for level := 0; level <= r.NumOverviews(); level++ {
		ifd := r.IFD(level)
		fmt.Fprintf(w, "\n  IFD %d: %dx%d, tile %dx%d\n", level, ifd.Width, ifd.Height, ifd.TileWidth, ifd.TileHeight)
		tile, err := r.ReadTileLevel(level, 0, 0)
		if err != nil {
			fmt.Fprintf(w, "  ReadTile(level=%d, 0, 0): ERROR: %v\n", level, err)
			continue
		}
		fmt.Fprintf(w, "  ReadTile(level=%d, 0, 0): OK, %d samples\n", level, len(tile))
		if level == 0 {
			samplePixels(w, tile, int(ifd.TileWidth), int(ifd.TileHeight), r.Bands(), samples)
		}
	}
	return nil
}

// samplePixels prints count pixels along the diagonal of a decoded tile.
func samplePixels(w io.Writer, tile []float32, tw, th, bands, count int) {
	if count <= 0 {
		return
	}
	step := max(min(tw, th)/(count+1), 1)
	fmt.Fprintf(w, "  Sample pixels (diagonal):\n")
	for i := 0; i < count; i++ {
		x, y := (i+1)*step, (i+1)*step
		if x >= tw || y >= th {
			break
		}
		off := (y*tw + x) * bands
		fmt.Fprintf(w, "    (%d,%d): %v\n", x, y, tile[off:off+bands])
	}
}

func humanSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
