package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pspoerri/rasterprefetch/internal/bytesize"
	"github.com/pspoerri/rasterprefetch/internal/cog"
	"github.com/pspoerri/rasterprefetch/internal/config"
	"github.com/pspoerri/rasterprefetch/internal/coord"
	"github.com/pspoerri/rasterprefetch/internal/encode"
	"github.com/pspoerri/rasterprefetch/internal/filter"
	"github.com/pspoerri/rasterprefetch/internal/logger"
	"github.com/pspoerri/rasterprefetch/internal/metrics"
	"github.com/pspoerri/rasterprefetch/internal/pipeline"
	"github.com/pspoerri/rasterprefetch/internal/prefetch"
	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/report"
	"github.com/pspoerri/rasterprefetch/internal/sink"
	"github.com/pspoerri/rasterprefetch/internal/stream"
	"github.com/pspoerri/rasterprefetch/internal/sysinfo"
)

// runFlags hold the command line overrides of the run command. They are
// applied on top of the loaded configuration only when set.
type runFlags struct {
	stream      string
	tileSize    int
	noPrefetch  bool
	maxPrefetch string
	tileCache   int
	latency     time.Duration
	filter      string
	radius      int
	format      string
	quality     int
	workers     int
	metricsAddr string
	report      string
	noProgress  bool
	cpuProfile  string
	memProfile  string
}

func newRunCmd(g *globalFlags) *cobra.Command {
	o := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run <input.tif> <output>",
		Short: "Stream a raster through the prefetch cache and a filter",
		Long: `Stream the input region by region through the predictive prefetch cache,
apply the filter to every region and write the result.

The output is a tiled GeoTIFF when it ends in .tif or .tiff, nothing at all
when it is "-", and a directory of encoded tiles named <x>_<y>.<ext> otherwise.

Examples:
  # Mean filter over 512px tiles, GeoTIFF output
  rasterprefetch run big.tif smooth.tif --stream tiled --tile-size 512 --filter mean --radius 32

  # Compare against the synchronous baseline on a slow source
  rasterprefetch run big.tif - --latency 20ms
  rasterprefetch run big.tif - --latency 20ms --no-prefetch`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if err := o.apply(cmd.Flags(), cfg); err != nil {
				return err
			}
			if err := config.Validate(cfg); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			return runPipeline(cmd, cfg, o, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.stream, "stream", "", "region order: tiled, stripped, hilbert")
	f.IntVar(&o.tileSize, "tile-size", 0, "tile edge, or stripe height, in pixels")
	f.BoolVar(&o.noPrefetch, "no-prefetch", false, "disable prediction (synchronous baseline)")
	f.StringVar(&o.maxPrefetch, "max-prefetch", "", "largest prefetched region, e.g. 256Mi (0 = unlimited)")
	f.IntVar(&o.tileCache, "tile-cache", 0, "decoded input tiles kept in memory")
	f.DurationVar(&o.latency, "latency", 0, "artificial delay added to every upstream fetch")
	f.StringVar(&o.filter, "filter", "", "downstream filter: none, mean")
	f.IntVar(&o.radius, "radius", 0, "mean filter radius in pixels")
	f.StringVar(&o.format, "format", "", "tile format: tiff, png, jpeg, webp, terrarium")
	f.IntVar(&o.quality, "quality", 0, "JPEG/WebP quality 1-100")
	f.IntVar(&o.workers, "workers", 0, "tile encoding workers (0 = number of CPUs)")
	f.StringVar(&o.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.StringVar(&o.report, "report", "", "write a JSON run report to this file")
	f.BoolVar(&o.noProgress, "no-progress", false, "do not draw a progress bar")
	f.StringVar(&o.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	f.StringVar(&o.memProfile, "memprofile", "", "write memory profile to file")
	return cmd
}

func (o *runFlags) apply(f *pflag.FlagSet, cfg *config.Config) error {
	if f.Changed("stream") {
		cfg.Stream.Mode = o.stream
	}
	if f.Changed("tile-size") {
		cfg.Stream.TileSize = o.tileSize
	}
	if f.Changed("no-prefetch") {
		cfg.Prefetch.Enabled = !o.noPrefetch
	}
	if f.Changed("max-prefetch") {
		n, err := bytesize.Parse(o.maxPrefetch)
		if err != nil {
			return fmt.Errorf("--max-prefetch: %w", err)
		}
		cfg.Prefetch.MaxBytes = n
	}
	if f.Changed("tile-cache") {
		cfg.Source.TileCacheEntries = o.tileCache
	}
	if f.Changed("latency") {
		cfg.Source.Latency = o.latency
	}
	if f.Changed("filter") {
		cfg.Filter.Kind = o.filter
		if o.filter == filter.KindMean && !f.Changed("radius") && cfg.Filter.Radius == 0 {
			cfg.Filter.Radius = 32
		}
	}
	if f.Changed("radius") {
		cfg.Filter.Radius = o.radius
	}
	if f.Changed("format") {
		cfg.Output.Format = o.format
	}
	if f.Changed("quality") {
		cfg.Output.Quality = o.quality
	}
	if f.Changed("workers") {
		cfg.Output.Workers = o.workers
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = o.metricsAddr
	}
	if f.Changed("report") {
		cfg.Report.Path = o.report
	}
	return nil
}

func runPipeline(cmd *cobra.Command, cfg *config.Config, o *runFlags, input, output string) (err error) {
	stdout := cmd.OutOrStdout()

	stopProfiling, err := startProfiling(o.cpuProfile, o.memProfile)
	if err != nil {
		return err
	}
	defer func() {
		if perr := stopProfiling(); err == nil {
			err = perr
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader, err := cog.Open(input)
	if err != nil {
		return err
	}
	defer reader.Close()
	src := cog.NewSource(reader, cfg.Source.TileCacheEntries)
	meta := src.Metadata()

	var upstream prefetch.Source = src
	if cfg.Source.Latency > 0 {
		upstream = pipeline.WithLatency(src, cfg.Source.Latency)
	}

	cacheOpts := prefetch.Options{MaxPrefetchBytes: prefetchBudget(cfg.Prefetch)}
	if !cfg.Prefetch.Enabled {
		cacheOpts.Predictor = prefetch.NoPredictor{}
	}
	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		cacheOpts.Observer = metrics.NewObserver(reg)
		srv, err := metrics.StartServer(cfg.Metrics.Addr, reg)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	splitter, err := stream.New(cfg.Stream.Mode, cfg.Stream.TileSize)
	if err != nil {
		return err
	}
	flt, err := filter.New(cfg.Filter.Kind, cfg.Filter.Radius)
	if err != nil {
		return err
	}

	snk, err := sink.Open(output, sink.Options{
		Extent:      meta.Extent,
		Channels:    meta.Channels,
		TileSize:    tiffTileSize(cfg.Stream.TileSize),
		DataType:    cog.DataType(cfg.Output.DataType),
		Compression: cfg.Output.Compression,
		Geo: cog.GeoInfo{
			EPSG:       meta.EPSG,
			OriginX:    meta.OriginX,
			OriginY:    meta.OriginY,
			PixelSizeX: meta.SpacingX,
			PixelSizeY: meta.SpacingY,
		},
		Format:  cfg.Output.Format,
		Quality: cfg.Output.Quality,
		Workers: cfg.Output.Workers,
		Range:   encode.Range{Min: cfg.Output.RangeMin, Max: cfg.Output.RangeMax},
	})
	if err != nil {
		return err
	}

	rep := report.New(input, output)
	settings := settingsSummary(cfg, meta, cacheOpts.MaxPrefetchBytes)
	for _, p := range settings {
		rep.Settings[p[0]] = p[1]
	}
	fmt.Fprintln(stdout, versionString())
	report.PrintPairs(stdout, settings)

	cache := prefetch.New(upstream, cacheOpts)
	var progress io.Writer
	if !o.noProgress {
		progress = cmd.ErrOrStderr()
	}
	res, runErr := pipeline.Run(ctx, cache, pipeline.Options{
		Splitter: splitter,
		Filter:   flt,
		Sink:     snk,
		Progress: progress,
	})
	if err := errors.Join(runErr, snk.Close(), cache.Close()); err != nil {
		return err
	}

	rep.Finish(cache.Snapshot(), res.Regions)
	rep.OutputBytes = snk.Stats().Bytes
	rep.TileCacheHits, rep.TileCacheMisses = src.TileCache().Stats()

	fmt.Fprintln(stdout)
	rep.PrintTable(stdout)
	fmt.Fprintf(stdout, "Done: %d regions, %s, %v → %s\n",
		res.Regions, humanSize(rep.OutputBytes), res.Elapsed.Round(time.Millisecond), output)

	if cfg.Report.Path != "" {
		if err := report.WriteJSON(cfg.Report.Path, rep); err != nil {
			return err
		}
		logger.Info("report written", "path", cfg.Report.Path, "run_id", rep.RunID)
	}
	return nil
}

// prefetchBudget resolves the prefetch size guard: an explicit size wins,
// otherwise a fraction of RAM when configured, otherwise unlimited.
func prefetchBudget(cfg config.PrefetchConfig) int64 {
	if cfg.MaxBytes > 0 {
		return cfg.MaxBytes.Int64()
	}
	return sysinfo.MemoryLimit(cfg.MemoryFraction)
}

// tiffTileSize aligns TIFF tiles with the stream tiles when the TIFF layout
// allows it, so that each output region completes its tiles.
func tiffTileSize(streamTile int) int {
	if streamTile > 0 && streamTile%16 == 0 {
		return streamTile
	}
	return 256
}

func settingsSummary(cfg *config.Config, meta raster.Metadata, budget int64) [][2]string {
	pairs := [][2]string{
		{"Input size", fmt.Sprintf("%d x %d x %d", meta.Extent.W(), meta.Extent.H(), meta.Channels)},
	}
	minX, minY, maxX, maxY := meta.Bounds()
	if b, ok := coord.ToWGS84(meta.EPSG, minX, minY, maxX, maxY); ok {
		pairs = append(pairs, [2]string{"Bounds (WGS84)", b.String()})
	}
	pairs = append(pairs, [2]string{"Stream", fmt.Sprintf("%s (%dpx)", cfg.Stream.Mode, cfg.Stream.TileSize)})
	switch {
	case !cfg.Prefetch.Enabled:
		pairs = append(pairs, [2]string{"Prefetch", "disabled"})
	case budget > 0:
		pairs = append(pairs, [2]string{"Prefetch", "raster scan, max " + bytesize.ByteSize(budget).String()})
	default:
		pairs = append(pairs, [2]string{"Prefetch", "raster scan"})
	}
	if cfg.Filter.Kind == filter.KindMean {
		pairs = append(pairs, [2]string{"Filter", fmt.Sprintf("mean (radius %d)", cfg.Filter.Radius)})
	} else {
		pairs = append(pairs, [2]string{"Filter", cfg.Filter.Kind})
	}
	switch cfg.Output.Format {
	case "jpeg", "webp":
		pairs = append(pairs, [2]string{"Format", fmt.Sprintf("%s (quality: %d)", cfg.Output.Format, cfg.Output.Quality)})
	case "tiff":
		pairs = append(pairs, [2]string{"Format", fmt.Sprintf("tiff (%s, %s)", cfg.Output.DataType, cfg.Output.Compression)})
	default:
		pairs = append(pairs, [2]string{"Format", cfg.Output.Format})
	}
	if cfg.Source.Latency > 0 {
		pairs = append(pairs, [2]string{"Latency", cfg.Source.Latency.String()})
	}
	return pairs
}
