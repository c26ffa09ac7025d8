// Package pipeline drives a prefetch cache with a stream of output regions:
// for each region it requests the filter's input from the cache, applies the
// filter and hands the result to a sink.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pspoerri/rasterprefetch/internal/filter"
	"github.com/pspoerri/rasterprefetch/internal/logger"
	"github.com/pspoerri/rasterprefetch/internal/prefetch"
	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
	"github.com/pspoerri/rasterprefetch/internal/sink"
	"github.com/pspoerri/rasterprefetch/internal/stream"
)

// Cache is the part of prefetch.Cache the runner uses.
type Cache interface {
	Request(r region.Rect) (*raster.Buffer, error)
	Extent() region.Rect
	Snapshot() prefetch.Metrics
}

// Options configures Run.
type Options struct {
	Splitter stream.Splitter
	Filter   filter.Filter
	Sink     sink.Sink

	// Progress, when set, receives a progress bar.
	Progress io.Writer
}

// Result summarises a run.
type Result struct {
	Regions int
	Elapsed time.Duration
	Metrics prefetch.Metrics
}

// Run processes every region of the cache extent in splitter order. It
// neither closes the sink nor the cache.
func Run(ctx context.Context, c Cache, opts Options) (Result, error) {
	start := time.Now()
	regions := opts.Splitter.Regions(c.Extent())
	logger.Info("pipeline starting",
		"regions", len(regions),
		"stream", opts.Splitter.Name(),
		"filter", opts.Filter.Name())

	var pb *progressBar
	if opts.Progress != nil {
		pb = newProgressBar(opts.Progress, opts.Splitter.Name(), int64(len(regions)), 100*time.Millisecond, c.Snapshot)
	}

	res := Result{}
	err := func() error {
		for _, out := range regions {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := step(ctx, c, opts, out); err != nil {
				return err
			}
			res.Regions++
			if pb != nil {
				pb.Increment()
			}
		}
		return nil
	}()
	if pb != nil {
		pb.Finish()
	}

	res.Elapsed = time.Since(start)
	res.Metrics = c.Snapshot()
	if err != nil {
		return res, err
	}
	logger.Info("pipeline finished",
		"regions", res.Regions,
		"elapsed_ms", logger.Duration(start),
		"good_pct", res.Metrics.PercentGood())
	return res, nil
}

func step(ctx context.Context, c Cache, opts Options, out region.Rect) error {
	in := opts.Filter.InputRegion(out, c.Extent())
	buf, err := c.Request(in)
	if err != nil {
		return fmt.Errorf("requesting %v: %w", in, err)
	}
	res, err := opts.Filter.Apply(buf, out)
	if err != nil {
		raster.PutBuffer(buf)
		return fmt.Errorf("filtering %v: %w", out, err)
	}
	if res != buf {
		raster.PutBuffer(buf)
	}
	if err := opts.Sink.Write(ctx, res); err != nil {
		return fmt.Errorf("writing %v: %w", out, err)
	}
	return nil
}
