package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspoerri/rasterprefetch/internal/filter"
	"github.com/pspoerri/rasterprefetch/internal/prefetch"
	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
	"github.com/pspoerri/rasterprefetch/internal/sink"
	"github.com/pspoerri/rasterprefetch/internal/stream"
)

// recordingSink keeps every region it receives.
type recordingSink struct {
	mu   sync.Mutex
	bufs []*raster.Buffer
	err  error
}

func (s *recordingSink) Write(_ context.Context, b *raster.Buffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.bufs = append(s.bufs, b)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) Stats() sink.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sink.Stats{Regions: int64(len(s.bufs))}
}

func TestRun_TiledPassthrough(t *testing.T) {
	src := raster.NewSynthetic(300, 200, 2, 0)
	c := prefetch.New(src, prefetch.Options{})
	defer c.Close()

	out := &recordingSink{}
	res, err := Run(context.Background(), c, Options{
		Splitter: stream.Tiled{Size: 64},
		Filter:   filter.None{},
		Sink:     out,
	})
	require.NoError(t, err)

	assert.Equal(t, 20, res.Regions)
	assert.Len(t, out.bufs, 20)
	assert.EqualValues(t, 300*200, res.Metrics.ProcessedPixels)
	assert.Greater(t, res.Metrics.PercentGood(), 50.0)
	assert.Equal(t, res.Metrics.ProcessedPixels, res.Metrics.GoodGuesses+res.Metrics.MissedGuesses)

	for _, b := range out.bufs {
		r := b.Region
		for _, p := range [][2]int{{r.X(), r.Y()}, {r.End(0) - 1, r.End(1) - 1}} {
			assert.Equal(t, src.Value(p[0], p[1], 1), b.At(p[0], p[1], 1))
		}
	}
}

func TestRun_MeanFilterStripes(t *testing.T) {
	src := raster.NewSynthetic(120, 90, 1, 0)
	c := prefetch.New(src, prefetch.Options{})
	defer c.Close()

	m := filter.Mean{Radius: 2}
	out := &recordingSink{}
	res, err := Run(context.Background(), c, Options{
		Splitter: stream.Stripped{Rows: 16},
		Filter:   m,
		Sink:     out,
	})
	require.NoError(t, err)
	require.Len(t, out.bufs, 6)

	var wantProcessed uint64
	for _, r := range (stream.Stripped{Rows: 16}).Regions(src.Extent()) {
		wantProcessed += uint64(region.Area(m.InputRegion(r, src.Extent())))
	}
	assert.Equal(t, wantProcessed, res.Metrics.ProcessedPixels)

	// Interior pixel of a linear ramp: the box mean equals the centre value.
	b := out.bufs[2]
	assert.InDelta(t, src.Value(60, 40, 0), b.At(60, 40, 0), 1e-3)
}

func TestRun_HilbertIsCorrectButMissesMore(t *testing.T) {
	run := func(s stream.Splitter) prefetch.Metrics {
		src := raster.NewSynthetic(256, 256, 1, 0)
		c := prefetch.New(src, prefetch.Options{})
		defer c.Close()
		res, err := Run(context.Background(), c, Options{Splitter: s, Filter: filter.None{}, Sink: &sink.Discard{}})
		require.NoError(t, err)
		return res.Metrics
	}
	tiled := run(stream.Tiled{Size: 32})
	hilbert := run(stream.Hilbert{Size: 32})
	assert.Equal(t, tiled.ProcessedPixels, hilbert.ProcessedPixels)
	assert.Less(t, hilbert.PercentGood(), tiled.PercentGood())
}

func TestRun_SinkError(t *testing.T) {
	c := prefetch.New(raster.NewSynthetic(64, 64, 1, 0), prefetch.Options{})
	defer c.Close()

	boom := errors.New("boom")
	res, err := Run(context.Background(), c, Options{
		Splitter: stream.Tiled{Size: 16},
		Filter:   filter.None{},
		Sink:     &recordingSink{err: boom},
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, res.Regions)
}

func TestRun_Cancelled(t *testing.T) {
	c := prefetch.New(raster.NewSynthetic(64, 64, 1, 0), prefetch.Options{})
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, c, Options{Splitter: stream.Tiled{Size: 16}, Filter: filter.None{}, Sink: &sink.Discard{}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_Progress(t *testing.T) {
	c := prefetch.New(raster.NewSynthetic(64, 64, 1, 0), prefetch.Options{})
	defer c.Close()

	var buf bytes.Buffer
	_, err := Run(context.Background(), c, Options{
		Splitter: stream.Tiled{Size: 16},
		Filter:   filter.None{},
		Sink:     &sink.Discard{},
		Progress: &buf,
	})
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "16/16 regions")
	assert.Contains(t, out, "100%")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestWithLatency(t *testing.T) {
	src := raster.NewSynthetic(8, 8, 1, 0)
	assert.Same(t, prefetch.Source(src), WithLatency(src, 0))

	slow := WithLatency(src, 20*time.Millisecond)
	start := time.Now()
	b, err := slow.Fetch(region.New(0, 0, 4, 4))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, src.Value(3, 3, 0), b.At(3, 3, 0))
	assert.Equal(t, src.Extent(), slow.Extent())
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{45 * time.Second, "45s"},
		{83 * time.Second, "1m23s"},
		{10*time.Minute + 5*time.Second, "10m05s"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.d))
	}
}
