package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pspoerri/rasterprefetch/internal/prefetch"
	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

func TestObserver_Counters(t *testing.T) {
	o := NewObserver(prometheus.NewRegistry())

	o.ObserveRequest(100, 2*time.Millisecond)
	o.ObserveRequest(50, time.Millisecond)
	o.ObserveFetch(prefetch.FetchForeground, 30, time.Millisecond)
	o.ObserveFetch(prefetch.FetchPrefetch, 200, 10*time.Millisecond)
	o.ObserveFetch(prefetch.FetchPrefetch, 200, 10*time.Millisecond)
	o.ObserveJoin(3 * time.Millisecond)
	o.ObserveGuesses(prefetch.Metrics{ProcessedPixels: 150, GoodGuesses: 120, MissedGuesses: 30, ExtraGuesses: 80})

	assert.Equal(t, 2.0, testutil.ToFloat64(o.requests))
	assert.Equal(t, 150.0, testutil.ToFloat64(o.requestPixels))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.fetches.WithLabelValues("foreground")))
	assert.Equal(t, 2.0, testutil.ToFloat64(o.fetches.WithLabelValues("prefetch")))
	assert.Equal(t, 400.0, testutil.ToFloat64(o.fetchPixels.WithLabelValues("prefetch")))
	assert.Equal(t, 120.0, testutil.ToFloat64(o.guesses.WithLabelValues("good")))
	assert.Equal(t, 30.0, testutil.ToFloat64(o.guesses.WithLabelValues("missed")))
	assert.Equal(t, 80.0, testutil.ToFloat64(o.guesses.WithLabelValues("extra")))
}

func TestObserver_WiredIntoCache(t *testing.T) {
	o := NewObserver(prometheus.NewRegistry())
	src := raster.NewSynthetic(64, 16, 1, 0)
	c := prefetch.New(src, prefetch.Options{Predictor: prefetch.RasterScan{}, Observer: o})

	for x := 0; x < 64; x += 16 {
		b, err := c.Request(region.New(x, 0, 16, 16))
		require.NoError(t, err)
		raster.PutBuffer(b)
	}
	require.NoError(t, c.Close())

	snap := c.Snapshot()
	assert.Equal(t, 4.0, testutil.ToFloat64(o.requests))
	assert.Equal(t, float64(snap.GoodGuesses), testutil.ToFloat64(o.guesses.WithLabelValues("good")))
	assert.Equal(t, float64(snap.MissedGuesses), testutil.ToFloat64(o.guesses.WithLabelValues("missed")))
}

func TestServer_ExposesMetrics(t *testing.T) {
	reg := NewRegistry()
	o := NewObserver(reg)
	o.ObserveRequest(10, time.Millisecond)

	s, err := StartServer("127.0.0.1:0", reg)
	require.NoError(t, err)
	defer s.Shutdown(context.Background())

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "rasterprefetch_requests_total 1"))
	assert.True(t, strings.Contains(string(body), "go_goroutines"))
}

func TestStartServer_BadAddr(t *testing.T) {
	_, err := StartServer("256.0.0.1:bad", prometheus.NewRegistry())
	assert.Error(t, err)
}
