// Package metrics exports prefetch cache activity to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pspoerri/rasterprefetch/internal/prefetch"
)

var durationBuckets = []float64{
	0.1,  // 100us - cache hits
	0.5,  // 500us
	1,    // 1ms
	5,    // 5ms
	10,   // 10ms
	50,   // 50ms
	100,  // 100ms - typical remote fetch
	500,  // 500ms
	1000, // 1s
	5000, // 5s
}

// Observer is the Prometheus implementation of prefetch.Observer.
type Observer struct {
	requests        prometheus.Counter
	requestDuration prometheus.Histogram
	requestPixels   prometheus.Counter
	fetches         *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
	fetchPixels     *prometheus.CounterVec
	joinWait        prometheus.Histogram
	guesses         *prometheus.CounterVec
}

var _ prefetch.Observer = (*Observer)(nil)

// NewObserver registers the cache collectors with reg.
func NewObserver(reg prometheus.Registerer) *Observer {
	f := promauto.With(reg)
	return &Observer{
		requests: f.NewCounter(prometheus.CounterOpts{
			Name: "rasterprefetch_requests_total",
			Help: "Total number of regions served by the cache",
		}),
		requestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rasterprefetch_request_duration_milliseconds",
			Help:    "Time to serve a request, including waiting for the background prefetch",
			Buckets: durationBuckets,
		}),
		requestPixels: f.NewCounter(prometheus.CounterOpts{
			Name: "rasterprefetch_request_pixels_total",
			Help: "Total number of pixels served",
		}),
		fetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rasterprefetch_fetches_total",
			Help: "Total number of upstream fetches by kind",
		}, []string{"kind"}), // "foreground", "prefetch"
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rasterprefetch_fetch_duration_milliseconds",
			Help:    "Duration of upstream fetches by kind",
			Buckets: durationBuckets,
		}, []string{"kind"}),
		fetchPixels: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rasterprefetch_fetch_pixels_total",
			Help: "Total number of pixels fetched upstream by kind",
		}, []string{"kind"}),
		joinWait: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rasterprefetch_join_wait_milliseconds",
			Help:    "Time a request waited for the previous prefetch to finish",
			Buckets: durationBuckets,
		}),
		guesses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rasterprefetch_guess_pixels_total",
			Help: "Pixels by prediction outcome",
		}, []string{"outcome"}), // "good", "missed", "extra"
	}
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

func (o *Observer) ObserveRequest(pixels int, d time.Duration) {
	o.requests.Inc()
	o.requestPixels.Add(float64(pixels))
	o.requestDuration.Observe(ms(d))
}

func (o *Observer) ObserveFetch(kind prefetch.FetchKind, pixels int, d time.Duration) {
	o.fetches.WithLabelValues(string(kind)).Inc()
	o.fetchPixels.WithLabelValues(string(kind)).Add(float64(pixels))
	o.fetchDuration.WithLabelValues(string(kind)).Observe(ms(d))
}

func (o *Observer) ObserveJoin(d time.Duration) {
	o.joinWait.Observe(ms(d))
}

func (o *Observer) ObserveGuesses(delta prefetch.Metrics) {
	o.guesses.WithLabelValues("good").Add(float64(delta.GoodGuesses))
	o.guesses.WithLabelValues("missed").Add(float64(delta.MissedGuesses))
	o.guesses.WithLabelValues("extra").Add(float64(delta.ExtraGuesses))
}
