package prefetch

import "time"

// FetchKind tells foreground fetches apart from background prefetches.
type FetchKind string

const (
	FetchForeground FetchKind = "foreground"
	FetchPrefetch   FetchKind = "prefetch"
)

// Observer receives timing and accounting events from a Cache.
//
// This is optional: a nil Observer in Options skips all observation.
// ObserveFetch with FetchPrefetch is called from the background goroutine,
// so implementations must be safe for concurrent use.
type Observer interface {
	// ObserveRequest records a served request and its total latency.
	ObserveRequest(pixels int, duration time.Duration)

	// ObserveFetch records one call into the source.
	ObserveFetch(kind FetchKind, pixels int, duration time.Duration)

	// ObserveJoin records how long a request waited for the background task.
	ObserveJoin(duration time.Duration)

	// ObserveGuesses records the metrics delta of one request.
	ObserveGuesses(delta Metrics)
}
