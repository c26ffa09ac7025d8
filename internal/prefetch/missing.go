package prefetch

import "github.com/pspoerri/rasterprefetch/internal/region"

// missingRegions returns the disjoint parts of request that are not covered
// by cached, together with the metrics delta for serving request against
// cached.
func missingRegions(request, cached region.Rect) ([]region.Rect, Metrics) {
	overlap, touches := region.Intersect(cached, request)

	reqArea := uint64(region.Area(request))
	cachedArea := uint64(region.Area(cached))
	delta := Metrics{ProcessedPixels: reqArea}
	if touches {
		overlapArea := uint64(region.Area(overlap))
		delta.ExtraGuesses = cachedArea - overlapArea
		delta.GoodGuesses = overlapArea
		delta.MissedGuesses = reqArea - overlapArea
	} else {
		delta.ExtraGuesses = cachedArea
		delta.MissedGuesses = reqArea
	}

	switch {
	case region.Contains(cached, request):
		return nil, delta
	case cached.Empty() || !touches:
		return []region.Rect{request}, delta
	}
	return region.Decompose(request, overlap), delta
}
