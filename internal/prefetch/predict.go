package prefetch

import "github.com/pspoerri/rasterprefetch/internal/region"

// Predictor guesses the region that will be requested after current, given
// the region served before it and the extent of the source. The flag is
// false when there is nothing worth prefetching.
type Predictor interface {
	Predict(previous, current, extent region.Rect) (region.Rect, bool)
}

// RasterScan predicts the next region of a raster-scan walk: it repeats the
// last step, and when a walk of square tiles reaches a truncated tile at the
// end of a row it wraps to the start of the next row.
type RasterScan struct{}

func (RasterScan) Predict(previous, current, extent region.Rect) (region.Rect, bool) {
	var shift [region.Dims]int
	for d := 0; d < region.Dims; d++ {
		shift[d] = current.Start[d] - previous.Start[d]
	}

	// A step that did not move right is a row change: advance by the y step.
	step := shift[1]
	if shift[0] > 0 {
		step = shift[0]
	}
	axis := 0
	if previous.X() == current.X() {
		axis = 1
	}

	guess := current
	guess.Start[axis] += step

	// A square tile followed by a narrower one means the row ended; the next
	// tile starts the following row with the previous tile's size.
	if region.IsSquare(previous) && !region.IsSquare(current) {
		guess.Start = [region.Dims]int{0, current.Y() + shift[0]}
		guess.Size = previous.Size
	}

	return region.Crop(guess, extent)
}

// NoPredictor never predicts, which turns the cache into a pass-through.
type NoPredictor struct{}

func (NoPredictor) Predict(_, _, _ region.Rect) (region.Rect, bool) {
	return region.Rect{}, false
}
