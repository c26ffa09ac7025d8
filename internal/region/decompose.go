package region

// Slice1D is a half-open interval [Start, Start+Size) on one axis, tagged
// with whether it falls inside the cached region.
type Slice1D struct {
	Start  int
	Size   int
	Cached bool
}

// SplitAxis projects r and overlap onto axis d and splits r's interval into
// the cached middle part followed by the uncached parts before and after it.
// overlap must lie inside r and be non-empty.
func SplitAxis(r, overlap Rect, d int) []Slice1D {
	rs, re := r.Start[d], r.End(d)
	cs, ce := overlap.Start[d], overlap.End(d)

	slices := make([]Slice1D, 0, 3)
	slices = append(slices, Slice1D{Start: cs, Size: ce - cs, Cached: true})
	if rs < cs {
		slices = append(slices, Slice1D{Start: rs, Size: cs - rs})
	}
	if ce < re {
		slices = append(slices, Slice1D{Start: ce, Size: re - ce})
	}
	return slices
}

// Decompose returns the disjoint rects that cover r minus overlap. Each axis
// is split with SplitAxis and every combination of per-axis slices is
// emitted unless all of its slices are cached. overlap must lie inside r and
// be non-empty.
func Decompose(r, overlap Rect) []Rect {
	var axes [Dims][]Slice1D
	total := 1
	for d := 0; d < Dims; d++ {
		axes[d] = SplitAxis(r, overlap, d)
		total *= len(axes[d])
	}

	out := make([]Rect, 0, total-1)
	var idx [Dims]int
	for n := 0; n < total; n++ {
		// Axis 0 varies slowest.
		rem := n
		for d := Dims - 1; d >= 0; d-- {
			idx[d] = rem % len(axes[d])
			rem /= len(axes[d])
		}

		var rect Rect
		cached := true
		for d := 0; d < Dims; d++ {
			s := axes[d][idx[d]]
			rect.Start[d] = s.Start
			rect.Size[d] = s.Size
			cached = cached && s.Cached
		}
		if !cached {
			out = append(out, rect)
		}
	}
	return out
}
