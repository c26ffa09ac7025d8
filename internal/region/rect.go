// Package region implements rectangle arithmetic over pixel indices.
//
// A Rect is half-open on every axis: it covers [Start, Start+Size). Axis 0 is
// x (columns) and axis 1 is y (rows). A Rect with a zero size on any axis is
// empty and has zero area; empty rects are valid values.
package region

import "fmt"

// Dims is the number of axes of a Rect.
const Dims = 2

// Rect is an axis-aligned region of a raster.
type Rect struct {
	Start [Dims]int
	Size  [Dims]int
}

// New returns the rect with upper-left corner (x, y) and size w×h.
func New(x, y, w, h int) Rect {
	return Rect{Start: [Dims]int{x, y}, Size: [Dims]int{w, h}}
}

func (r Rect) X() int { return r.Start[0] }
func (r Rect) Y() int { return r.Start[1] }
func (r Rect) W() int { return r.Size[0] }
func (r Rect) H() int { return r.Size[1] }

// End returns the exclusive upper bound of r on axis d.
func (r Rect) End(d int) int { return r.Start[d] + r.Size[d] }

// Empty reports whether r has zero area.
func (r Rect) Empty() bool { return Area(r) == 0 }

func (r Rect) String() string {
	return fmt.Sprintf("[%d,%d %dx%d]", r.Start[0], r.Start[1], r.Size[0], r.Size[1])
}

// Area returns the number of pixels covered by r.
func Area(r Rect) int {
	n := 1
	for d := 0; d < Dims; d++ {
		if r.Size[d] <= 0 {
			return 0
		}
		n *= r.Size[d]
	}
	return n
}

// UpperIndex returns the index of the last pixel of r on every axis.
func UpperIndex(r Rect) [Dims]int {
	var u [Dims]int
	for d := 0; d < Dims; d++ {
		u[d] = r.Start[d] + r.Size[d] - 1
	}
	return u
}

// IsSquare reports whether r has the same size on both axes.
func IsSquare(r Rect) bool {
	return r.Size[0] == r.Size[1]
}

// Intersect returns the overlap of a and b. The flag reports whether the
// overlap has positive area; when it is false the returned rect is empty.
func Intersect(a, b Rect) (Rect, bool) {
	var out Rect
	for d := 0; d < Dims; d++ {
		lo := max(a.Start[d], b.Start[d])
		hi := min(a.End(d), b.End(d))
		if hi <= lo {
			return Rect{}, false
		}
		out.Start[d] = lo
		out.Size[d] = hi - lo
	}
	return out, true
}

// Contains reports whether b lies entirely inside a. An empty b is never
// contained, so an empty cache slot can never satisfy a request.
func Contains(a, b Rect) bool {
	if b.Empty() {
		return false
	}
	for d := 0; d < Dims; d++ {
		if b.Start[d] < a.Start[d] || b.End(d) > a.End(d) {
			return false
		}
	}
	return true
}

// Crop clips r to bounds. The flag is false when nothing of r remains.
func Crop(r, bounds Rect) (Rect, bool) {
	return Intersect(r, bounds)
}

// Pad grows r by n pixels on every side.
func Pad(r Rect, n int) Rect {
	for d := 0; d < Dims; d++ {
		r.Start[d] -= n
		r.Size[d] += 2 * n
	}
	return r
}
