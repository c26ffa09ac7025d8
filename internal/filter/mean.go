package filter

import (
	"fmt"

	"github.com/pspoerri/rasterprefetch/internal/raster"
	"github.com/pspoerri/rasterprefetch/internal/region"
)

// Mean is a box filter: each output sample is the mean of the samples within
// Radius pixels along both axes. Near the extent edge only in-extent
// neighbours are averaged.
type Mean struct{ Radius int }

func (Mean) Name() string { return KindMean }

func (m Mean) InputRegion(out, extent region.Rect) region.Rect {
	r, _ := region.Crop(region.Pad(out, m.Radius), extent)
	return r
}

func (m Mean) Apply(in *raster.Buffer, out region.Rect) (*raster.Buffer, error) {
	if !region.Contains(in.Region, out) {
		return nil, fmt.Errorf("mean filter: input %v does not cover %v", in.Region, out)
	}

	w, h, ch := in.Region.W(), in.Region.H(), in.Channels
	x0, y0 := in.Region.X(), in.Region.Y()

	// Summed-area table per channel, (w+1)×(h+1) with a zero first row and column.
	sw := w + 1
	sat := make([]float64, sw*(h+1)*ch)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := in.PixOffset(x0+x, y0+y)
			for c := 0; c < ch; c++ {
				i := ((y+1)*sw+x+1)*ch + c
				sat[i] = float64(in.Pix[src+c]) + sat[i-ch] + sat[i-sw*ch] - sat[i-sw*ch-ch]
			}
		}
	}

	dst := raster.NewBuffer(out, ch)
	for y := out.Y(); y < out.End(1); y++ {
		top := max(y-m.Radius, y0) - y0
		bottom := min(y+m.Radius+1, y0+h) - y0
		for x := out.X(); x < out.End(0); x++ {
			left := max(x-m.Radius, x0) - x0
			right := min(x+m.Radius+1, x0+w) - x0
			n := float64((bottom - top) * (right - left))
			d := dst.PixOffset(x, y)
			for c := 0; c < ch; c++ {
				sum := sat[(bottom*sw+right)*ch+c] - sat[(top*sw+right)*ch+c] -
					sat[(bottom*sw+left)*ch+c] + sat[(top*sw+left)*ch+c]
				dst.Pix[d+c] = float32(sum / n)
			}
		}
	}
	return dst, nil
}
