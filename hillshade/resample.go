package hillshade

import (
	"fmt"
	"math"
)

// Filter selects the interpolation used when resampling grids.
type Filter int

const (
	FilterNearest Filter = iota
	FilterBilinear
)

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterBilinear:
		return "bilinear"
	}
	return fmt.Sprintf("Filter(%d)", int(f))
}

func ParseFilter(s string) (Filter, error) {
	switch s {
	case "nearest":
		return FilterNearest, nil
	case "bilinear", "":
		return FilterBilinear, nil
	}
	return FilterBilinear, fmt.Errorf("unknown resampling filter %q", s)
}

var resampleFactors = map[int]float64{
	5:  0.9,
	6:  0.8,
	7:  0.8,
	8:  0.7,
	9:  0.7,
	10: 0.7,
	11: 0.8,
	12: 0.8,
	13: 0.9,
}

// ResampleFactor is the grid scale used to smooth shading at zoom z.
func ResampleFactor(z int) float64 {
	if r, ok := resampleFactors[z]; ok {
		return r
	}
	return 1.0
}

type Resampler struct {
	Filter Filter
}

// Shrink resamples g onto a grid r times as dense (r < 1 shrinks).
func (s Resampler) Shrink(g *Grid, r float64) *Grid {
	w := int(math.Round(float64(g.Width) * r))
	h := int(math.Round(float64(g.Height) * r))
	return s.resample(g, max(w, 1), max(h, 1), 1/r)
}

// Restore resamples g, previously produced by Shrink with the same r,
// back onto a width x height grid.
func (s Resampler) Restore(g *Grid, width, height int, r float64) *Grid {
	return s.resample(g, width, height, r)
}

// resample samples the destination pixel centers at step source pixels apart.
func (s Resampler) resample(src *Grid, width, height int, step float64) *Grid {
	dst := NewGrid(width, height)
	for row := 0; row < height; row++ {
		v := (float64(row)+0.5)*step - 0.5
		for col := 0; col < width; col++ {
			u := (float64(col)+0.5)*step - 0.5
			dst.Set(row, col, s.sample(src, v, u))
		}
	}
	return dst
}

func (s Resampler) sample(g *Grid, v, u float64) float64 {
	if s.Filter == FilterNearest {
		return g.At(clampIndex(int(math.Round(v)), g.Height), clampIndex(int(math.Round(u)), g.Width))
	}

	r0 := int(math.Floor(v))
	c0 := int(math.Floor(u))
	fr := v - float64(r0)
	fc := u - float64(c0)

	ra, rb := clampIndex(r0, g.Height), clampIndex(r0+1, g.Height)
	ca, cb := clampIndex(c0, g.Width), clampIndex(c0+1, g.Width)

	top := g.At(ra, ca)*(1-fc) + g.At(ra, cb)*fc
	bottom := g.At(rb, ca)*(1-fc) + g.At(rb, cb)*fc
	return top*(1-fr) + bottom*fr
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
