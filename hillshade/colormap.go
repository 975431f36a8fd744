package hillshade

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
)

// Stop is a control point of a ramp channel. Position and Value are in [0, 1].
type Stop struct {
	Position float64
	Value    float64
}

// ColorRamp maps normalized gray values onto RGBA. A channel without stops
// evaluates to 1, so a ramp with no Alpha stops is opaque.
type ColorRamp struct {
	Red   []Stop
	Green []Stop
	Blue  []Stop
	Alpha []Stop
}

var (
	Positron = ColorRamp{
		Red:   []Stop{{0, 0}, {1, 1}},
		Green: []Stop{{0, 0}, {1, 1}},
		Blue:  []Stop{{0, 0}, {1, 1}},
		Alpha: []Stop{{0, 1}, {180.0 / 255, 0}, {1, 1}},
	}

	DarkMatter = ColorRamp{
		Red:   []Stop{{0, 60.0 / 255}, {1, 220.0 / 255}},
		Green: []Stop{{0, 75.0 / 255}, {1, 1}},
		Blue:  []Stop{{0, 80.0 / 255}, {1, 100.0 / 255}},
		Alpha: []Stop{{0, 0.4}, {180.0 / 255, 0}, {1, 0.2}},
	}

	GreyHills = ColorRamp{
		Red:   greyHillsStops,
		Green: greyHillsStops,
		Blue:  greyHillsStops,
	}

	greyHillsStops = []Stop{{0, 0}, {0.25, 0}, {180.0 / 255, 0.5}, {1, 170.0 / 255}}
)

func (r ColorRamp) Validate() error {
	for name, stops := range map[string][]Stop{"red": r.Red, "green": r.Green, "blue": r.Blue, "alpha": r.Alpha} {
		if !sort.SliceIsSorted(stops, func(i, j int) bool { return stops[i].Position < stops[j].Position }) {
			return fmt.Errorf("%s stops are not ordered by position", name)
		}
		for _, s := range stops {
			if s.Position < 0 || s.Position > 1 || s.Value < 0 || s.Value > 1 {
				return fmt.Errorf("%s stop %v outside [0, 1]", name, s)
			}
		}
	}
	return nil
}

// At evaluates the ramp at normalized position x.
func (r ColorRamp) At(x float64) color.NRGBA {
	return color.NRGBA{
		R: channelByte(evaluate(r.Red, x)),
		G: channelByte(evaluate(r.Green, x)),
		B: channelByte(evaluate(r.Blue, x)),
		A: channelByte(evaluate(r.Alpha, x)),
	}
}

// Apply colorizes a gray raster. Gray values are normalized by 255.
func (r ColorRamp) Apply(gray *image.Gray) *image.NRGBA {
	var lut [256]color.NRGBA
	for v := range lut {
		lut[v] = r.At(float64(v) / 255)
	}

	b := gray.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()]
		dst := out.Pix[y*out.Stride : y*out.Stride+4*b.Dx()]
		for x, v := range src {
			c := lut[v]
			dst[4*x] = c.R
			dst[4*x+1] = c.G
			dst[4*x+2] = c.B
			dst[4*x+3] = c.A
		}
	}
	return out
}

func evaluate(stops []Stop, x float64) float64 {
	if len(stops) == 0 {
		return 1
	}
	if x <= stops[0].Position {
		return stops[0].Value
	}
	for i := 1; i < len(stops); i++ {
		lo, hi := stops[i-1], stops[i]
		if x <= hi.Position {
			if hi.Position == lo.Position {
				return hi.Value
			}
			t := (x - lo.Position) / (hi.Position - lo.Position)
			return lo.Value + t*(hi.Value-lo.Value)
		}
	}
	return stops[len(stops)-1].Value
}

func channelByte(v float64) uint8 {
	return uint8(math.Round(255 * math.Min(1, math.Max(0, v))))
}
