package hillshade

import (
	"image"
	"math"
)

var exaggeration = map[int]float64{
	0:  45,
	1:  29,
	2:  20,
	3:  14,
	4:  9.5,
	5:  6.5,
	6:  5.0,
	7:  3.6,
	8:  2.7,
	9:  2.1,
	10: 1.7,
	11: 1.4,
	12: 1.3,
	13: 1.2,
	14: 1.1,
}

// Exaggeration is the vertical exaggeration applied at zoom z.
func Exaggeration(z int) float64 {
	if ve, ok := exaggeration[z]; ok {
		return ve
	}
	return 1.0
}

type ShadeOptions struct {
	Azimuth              float64 // degrees clockwise from north
	Altitude             float64 // degrees above the horizon
	VerticalExaggeration float64
	DX                   float64
	DY                   float64
	Fraction             float64
}

func DefaultShadeOptions() ShadeOptions {
	return ShadeOptions{
		Azimuth:              315,
		Altitude:             45,
		VerticalExaggeration: 1,
		DX:                   1,
		DY:                   1,
		Fraction:             1,
	}
}

// Shade computes illumination intensity in [0, 1] for every cell of elev.
func Shade(elev *Grid, opts ShadeOptions) *Grid {
	az := (90 - opts.Azimuth) * math.Pi / 180
	alt := opts.Altitude * math.Pi / 180
	sinAlt, cosAlt := math.Sin(alt), math.Cos(alt)

	gy, gx := gradient(elev, opts.VerticalExaggeration, -opts.DY, opts.DX)

	out := NewGrid(elev.Width, elev.Height)
	for i := range out.Data {
		aspect := math.Atan2(-gy[i], -gx[i])
		slope := math.Pi/2 - math.Atan(math.Hypot(gx[i], gy[i]))

		intensity := sinAlt*math.Sin(slope) + cosAlt*math.Cos(slope)*math.Cos(az-aspect)
		intensity *= opts.Fraction

		out.Data[i] = math.Min(1, math.Max(0, intensity))
	}
	return out
}

// gradient returns the row and column derivatives of scale*g using central
// differences in the interior and one-sided differences on the edges.
// Axes with a single sample have zero gradient.
func gradient(g *Grid, scale, rowSpacing, colSpacing float64) ([]float64, []float64) {
	w, h := g.Width, g.Height
	gy := make([]float64, len(g.Data))
	gx := make([]float64, len(g.Data))

	at := func(r, c int) float64 { return scale * g.Data[r*w+c] }

	for r := 0; r < h; r++ {
		for c := 0; c < w; c++ {
			i := r*w + c

			switch {
			case h < 2:
			case r == 0:
				gy[i] = (at(1, c) - at(0, c)) / rowSpacing
			case r == h-1:
				gy[i] = (at(h-1, c) - at(h-2, c)) / rowSpacing
			default:
				gy[i] = (at(r+1, c) - at(r-1, c)) / (2 * rowSpacing)
			}

			switch {
			case w < 2:
			case c == 0:
				gx[i] = (at(r, 1) - at(r, 0)) / colSpacing
			case c == w-1:
				gx[i] = (at(r, w-1) - at(r, w-2)) / colSpacing
			default:
				gx[i] = (at(r, c+1) - at(r, c-1)) / (2 * colSpacing)
			}
		}
	}
	return gy, gx
}

// Quantize maps intensities onto 8-bit gray with round(255*i).
func Quantize(intensity *Grid) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, intensity.Width, intensity.Height))
	for row := 0; row < intensity.Height; row++ {
		line := img.Pix[row*img.Stride : row*img.Stride+intensity.Width]
		for col, v := range intensity.Row(row) {
			line[col] = uint8(math.Round(255 * math.Min(1, math.Max(0, v))))
		}
	}
	return img
}
