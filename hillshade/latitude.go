package hillshade

import (
	"math"

	"github.com/paulmach/orb"
)

// DistortionFactor is the Web Mercator scale factor at lat degrees.
func DistortionFactor(lat float64) float64 {
	return 1 / math.Cos(lat*math.Pi/180)
}

// RowLatitudes interpolates latitudes from the north edge at the first
// unbuffered row to the south edge at the last one. Buffer rows take the
// nearest edge latitude.
func RowLatitudes(bound orb.Bound, height int, b BufferSpec) []float64 {
	north, south := bound.Top(), bound.Bottom()
	first, last := b.Top, height-b.Bottom-1

	lats := make([]float64, height)
	for row := range lats {
		switch {
		case row <= first:
			lats[row] = north
		case row >= last:
			lats[row] = south
		default:
			t := float64(row-first) / float64(last-first)
			lats[row] = north + t*(south-north)
		}
	}
	return lats
}

// LatitudeFactors returns the per-row elevation multipliers for a buffered tile grid.
func LatitudeFactors(bound orb.Bound, height int, b BufferSpec) []float64 {
	factors := RowLatitudes(bound, height, b)
	for i, lat := range factors {
		factors[i] = DistortionFactor(lat)
	}
	return factors
}

// Condition floors negative elevations to zero. Nodata cells are left alone.
func Condition(e *ElevationGrid) {
	for i, v := range e.Data {
		if v < 0 && !e.IsNoData(v) {
			e.Data[i] = 0
		}
	}
}

// CorrectLatitude multiplies every valid cell by its row factor.
func CorrectLatitude(e *ElevationGrid, factors []float64) {
	for row := 0; row < e.Height; row++ {
		f := factors[row]
		cells := e.Row(row)
		for i, v := range cells {
			if e.IsNoData(v) {
				continue
			}
			cells[i] = v * f
		}
	}
}
