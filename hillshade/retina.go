package hillshade

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// box averages every source pixel under a destination pixel.
var box = &draw.Kernel{
	Support: 0.5,
	At: func(t float64) float64 {
		if math.Abs(t) < 0.5 {
			return 1
		}
		return 0
	},
}

// HalfSize area-averages img down to half its width and height.
func HalfSize(img image.Image) *image.NRGBA {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx()/2, b.Dy()/2))
	box.Scale(out, out.Bounds(), img, b, draw.Src, nil)
	return out
}
