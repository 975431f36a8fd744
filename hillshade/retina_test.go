package hillshade

import (
	"image"
	"image/color"
	"testing"
)

func TestHalfSize(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 512, 512))
	for y := 0; y < 512; y++ {
		for x := 0; x < 512; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 200
			}
			src.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}

	out := HalfSize(src)
	if out.Bounds().Dx() != 256 || out.Bounds().Dy() != 256 {
		t.Fatalf("HalfSize() bounds = %v, want 256x256", out.Bounds())
	}

	for _, p := range []image.Point{{0, 0}, {17, 200}, {255, 255}} {
		c := out.NRGBAAt(p.X, p.Y)
		if c.R < 99 || c.R > 101 || c.A != 255 {
			t.Errorf("HalfSize() at %v = %v, want the 2x2 average", p, c)
		}
	}
}
