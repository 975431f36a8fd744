package hillshade

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestRasterCodec(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 32))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}

	data, err := EncodeRaster(img)
	if err != nil {
		t.Fatalf("EncodeRaster() error = %v", err)
	}

	got, err := DecodeRaster(data)
	if err != nil {
		t.Fatalf("DecodeRaster() error = %v", err)
	}
	if got.Bounds() != img.Bounds() {
		t.Fatalf("DecodeRaster() bounds = %v, want %v", got.Bounds(), img.Bounds())
	}
	if got.GrayAt(5, 3) != img.GrayAt(5, 3) {
		t.Errorf("DecodeRaster() pixel = %v, want %v", got.GrayAt(5, 3), img.GrayAt(5, 3))
	}
}

func TestEncodeImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(1, 1, color.NRGBA{1, 2, 3, 4})

	for _, format := range []string{FormatPNG, FormatTIFF} {
		data, err := EncodeImage(img, format)
		if err != nil || len(data) == 0 {
			t.Errorf("EncodeImage(%s) = %d bytes, %v", format, len(data), err)
		}
	}

	if _, err := EncodeImage(img, "jpg"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("EncodeImage(jpg) error = %v, want ErrInvalidRequest", err)
	}
}
