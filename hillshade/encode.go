package hillshade

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"golang.org/x/image/tiff"
)

// EncodeRaster writes a single band 8-bit deflate compressed TIFF.
func EncodeRaster(img *image.Gray) ([]byte, error) {
	var buf bytes.Buffer
	err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeRaster reads a raster written by EncodeRaster.
func DecodeRaster(data []byte) (*image.Gray, error) {
	img, err := tiff.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	if gray, ok := img.(*image.Gray); ok {
		return gray, nil
	}

	gray := image.NewGray(img.Bounds())
	draw.Draw(gray, gray.Bounds(), img, img.Bounds().Min, draw.Src)
	return gray, nil
}

// EncodeImage encodes a colorized tile in the requested format.
func EncodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
	case FormatTIFF:
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = fmt.Errorf("%w: unsupported format %q", ErrInvalidRequest, format)
	}

	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
