package imageutil

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/anthonynsimon/bild/transform"
	"golang.org/x/image/bmp"
)

// DecodeBitmap decodes a raw BMP frame as produced by the diffusion worker.
func DecodeBitmap(bmpBytes []byte) (image.Image, error) {
	img, err := bmp.Decode(bytes.NewReader(bmpBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode bitmap: %w", err)
	}

	return img, nil
}

// ConvertBitmap re-encodes a worker BMP frame into the requested format.
func ConvertBitmap(bmpBytes []byte, format string) ([]byte, error) {
	img, err := DecodeBitmap(bmpBytes)
	if err != nil {
		return nil, err
	}

	return Encode(img, format)
}

func Encode(img image.Image, format string) ([]byte, error) {
	var output bytes.Buffer
	var err error

	switch format {
	case "png":
		err = png.Encode(&output, img)
	case "jpg", "jpeg":
		err = jpeg.Encode(&output, img, &jpeg.Options{Quality: 90})
	case "bmp":
		err = bmp.Encode(&output, img)
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	if err != nil {
		return nil, err
	}

	return output.Bytes(), nil
}

func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return img, nil
}

// Thumbnail scales the image down so its longer side is at most maxSize,
// preserving aspect ratio. Images already within bounds are returned as-is.
func Thumbnail(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxSize && h <= maxSize {
		return img
	}

	if w >= h {
		h = h * maxSize / w
		w = maxSize
	} else {
		w = w * maxSize / h
		h = maxSize
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	return transform.Resize(img, w, h, transform.Lanczos)
}

// Resize scales the image to the exact target dimensions with Lanczos
// resampling.
func Resize(img image.Image, width, height int) image.Image {
	return transform.Resize(img, width, height, transform.Lanczos)
}
