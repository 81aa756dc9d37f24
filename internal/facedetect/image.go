package facedetect

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// encodeImage encodes img as JPEG for upload, scaling it down to fit within
// maxSize (width or height) while keeping the aspect ratio. It returns the
// size of the encoded image. maxSize <= 0 disables scaling.
func encodeImage(img image.Image, maxSize int) ([]byte, image.Point, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	src := img
	if maxSize > 0 && (width > maxSize || height > maxSize) {
		var newWidth, newHeight int
		if width > height {
			newWidth = maxSize
			newHeight = max(1, int(float64(height)*float64(maxSize)/float64(width)))
		} else {
			newHeight = maxSize
			newWidth = max(1, int(float64(width)*float64(maxSize)/float64(height)))
		}

		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Src, nil)
		src = resized
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}); err != nil {
		return nil, image.Point{}, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), src.Bounds().Size(), nil
}
