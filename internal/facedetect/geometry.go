package facedetect

import "github.com/kozaktomas/player-portraits/internal/facecrop"

// relativeBox converts a pixel bbox [x1, y1, x2, y2] to a relative top-left
// corner plus size. ok is false for malformed input.
func relativeBox(bbox []float64, width, height int) (facecrop.RelativeBox, bool) {
	if len(bbox) != 4 || width <= 0 || height <= 0 {
		return facecrop.RelativeBox{}, false
	}
	if bbox[2] <= bbox[0] || bbox[3] <= bbox[1] {
		return facecrop.RelativeBox{}, false
	}

	x1 := bbox[0] / float64(width)
	y1 := bbox[1] / float64(height)
	x2 := bbox[2] / float64(width)
	y2 := bbox[3] / float64(height)

	return facecrop.RelativeBox{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}, true
}
