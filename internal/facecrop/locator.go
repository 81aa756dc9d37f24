// Package facecrop finds the main face in a player photo and turns it into a
// circular, transparent portrait.
package facecrop

import (
	"context"
	"fmt"
	"image"

	"github.com/kozaktomas/player-portraits/internal/constants"
)

// RelativeBox is a bounding box expressed as fractions (0-1) of the image
// width and height, the format face detectors usually return.
type RelativeBox struct {
	X, Y          float64 // top-left corner
	Width, Height float64
}

// Detection is one face reported by a Detector.
type Detection struct {
	Box        RelativeBox
	Confidence float64
}

// Detector finds faces in an RGB image. Implementations return zero or more
// detections; the order is the detector's own ranking.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// Face is the located face: the expanded crop box in pixel coordinates
// relative to the image's top-left corner, the detector score and the
// center of the unexpanded face box.
type Face struct {
	Box        image.Rectangle
	Confidence float64
	Center     image.Point
}

// Locator selects the most confident face and expands it to include
// head and shoulder context.
type Locator struct {
	detector      Detector
	minConfidence float64
}

// NewLocator creates a locator that ignores detections below minConfidence.
func NewLocator(detector Detector, minConfidence float64) *Locator {
	return &Locator{detector: detector, minConfidence: minConfidence}
}

// Locate runs the detector over img. found is false when no face reaches the
// confidence threshold; that is an expected outcome, not an error.
func (l *Locator) Locate(ctx context.Context, img image.Image) (face Face, found bool, err error) {
	detections, err := l.detector.Detect(ctx, img)
	if err != nil {
		return Face{}, false, fmt.Errorf("face detection failed: %w", err)
	}

	best, ok := mostConfident(detections, l.minConfidence)
	if !ok {
		return Face{}, false, nil
	}

	size := img.Bounds().Size()
	box, center := ExpandBox(best.Box, size.X, size.Y, constants.ExpansionFactor)

	return Face{
		Box:        box,
		Confidence: best.Confidence,
		Center:     center,
	}, true, nil
}

// mostConfident returns the highest scoring detection at or above minConfidence.
// Ties keep the earlier detection.
func mostConfident(detections []Detection, minConfidence float64) (Detection, bool) {
	var best Detection
	found := false
	for _, d := range detections {
		if d.Confidence < minConfidence {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}
	return best, found
}

// ExpandBox converts a relative face box into pixel coordinates for an image
// of width x height, grows it by factor around its center and clamps it to
// the image. Clamping is applied per edge, so a face near the border yields a
// box that is smaller and no longer centered on the face.
func ExpandBox(rel RelativeBox, width, height int, factor float64) (image.Rectangle, image.Point) {
	x := int(rel.X * float64(width))
	y := int(rel.Y * float64(height))
	w := int(rel.Width * float64(width))
	h := int(rel.Height * float64(height))

	center := image.Pt(x+w/2, y+h/2)

	newW := int(float64(w) * (1 + factor))
	newH := int(float64(h) * (1 + factor))

	x1 := clamp(center.X-newW/2, 0, width)
	y1 := clamp(center.Y-newH/2, 0, height)
	x2 := clamp(x1+newW, x1, width)
	y2 := clamp(y1+newH, y1, height)

	return image.Rect(x1, y1, x2, y2), center
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
