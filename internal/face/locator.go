package face

import (
	"image"

	"github.com/vzahanych/styleai/internal/vision"
)

// Locator selects the most prominent face in an image
type Locator struct {
	detector Detector
}

// NewLocator creates a locator backed by detector
func NewLocator(detector Detector) *Locator {
	return &Locator{detector: detector}
}

// Locate returns the largest detected face, or false when none is found.
// Candidates are clamped to the image; on equal area the first one wins.
func (l *Locator) Locate(img image.Image) (*Region, bool) {
	if img == nil || img.Bounds().Empty() {
		return nil, false
	}

	gray := vision.ToGray(img)
	bounds := gray.Rect

	var best *Candidate
	for _, c := range l.detector.Detect(gray) {
		c.Rect = c.Rect.Intersect(bounds)
		if c.Rect.Empty() {
			continue
		}
		if best == nil || area(c.Rect) > area(best.Rect) {
			picked := c
			best = &picked
		}
	}
	if best == nil {
		return nil, false
	}

	origin := img.Bounds().Min
	rect := best.Rect.Add(origin)

	return &Region{
		Rect:  rect,
		Score: best.Score,
		Color: vision.Crop(img, rect),
		Gray:  vision.CropGray(gray, best.Rect),
	}, true
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
