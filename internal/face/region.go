package face

import "image"

// Region is the face selected from an image
type Region struct {
	// Rect is in the coordinate space of the source image
	Rect  image.Rectangle
	Score float32
	// Color and Gray are crops of Rect with origin (0, 0)
	Color image.Image
	Gray  *image.Gray
}

// Area returns the region's area in pixels
func (r *Region) Area() int {
	return r.Rect.Dx() * r.Rect.Dy()
}

// Candidate is a single detector hit in grayscale image coordinates
type Candidate struct {
	Rect  image.Rectangle
	Score float32
}

// Detector finds face candidates in a grayscale image with origin (0, 0)
type Detector interface {
	Detect(gray *image.Gray) []Candidate
}
