package gender

import (
	"errors"
	"image"
)

// Labels produced by every estimator
const (
	Male   = "Male"
	Female = "Female"
)

// Mode identifies the estimation strategy
type Mode string

const (
	ModeModel     Mode = "model"
	ModeHeuristic Mode = "heuristic"
)

var (
	// ErrEmptyCrop is returned when the face crop has no pixels
	ErrEmptyCrop = errors.New("empty face crop")
	// ErrModelUnavailable is returned when no model backend can be loaded
	ErrModelUnavailable = errors.New("gender model unavailable")
)

// Estimate is a gender label with a confidence in [0, 1].
// Confidences from different modes are not comparable.
type Estimate struct {
	Label      string
	Confidence float64
	Mode       Mode
}

// Estimator produces an Estimate for a face crop
type Estimator interface {
	Estimate(color image.Image, gray *image.Gray) (Estimate, error)
	Mode() Mode
}
