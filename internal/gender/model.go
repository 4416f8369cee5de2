package gender

import (
	"fmt"
	"image"

	"github.com/vzahanych/styleai/internal/logger"
)

// Classifier runs the two-class gender network on a color face crop.
// The output order is [Male, Female].
type Classifier interface {
	Classify(color image.Image) ([]float32, error)
	Close() error
}

// Loader builds a Classifier from a Caffe topology and weights file
type Loader func(prototxt, caffemodel string) (Classifier, error)

// ModelEstimator labels faces with a learned classifier.
// A failed forward pass falls back to the heuristic for that call only.
type ModelEstimator struct {
	classifier Classifier
	fallback   *HeuristicEstimator
	logger     *logger.Logger
	onFallback func(err error)
}

// NewModelEstimator wraps classifier. onFallback may be nil.
func NewModelEstimator(classifier Classifier, fallback *HeuristicEstimator, log *logger.Logger, onFallback func(err error)) *ModelEstimator {
	if fallback == nil {
		fallback = NewHeuristicEstimator()
	}
	return &ModelEstimator{
		classifier: classifier,
		fallback:   fallback,
		logger:     log,
		onFallback: onFallback,
	}
}

// Mode returns ModeModel
func (m *ModelEstimator) Mode() Mode {
	return ModeModel
}

// Estimate takes the argmax of the network output
func (m *ModelEstimator) Estimate(color image.Image, gray *image.Gray) (Estimate, error) {
	if color == nil || color.Bounds().Empty() {
		return Estimate{}, ErrEmptyCrop
	}

	est, err := m.classify(color)
	if err == nil {
		return est, nil
	}

	m.logger.Warn("Gender model failed, using heuristic for this request", "error", err)
	if m.onFallback != nil {
		m.onFallback(err)
	}
	return m.fallback.Estimate(color, gray)
}

func (m *ModelEstimator) classify(color image.Image) (Estimate, error) {
	out, err := m.classifier.Classify(color)
	if err != nil {
		return Estimate{}, err
	}
	if len(out) < 2 {
		return Estimate{}, fmt.Errorf("unexpected model output size %d", len(out))
	}

	label, conf := Male, out[0]
	if out[1] > out[0] {
		label, conf = Female, out[1]
	}

	return Estimate{
		Label:      label,
		Confidence: clamp01(float64(conf)),
		Mode:       ModeModel,
	}, nil
}

func clamp01(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
