package gender

import (
	"image"
	"math"

	"github.com/vzahanych/styleai/internal/vision"
)

const (
	wideFaceRatio     = 0.8
	darkChinLevel     = 110.0
	edgyFaceStdDev    = 12.0
	chinStartFraction = 0.7
	maxHeuristicConf  = 0.95
)

// Signals are the measurements the heuristic scores
type Signals struct {
	AspectRatio    float64
	ChinBrightness float64
	EdgeStdDev     float64
	MaleScore      float64
	FemaleScore    float64
}

// HeuristicEstimator scores simple face geometry and texture signals.
// It performs no I/O and is deterministic.
type HeuristicEstimator struct{}

// NewHeuristicEstimator creates a heuristic estimator
func NewHeuristicEstimator() *HeuristicEstimator {
	return &HeuristicEstimator{}
}

// Mode returns ModeHeuristic
func (h *HeuristicEstimator) Mode() Mode {
	return ModeHeuristic
}

// Score computes the signals and the additive scores for a face crop
func (h *HeuristicEstimator) Score(gray *image.Gray) Signals {
	w, ht := gray.Rect.Dx(), gray.Rect.Dy()

	s := Signals{
		AspectRatio:    float64(w) / float64(ht),
		ChinBrightness: vision.MeanGray(gray, int(float64(ht)*chinStartFraction), ht),
		EdgeStdDev:     vision.LaplacianStdDev(gray),
	}

	if s.AspectRatio > wideFaceRatio {
		s.MaleScore += 2
	} else {
		s.FemaleScore += 1
	}

	if s.ChinBrightness < darkChinLevel {
		s.MaleScore += 1.5
	}

	if s.EdgeStdDev > edgyFaceStdDev {
		s.MaleScore += 1
	} else {
		s.FemaleScore += 1
	}

	return s
}

// Estimate labels the crop Male only when the male score is strictly higher
func (h *HeuristicEstimator) Estimate(color image.Image, gray *image.Gray) (Estimate, error) {
	if gray == nil && color != nil {
		gray = vision.ToGray(color)
	}
	if gray == nil || gray.Rect.Empty() {
		return Estimate{}, ErrEmptyCrop
	}

	s := h.Score(gray)

	label, winning := Female, s.FemaleScore
	if s.MaleScore > s.FemaleScore {
		label, winning = Male, s.MaleScore
	}

	return Estimate{
		Label:      label,
		Confidence: math.Min(maxHeuristicConf, 0.5+winning/10),
		Mode:       ModeHeuristic,
	}, nil
}
