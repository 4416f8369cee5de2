package vision

import (
	"image"

	"github.com/montanaflynn/stats"
)

// DefaultBlurThreshold is the Laplacian variance below which an image is blurry
const DefaultBlurThreshold = 100.0

// QualityGate rejects images that are too blurry to analyse
type QualityGate struct {
	Threshold float64
}

// NewQualityGate creates a gate; a non-positive threshold selects the default
func NewQualityGate(threshold float64) *QualityGate {
	if threshold <= 0 {
		threshold = DefaultBlurThreshold
	}
	return &QualityGate{Threshold: threshold}
}

// IsBlurry reports whether the Laplacian variance of img is below the threshold.
// A nil or empty image is blurry.
func (q *QualityGate) IsBlurry(img image.Image) bool {
	if img == nil || img.Bounds().Empty() {
		return true
	}
	return LaplacianVariance(img) < q.Threshold
}

// IsBlurry applies the default threshold
func IsBlurry(img image.Image) bool {
	return NewQualityGate(DefaultBlurThreshold).IsBlurry(img)
}

// LaplacianVariance returns the population variance of the Laplacian response
func LaplacianVariance(img image.Image) float64 {
	if img == nil || img.Bounds().Empty() {
		return 0
	}
	v, err := stats.PopulationVariance(Laplacian(ToGray(img)))
	if err != nil {
		return 0
	}
	return v
}

// LaplacianStdDev returns the population standard deviation of the Laplacian response
func LaplacianStdDev(g *image.Gray) float64 {
	sd, err := stats.StandardDeviationPopulation(Laplacian(g))
	if err != nil {
		return 0
	}
	return sd
}

// MeanGray returns the mean intensity of the rows [y0, y1) of g
func MeanGray(g *image.Gray, y0, y1 int) float64 {
	w := g.Rect.Dx()
	if y0 < 0 {
		y0 = 0
	}
	if y1 > g.Rect.Dy() {
		y1 = g.Rect.Dy()
	}
	if w == 0 || y1 <= y0 {
		return 0
	}

	var sum uint64
	for y := y0; y < y1; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for _, p := range row {
			sum += uint64(p)
		}
	}
	return float64(sum) / float64(w*(y1-y0))
}
