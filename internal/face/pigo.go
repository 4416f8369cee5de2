package face

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// PigoParams configures the cascade run
type PigoParams struct {
	MinSize          int
	ShiftFactor      float64
	ScaleFactor      float64
	IoUThreshold     float64
	QualityThreshold float32
}

// DefaultPigoParams returns the detection parameters used by the service
func DefaultPigoParams() PigoParams {
	return PigoParams{
		MinSize:          30,
		ShiftFactor:      0.1,
		ScaleFactor:      1.1,
		IoUThreshold:     0.2,
		QualityThreshold: 5.0,
	}
}

// PigoDetector runs the pigo facefinder cascade. It is read-only after construction.
type PigoDetector struct {
	classifier *pigo.Pigo
	params     PigoParams
}

// NewPigoDetector unpacks a facefinder cascade. A truncated cascade is an error.
func NewPigoDetector(cascade []byte, params PigoParams) (det *PigoDetector, err error) {
	if len(cascade) < 16 {
		return nil, fmt.Errorf("failed to unpack cascade: %d bytes is too short", len(cascade))
	}
	// pigo indexes the packet without bounds checks
	defer func() {
		if r := recover(); r != nil {
			det, err = nil, fmt.Errorf("failed to unpack cascade: %v", r)
		}
	}()

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}
	return &PigoDetector{classifier: classifier, params: params}, nil
}

// LoadPigoDetector reads and unpacks the cascade at path
func LoadPigoDetector(path string, params PigoParams) (*PigoDetector, error) {
	cascade, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}
	return NewPigoDetector(cascade, params)
}

// Detect returns clustered detections above the quality threshold
func (d *PigoDetector) Detect(gray *image.Gray) []Candidate {
	cols, rows := gray.Rect.Dx(), gray.Rect.Dy()
	maxSize := cols
	if rows < maxSize {
		maxSize = rows
	}
	if maxSize < d.params.MinSize {
		return nil
	}

	cParams := pigo.CascadeParams{
		MinSize:     d.params.MinSize,
		MaxSize:     maxSize,
		ShiftFactor: d.params.ShiftFactor,
		ScaleFactor: d.params.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: gray.Pix,
			Rows:   rows,
			Cols:   cols,
			Dim:    gray.Stride,
		},
	}

	dets := d.classifier.RunCascade(cParams, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.params.IoUThreshold)

	candidates := make([]Candidate, 0, len(dets))
	for _, det := range dets {
		if det.Q < d.params.QualityThreshold {
			continue
		}
		// Row and Col are the centre, Scale is the side length
		half := det.Scale / 2
		candidates = append(candidates, Candidate{
			Rect:  image.Rect(det.Col-half, det.Row-half, det.Col-half+det.Scale, det.Row-half+det.Scale),
			Score: det.Q,
		})
	}
	return candidates
}
