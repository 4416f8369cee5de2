package gender

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vzahanych/styleai/internal/logger"
)

type stubClassifier struct {
	out    []float32
	err    error
	closed bool
}

func (s *stubClassifier) Classify(img image.Image) ([]float32, error) {
	return s.out, s.err
}

func (s *stubClassifier) Close() error {
	s.closed = true
	return nil
}

func faceCrop() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 60, 60))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = 40, 40, 40, 255
	}
	return img
}

func TestModelEstimator_Argmax(t *testing.T) {
	tests := []struct {
		name  string
		out   []float32
		label string
		conf  float64
	}{
		{"female", []float32{0.25, 0.75}, Female, 0.75},
		{"male", []float32{0.9, 0.1}, Male, 0.9},
		{"tie goes to first class", []float32{0.5, 0.5}, Male, 0.5},
		{"clamped high", []float32{1.3, -0.3}, Male, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModelEstimator(&stubClassifier{out: tt.out}, nil, logger.NewNopLogger(), nil)

			est, err := m.Estimate(faceCrop(), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.label, est.Label)
			assert.InDelta(t, tt.conf, est.Confidence, 1e-6)
			assert.Equal(t, ModeModel, est.Mode)
		})
	}
}

func TestModelEstimator_FallsBackPerRequest(t *testing.T) {
	var fallbacks int
	m := NewModelEstimator(
		&stubClassifier{err: errors.New("forward failed")},
		NewHeuristicEstimator(),
		logger.NewNopLogger(),
		func(err error) { fallbacks++ },
	)

	est, err := m.Estimate(faceCrop(), nil)
	require.NoError(t, err)
	assert.Equal(t, ModeHeuristic, est.Mode)
	assert.Equal(t, Male, est.Label)
	assert.Equal(t, 1, fallbacks)
	assert.Equal(t, ModeModel, m.Mode(), "estimator mode is unchanged by a single failure")
}

func TestModelEstimator_ShortOutputFallsBack(t *testing.T) {
	m := NewModelEstimator(&stubClassifier{out: []float32{0.9}}, nil, logger.NewNopLogger(), nil)

	est, err := m.Estimate(faceCrop(), nil)
	require.NoError(t, err)
	assert.Equal(t, ModeHeuristic, est.Mode)
}

func TestModelEstimator_EmptyCrop(t *testing.T) {
	m := NewModelEstimator(&stubClassifier{out: []float32{0.9, 0.1}}, nil, logger.NewNopLogger(), nil)

	_, err := m.Estimate(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyCrop)
}
