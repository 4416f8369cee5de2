//go:build gocv

package gender

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

var (
	blobSize = image.Pt(227, 227)
	blobMean = gocv.NewScalar(78.4263377603, 87.7689143744, 114.895847746, 0)
)

// BackendAvailable reports whether this build can run the Caffe classifier
const BackendAvailable = true

// DefaultLoader loads the Caffe network with OpenCV DNN
func DefaultLoader() Loader {
	return func(prototxt, caffemodel string) (Classifier, error) {
		net := gocv.ReadNet(caffemodel, prototxt)
		if net.Empty() {
			return nil, fmt.Errorf("%w: could not read %s", ErrModelUnavailable, caffemodel)
		}
		return &gocvClassifier{net: net}, nil
	}
}

type gocvClassifier struct {
	mu  sync.Mutex
	net gocv.Net
}

// Classify runs one forward pass. Passes are serialized on the shared net.
func (c *gocvClassifier) Classify(img image.Image) ([]float32, error) {
	// ImageToMatRGB yields a BGR-ordered CV_8UC3 mat, as the network expects
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert face crop: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, 1.0, blobSize, blobMean, false, false)
	defer blob.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	defer out.Close()

	if out.Empty() || out.Total() < 2 {
		return nil, fmt.Errorf("unexpected network output")
	}

	return []float32{out.GetFloatAt(0, 0), out.GetFloatAt(0, 1)}, nil
}

func (c *gocvClassifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}
