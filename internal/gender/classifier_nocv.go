//go:build !gocv

package gender

// BackendAvailable reports whether this build can run the Caffe classifier.
// Build with -tags gocv to enable the OpenCV DNN backend.
const BackendAvailable = false

// DefaultLoader returns nil: without a backend the provider skips provisioning
// and runs the heuristic estimator.
func DefaultLoader() Loader {
	return nil
}
