//go:build !gocv

package gender

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vzahanych/styleai/internal/logger"
)

func TestDefaultLoader_NoBackend(t *testing.T) {
	assert.False(t, BackendAvailable)
	assert.Nil(t, DefaultLoader())
}

func TestProvider_NoBackendSkipsDownloads(t *testing.T) {
	store := &stubStore{}
	p := NewProvider(testConfig(t.TempDir()), store, DefaultLoader(), logger.NewNopLogger())

	assert.Equal(t, ModeHeuristic, p.Estimator(context.Background()).Mode())
	assert.Equal(t, Status{Mode: ModeHeuristic, Degraded: true, Reason: "no model backend"}, p.Status(context.Background()))
	assert.Equal(t, int32(0), store.calls.Load())
}
