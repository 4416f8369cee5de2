package gender

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vzahanych/styleai/internal/logger"
	"github.com/vzahanych/styleai/internal/storage"
)

type stubStore struct {
	calls atomic.Int32
	err   error
	seen  []storage.Artifact
}

func (s *stubStore) EnsureAll(ctx context.Context, artifacts ...storage.Artifact) error {
	s.calls.Add(1)
	s.seen = artifacts
	return s.err
}

func testConfig(dir string) ProviderConfig {
	return ProviderConfig{
		Mode:          "auto",
		ModelDir:      dir,
		PrototxtURL:   "https://example.invalid/gender_deploy.prototxt",
		CaffemodelURL: "https://example.invalid/gender_net.caffemodel",
	}
}

func TestProvider_ModelMode(t *testing.T) {
	dir := t.TempDir()
	store := &stubStore{}
	cls := &stubClassifier{out: []float32{0.2, 0.8}}

	var gotPrototxt, gotModel string
	loader := func(prototxt, caffemodel string) (Classifier, error) {
		gotPrototxt, gotModel = prototxt, caffemodel
		return cls, nil
	}

	p := NewProvider(testConfig(dir), store, loader, logger.NewNopLogger())
	est := p.Estimator(context.Background())

	assert.Equal(t, ModeModel, est.Mode())
	assert.Equal(t, Status{Mode: ModeModel}, p.Status(context.Background()))
	assert.Equal(t, filepath.Join(dir, PrototxtFile), gotPrototxt)
	assert.Equal(t, filepath.Join(dir, CaffemodelFile), gotModel)
	require.Len(t, store.seen, 2)
	assert.Equal(t, "https://example.invalid/gender_net.caffemodel", store.seen[1].URL)

	require.NoError(t, p.Close())
	assert.True(t, cls.closed)
}

func TestProvider_InitOnceUnderConcurrency(t *testing.T) {
	store := &stubStore{}
	var loads atomic.Int32
	loader := func(prototxt, caffemodel string) (Classifier, error) {
		loads.Add(1)
		return &stubClassifier{out: []float32{0.6, 0.4}}, nil
	}

	p := NewProvider(testConfig(t.TempDir()), store, loader, logger.NewNopLogger())

	var wg sync.WaitGroup
	results := make([]Estimator, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Estimator(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, int32(1), store.calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestProvider_HeuristicModeSkipsProvisioning(t *testing.T) {
	store := &stubStore{}
	loader := func(prototxt, caffemodel string) (Classifier, error) {
		t.Fatal("loader must not be called in heuristic mode")
		return nil, nil
	}

	cfg := testConfig(t.TempDir())
	cfg.Mode = "heuristic"
	p := NewProvider(cfg, store, loader, logger.NewNopLogger())

	assert.Equal(t, ModeHeuristic, p.Estimator(context.Background()).Mode())
	assert.False(t, p.Status(context.Background()).Degraded)
	assert.Equal(t, int32(0), store.calls.Load())
}

func TestProvider_DownloadFailureDegrades(t *testing.T) {
	store := &stubStore{err: storage.ErrDownloadFailed}
	var loads atomic.Int32
	loader := func(prototxt, caffemodel string) (Classifier, error) {
		loads.Add(1)
		return &stubClassifier{}, nil
	}

	p := NewProvider(testConfig(t.TempDir()), store, loader, logger.NewNopLogger())

	assert.Equal(t, ModeHeuristic, p.Estimator(context.Background()).Mode())
	status := p.Status(context.Background())
	assert.True(t, status.Degraded)
	assert.Equal(t, "artifacts unavailable", status.Reason)
	assert.Equal(t, int32(0), loads.Load())

	// Degradation is permanent for the process
	assert.Equal(t, ModeHeuristic, p.Estimator(context.Background()).Mode())
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestProvider_LoaderFailureDegrades(t *testing.T) {
	loader := func(prototxt, caffemodel string) (Classifier, error) {
		return nil, errors.New("corrupt weights")
	}

	p := NewProvider(testConfig(t.TempDir()), &stubStore{}, loader, logger.NewNopLogger())

	assert.Equal(t, ModeHeuristic, p.Estimator(context.Background()).Mode())
	assert.Equal(t, "model failed to load", p.Status(context.Background()).Reason)
	assert.NoError(t, p.Close())
}

func TestProvider_NilLoaderDegrades(t *testing.T) {
	p := NewProvider(testConfig(t.TempDir()), nil, nil, logger.NewNopLogger())

	assert.Equal(t, ModeHeuristic, p.Estimator(context.Background()).Mode())
	assert.True(t, p.Status(context.Background()).Degraded)
}
