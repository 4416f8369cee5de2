package gender

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/vzahanych/styleai/internal/logger"
	"github.com/vzahanych/styleai/internal/storage"
)

// Artifact file names inside the model directory
const (
	PrototxtFile   = "gender_deploy.prototxt"
	CaffemodelFile = "gender_net.caffemodel"
)

// ProviderConfig selects and locates the gender model
type ProviderConfig struct {
	Mode          string // auto or heuristic
	ModelDir      string
	PrototxtURL   string
	CaffemodelURL string
}

// ArtifactEnsurer makes model files available locally
type ArtifactEnsurer interface {
	EnsureAll(ctx context.Context, artifacts ...storage.Artifact) error
}

// Status describes the active estimator
type Status struct {
	Mode     Mode   `json:"mode"`
	Degraded bool   `json:"degraded"`
	Reason   string `json:"reason,omitempty"`
}

// Provider initialises the process-wide estimator exactly once.
// The estimator is read-only afterwards and shared by all requests.
type Provider struct {
	cfg        ProviderConfig
	store      ArtifactEnsurer
	loader     Loader
	logger     *logger.Logger
	onFallback func(err error)

	once       sync.Once
	estimator  Estimator
	classifier Classifier
	status     Status
}

// NewProvider creates a provider. store and loader may be nil, which forces heuristic mode.
func NewProvider(cfg ProviderConfig, store ArtifactEnsurer, loader Loader, log *logger.Logger) *Provider {
	return &Provider{
		cfg:    cfg,
		store:  store,
		loader: loader,
		logger: log,
	}
}

// OnModelFallback registers a callback for per-request model failures. Call before Estimator.
func (p *Provider) OnModelFallback(fn func(err error)) {
	p.onFallback = fn
}

// Artifacts returns the model files the provider needs
func (p *Provider) Artifacts() []storage.Artifact {
	return []storage.Artifact{
		{Name: PrototxtFile, URL: p.cfg.PrototxtURL, Path: filepath.Join(p.cfg.ModelDir, PrototxtFile)},
		{Name: CaffemodelFile, URL: p.cfg.CaffemodelURL, Path: filepath.Join(p.cfg.ModelDir, CaffemodelFile)},
	}
}

// Estimator returns the active estimator, initialising it on first call
func (p *Provider) Estimator(ctx context.Context) Estimator {
	p.once.Do(func() {
		p.init(ctx)
	})
	return p.estimator
}

// Status returns the active mode and why the model is not in use, if it isn't
func (p *Provider) Status(ctx context.Context) Status {
	p.Estimator(ctx)
	return p.status
}

// Close releases the model backend
func (p *Provider) Close() error {
	if p.classifier != nil {
		return p.classifier.Close()
	}
	return nil
}

func (p *Provider) init(ctx context.Context) {
	heuristic := NewHeuristicEstimator()

	degrade := func(reason string, err error) {
		p.estimator = heuristic
		p.status = Status{Mode: ModeHeuristic, Degraded: true, Reason: reason}
		p.logger.Warn("Gender model unavailable, using heuristic estimator",
			"reason", reason,
			"error", err,
		)
	}

	if p.cfg.Mode == string(ModeHeuristic) {
		p.estimator = heuristic
		p.status = Status{Mode: ModeHeuristic}
		p.logger.Info("Gender estimator configured", "mode", ModeHeuristic)
		return
	}

	// Without a loader the artifacts could never be used
	if p.loader == nil {
		degrade("no model backend", ErrModelUnavailable)
		return
	}

	artifacts := p.Artifacts()
	if p.store != nil {
		if err := p.store.EnsureAll(ctx, artifacts...); err != nil {
			degrade("artifacts unavailable", err)
			return
		}
	}

	classifier, err := p.loader(artifacts[0].Path, artifacts[1].Path)
	if err != nil {
		degrade("model failed to load", err)
		return
	}

	p.classifier = classifier
	p.estimator = NewModelEstimator(classifier, heuristic, p.logger, p.onFallback)
	p.status = Status{Mode: ModeModel}
	p.logger.Info("Gender estimator configured", "mode", ModeModel, "model_dir", p.cfg.ModelDir)
}
