package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/vzahanych/styleai/internal/config"
	"github.com/vzahanych/styleai/internal/face"
	"github.com/vzahanych/styleai/internal/gender"
	"github.com/vzahanych/styleai/internal/logger"
	"github.com/vzahanych/styleai/internal/profile"
	"github.com/vzahanych/styleai/internal/service"
	"github.com/vzahanych/styleai/internal/storage"
	"github.com/vzahanych/styleai/internal/vision"
)

// loadConfig reads configuration and creates the logger
func loadConfig(ctx *cli.Context) (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadWithEnv(configPath(ctx))
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(logger.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, log, nil
}

func newArtifactStore(cfg *config.Config, log *logger.Logger) (*storage.ArtifactStore, *storage.DiskMonitor) {
	disk := storage.NewDiskMonitor(cfg.DataDir, cfg.Storage.MinFreeBytes, log)
	return storage.NewArtifactStore(disk, cfg.Gender.DownloadTimeout, log), disk
}

func cascadeArtifact(cfg *config.Config) storage.Artifact {
	return storage.Artifact{
		Name: "facefinder",
		URL:  cfg.Vision.Face.CascadeURL,
		Path: cfg.Vision.Face.CascadePath,
	}
}

// newLocator provisions and loads the face cascade. The cascade is mandatory.
func newLocator(ctx context.Context, cfg *config.Config, store *storage.ArtifactStore) (*face.Locator, error) {
	if _, err := store.Ensure(ctx, cascadeArtifact(cfg)); err != nil {
		return nil, fmt.Errorf("face cascade unavailable: %w", err)
	}

	params := face.DefaultPigoParams()
	params.MinSize = cfg.Vision.Face.MinSize
	params.QualityThreshold = cfg.Vision.Face.QualityThreshold
	params.IoUThreshold = cfg.Vision.Face.IoUThreshold

	detector, err := face.LoadPigoDetector(cfg.Vision.Face.CascadePath, params)
	if err != nil {
		return nil, err
	}
	return face.NewLocator(detector), nil
}

func newProvider(cfg *config.Config, store *storage.ArtifactStore, log *logger.Logger) *gender.Provider {
	return gender.NewProvider(gender.ProviderConfig{
		Mode:          cfg.Gender.Mode,
		ModelDir:      cfg.Gender.ModelDir,
		PrototxtURL:   cfg.Gender.PrototxtURL,
		CaffemodelURL: cfg.Gender.CaffemodelURL,
	}, store, gender.DefaultLoader(), log)
}

func newPipeline(cfg *config.Config, locator *face.Locator, provider *gender.Provider, bus *service.EventBus, log *logger.Logger) *profile.Pipeline {
	return profile.NewPipeline(
		vision.NewQualityGate(cfg.Vision.BlurThreshold),
		locator,
		provider,
		profile.Options{SkipGenderVerify: cfg.Profile.SkipGenderVerify},
		bus,
		log,
	)
}
