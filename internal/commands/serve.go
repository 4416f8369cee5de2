package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/vzahanych/styleai/internal/config"
	"github.com/vzahanych/styleai/internal/gender"
	"github.com/vzahanych/styleai/internal/health"
	"github.com/vzahanych/styleai/internal/logger"
	"github.com/vzahanych/styleai/internal/recommend"
	"github.com/vzahanych/styleai/internal/service"
	"github.com/vzahanych/styleai/internal/state"
	"github.com/vzahanych/styleai/internal/telemetry"
	"github.com/vzahanych/styleai/internal/web"
)

// ServeCommand registers the serve cli command.
var ServeCommand = cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP API",
	Flags:  []cli.Flag{configFlag},
	Action: serveAction,
}

func serveAction(ctx *cli.Context) error {
	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("Starting StyleAI",
		"version", ctx.App.Version,
		"build_time", ctx.App.Metadata["build_time"],
		"git_commit", ctx.App.Metadata["git_commit"],
	)
	log.Debug("Configuration loaded", "config", cfg.Redacted())

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, disk := newArtifactStore(cfg, log)

	locator, err := newLocator(runCtx, cfg, store)
	if err != nil {
		return err
	}

	registry := telemetry.NewRegistry()

	provider := newProvider(cfg, store, log)
	provider.OnModelFallback(func(err error) {
		registry.Inc(context.Background(), telemetry.CounterModelFallbacks, nil, 1)
	})
	defer provider.Close()

	// Initialise the estimator before accepting requests
	modelStatus := provider.Status(runCtx)

	stateMgr, err := state.NewManager(cfg.Storage.DBPath, log)
	if err != nil {
		return fmt.Errorf("failed to open state database: %w", err)
	}
	defer stateMgr.Close()

	if err := stateMgr.RecordStartup(runCtx, string(modelStatus.Mode)); err != nil {
		log.Warn("Failed to record startup", "error", err)
	}

	svcMgr := service.NewManager(log)
	bus := svcMgr.GetEventBus()

	pipeline := newPipeline(cfg, locator, provider, bus, log)

	client := recommend.NewClient(recommend.ClientConfig{
		BaseURL:     cfg.Recommender.BaseURL,
		APIKey:      cfg.Recommender.APIKey,
		Model:       cfg.Recommender.Model,
		Temperature: cfg.Recommender.Temperature,
		MaxTokens:   cfg.Recommender.MaxTokens,
		Timeout:     cfg.Recommender.Timeout,
	})
	recommender := recommend.NewService(client, stateMgr, registry, recommend.Options{
		MaxRetries: cfg.Recommender.MaxRetries,
		RetryDelay: cfg.Recommender.RetryDelay,
		CacheTTL:   cfg.Recommender.CacheTTL,
	}, log)

	collector := telemetry.NewCollector(registry, disk, func() string {
		return string(provider.Status(runCtx).Mode)
	}, 30*time.Second, log)

	server := web.NewServer(cfg.Server, log)
	server.SetVersion(ctx.App.Version)
	server.SetDependencies(pipeline, recommender)
	server.SetStatsSource(stateMgr)
	server.SetTelemetry(collector, registry)
	server.SetModelStatus(provider)

	svcMgr.Register(state.NewRecorder(stateMgr, registry, log))
	svcMgr.Register(recommender)
	svcMgr.Register(collector)
	svcMgr.Register(server)

	healthMgr := health.NewManager(log, svcMgr, cfg.Health.Port)
	healthMgr.RegisterChecker(&health.SystemChecker{})
	healthMgr.RegisterChecker(health.NewDatabaseChecker(stateMgr))
	healthMgr.RegisterChecker(health.NewGenderModelChecker(provider))
	healthMgr.RegisterChecker(health.NewRecommenderChecker(cfg.Recommender.BaseURL, cfg.Recommender.APIKey))
	healthMgr.RegisterChecker(health.NewStorageChecker(disk, cfg.DataDir, cfg.Gender.ModelDir))

	if err := healthMgr.Start(runCtx); err != nil {
		return fmt.Errorf("failed to start health check server: %w", err)
	}

	if err := svcMgr.Start(runCtx); err != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		_ = svcMgr.Shutdown(stopCtx)
		_ = healthMgr.Stop(stopCtx)
		return err
	}

	announceModel(bus, modelStatus)

	cfgSvc := config.NewServiceWithConfig(cfg, configPath(ctx), log)
	cfgSvc.Watch(reportConfigChanges(log))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			if err := cfgSvc.Reload(runCtx); err != nil {
				log.Error("Configuration reload failed", "error", err)
			}
			continue
		}
		log.Info("Received shutdown signal", "signal", sig)
		break
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := healthMgr.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping health check server", "error", err)
	}

	if err := svcMgr.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}

	log.Info("Shutdown complete")
	return nil
}

// reportConfigChanges logs which sections changed on reload. Running
// components keep the configuration they were built with.
func reportConfigChanges(log *logger.Logger) config.ConfigWatcher {
	return func(ctx context.Context, oldConfig, newConfig *config.Config) error {
		changed := config.ChangedSections(oldConfig, newConfig)
		if len(changed) == 0 {
			log.Info("Configuration unchanged")
			return nil
		}
		log.Warn("Configuration changed, restart to apply", "sections", changed)
		return nil
	}
}

func announceModel(bus *service.EventBus, st gender.Status) {
	data := map[string]interface{}{
		"mode":     string(st.Mode),
		"degraded": st.Degraded,
	}
	if st.Reason != "" {
		data["reason"] = st.Reason
	}
	bus.Publish(service.Event{
		Type:   service.EventTypeModelProvisioned,
		Source: "gender-provider",
		Data:   data,
	})
}
