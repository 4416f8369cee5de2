package config

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"

	"github.com/vzahanych/styleai/internal/logger"
)

// EnvPrefix is the prefix of every environment override
const EnvPrefix = "STYLEAI_"

// Service provides configuration management with environment variable support
type Service struct {
	config     *Config
	configPath string
	logger     *logger.Logger
	mu         sync.RWMutex
	watchers   []ConfigWatcher
}

// ConfigWatcher is called when configuration changes
type ConfigWatcher func(ctx context.Context, oldConfig, newConfig *Config) error

// NewService loads, overrides and validates the configuration
func NewService(configPath string, log *logger.Logger) (*Service, error) {
	cfg, err := LoadWithEnv(configPath)
	if err != nil {
		return nil, err
	}

	return NewServiceWithConfig(cfg, configPath, log), nil
}

// NewServiceWithConfig wraps an already loaded configuration
func NewServiceWithConfig(cfg *Config, configPath string, log *logger.Logger) *Service {
	return &Service{
		config:     cfg,
		configPath: configPath,
		logger:     log,
		watchers:   make([]ConfigWatcher, 0),
	}
}

// LoadWithEnv loads the file, applies .env and environment overrides, then validates
func LoadWithEnv(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Get returns the current configuration (thread-safe)
func (s *Service) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// Reload reloads the configuration from file
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldConfig := s.config

	newConfig, err := LoadWithEnv(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	s.config = newConfig

	for _, watcher := range s.watchers {
		if err := watcher(ctx, oldConfig, newConfig); err != nil {
			s.logger.Error("Config watcher error", "error", err)
		}
	}

	s.logger.Info("Configuration reloaded", "path", s.configPath)
	return nil
}

// Watch registers a configuration change watcher
func (s *Service) Watch(watcher ConfigWatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, watcher)
}

// ApplyEnvOverrides loads .env when present and applies STYLEAI_* variables.
// GROQ_API_KEY is honoured when no recommender key is configured.
func ApplyEnvOverrides(cfg *Config) error {
	// A missing .env file is normal outside development
	_ = godotenv.Load()

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return err
	}

	if cfg.Recommender.APIKey == "" {
		cfg.Recommender.APIKey = os.Getenv("GROQ_API_KEY")
	}

	return nil
}

// Redacted returns a copy safe for logging and the status API
func (c *Config) Redacted() Config {
	out := *c
	if out.Recommender.APIKey != "" {
		out.Recommender.APIKey = "***"
	}
	return out
}

// ChangedSections lists the top-level sections that differ between two configurations
func ChangedSections(oldConfig, newConfig *Config) []string {
	var changed []string
	if oldConfig.DataDir != newConfig.DataDir {
		changed = append(changed, "data_dir")
	}
	if oldConfig.Log != newConfig.Log {
		changed = append(changed, "log")
	}
	if oldConfig.Server != newConfig.Server {
		changed = append(changed, "server")
	}
	if oldConfig.Health != newConfig.Health {
		changed = append(changed, "health")
	}
	if oldConfig.Vision != newConfig.Vision {
		changed = append(changed, "vision")
	}
	if oldConfig.Gender != newConfig.Gender {
		changed = append(changed, "gender")
	}
	if oldConfig.Profile != newConfig.Profile {
		changed = append(changed, "profile")
	}
	if oldConfig.Recommender != newConfig.Recommender {
		changed = append(changed, "recommender")
	}
	if oldConfig.Storage != newConfig.Storage {
		changed = append(changed, "storage")
	}
	return changed
}
