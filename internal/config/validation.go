package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate validates the configuration with detailed error messages
func (c *Config) Validate() error {
	var errors []string

	if c.DataDir == "" {
		errors = append(errors, "data_dir is required")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errors = append(errors, fmt.Sprintf("invalid log.level: %s (must be: debug, info, warn, error, fatal)", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errors = append(errors, fmt.Sprintf("invalid log.format: %s (must be: text or json)", c.Log.Format))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("server.port must be between 1 and 65535, got: %d", c.Server.Port))
	}
	if c.Health.Port <= 0 || c.Health.Port > 65535 {
		errors = append(errors, fmt.Sprintf("health.port must be between 1 and 65535, got: %d", c.Health.Port))
	}
	if c.Health.Port == c.Server.Port {
		errors = append(errors, fmt.Sprintf("health.port (%d) must differ from server.port", c.Health.Port))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errors = append(errors, fmt.Sprintf("server.max_upload_bytes must be > 0, got: %d", c.Server.MaxUploadBytes))
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		errors = append(errors, "server timeouts must be >= 0")
	}

	if c.Vision.BlurThreshold <= 0 {
		errors = append(errors, fmt.Sprintf("vision.blur_threshold must be > 0, got: %.2f", c.Vision.BlurThreshold))
	}
	if c.Vision.Face.MinSize <= 0 {
		errors = append(errors, fmt.Sprintf("vision.face.min_size must be > 0, got: %d", c.Vision.Face.MinSize))
	}
	if c.Vision.Face.IoUThreshold <= 0 || c.Vision.Face.IoUThreshold > 1 {
		errors = append(errors, fmt.Sprintf("vision.face.iou_threshold must be in (0, 1], got: %.2f", c.Vision.Face.IoUThreshold))
	}
	if c.Vision.Face.CascadePath == "" {
		errors = append(errors, "vision.face.cascade_path is required")
	}

	switch c.Gender.Mode {
	case "auto":
		if c.Gender.ModelDir == "" {
			errors = append(errors, "gender.model_dir is required when gender.mode is auto")
		}
		if c.Gender.DownloadTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("gender.download_timeout must be > 0, got: %v", c.Gender.DownloadTimeout))
		}
	case "heuristic":
	default:
		errors = append(errors, fmt.Sprintf("invalid gender.mode: %s (must be: auto or heuristic)", c.Gender.Mode))
	}

	if _, err := url.ParseRequestURI(c.Recommender.BaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("recommender.base_url is invalid: %q", c.Recommender.BaseURL))
	}
	if c.Recommender.Model == "" {
		errors = append(errors, "recommender.model is required")
	}
	if c.Recommender.Temperature < 0 || c.Recommender.Temperature > 2 {
		errors = append(errors, fmt.Sprintf("recommender.temperature must be between 0 and 2, got: %.2f", c.Recommender.Temperature))
	}
	if c.Recommender.MaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("recommender.max_retries must be >= 0, got: %d", c.Recommender.MaxRetries))
	}
	if c.Recommender.Timeout <= 0 {
		errors = append(errors, fmt.Sprintf("recommender.timeout must be > 0, got: %v", c.Recommender.Timeout))
	}
	if c.Recommender.RetryDelay < 0 {
		errors = append(errors, fmt.Sprintf("recommender.retry_delay must be >= 0, got: %v", c.Recommender.RetryDelay))
	}

	if c.Storage.DBPath == "" {
		errors = append(errors, "storage.db_path is required")
	}

	// Relative paths are resolved against data_dir
	c.Storage.DBPath = c.resolvePath(c.Storage.DBPath)
	c.Gender.ModelDir = c.resolvePath(c.Gender.ModelDir)
	c.Vision.Face.CascadePath = c.resolvePath(c.Vision.Face.CascadePath)

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// CacheEnabled reports whether recommendation caching is on. A negative TTL disables it.
func (c *RecommenderConfig) CacheEnabled() bool {
	return c.CacheTTL > 0
}

func (c *Config) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") {
		return p
	}
	if strings.HasPrefix(p, filepath.Clean(c.DataDir)+string(filepath.Separator)) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}
