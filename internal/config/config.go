package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	DataDir     string            `yaml:"data_dir" env:"DATA_DIR"`
	Log         LogConfig         `yaml:"log,omitempty" envPrefix:"LOG_"`
	Server      ServerConfig      `yaml:"server" envPrefix:"SERVER_"`
	Health      HealthConfig      `yaml:"health" envPrefix:"HEALTH_"`
	Vision      VisionConfig      `yaml:"vision" envPrefix:"VISION_"`
	Gender      GenderConfig      `yaml:"gender" envPrefix:"GENDER_"`
	Profile     ProfileConfig     `yaml:"profile" envPrefix:"PROFILE_"`
	Recommender RecommenderConfig `yaml:"recommender" envPrefix:"RECOMMENDER_"`
	Storage     StorageConfig     `yaml:"storage" envPrefix:"STORAGE_"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
	Output string `yaml:"output" env:"OUTPUT"`
}

// ServerConfig contains the public API server configuration
type ServerConfig struct {
	Host           string        `yaml:"host" env:"HOST"`
	Port           int           `yaml:"port" env:"PORT"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES"`
	ReadTimeout    time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
}

// HealthConfig contains the health probe server configuration
type HealthConfig struct {
	Port int `yaml:"port" env:"PORT"`
}

// VisionConfig contains image quality and face detection settings
type VisionConfig struct {
	BlurThreshold float64    `yaml:"blur_threshold" env:"BLUR_THRESHOLD"`
	Face          FaceConfig `yaml:"face" envPrefix:"FACE_"`
}

// FaceConfig contains pigo cascade settings
type FaceConfig struct {
	CascadePath      string  `yaml:"cascade_path" env:"CASCADE_PATH"`
	CascadeURL       string  `yaml:"cascade_url" env:"CASCADE_URL"`
	MinSize          int     `yaml:"min_size" env:"MIN_SIZE"`
	QualityThreshold float32 `yaml:"quality_threshold" env:"QUALITY_THRESHOLD"`
	IoUThreshold     float64 `yaml:"iou_threshold" env:"IOU_THRESHOLD"`
}

// GenderConfig contains gender estimator settings
type GenderConfig struct {
	Mode            string        `yaml:"mode" env:"MODE"` // auto or heuristic
	ModelDir        string        `yaml:"model_dir" env:"MODEL_DIR"`
	PrototxtURL     string        `yaml:"prototxt_url" env:"PROTOTXT_URL"`
	CaffemodelURL   string        `yaml:"caffemodel_url" env:"CAFFEMODEL_URL"`
	DownloadTimeout time.Duration `yaml:"download_timeout" env:"DOWNLOAD_TIMEOUT"`
}

// ProfileConfig contains profile pipeline policy settings
type ProfileConfig struct {
	SkipGenderVerify bool `yaml:"skip_gender_verify" env:"SKIP_GENDER_VERIFY"`
}

// RecommenderConfig contains the text recommendation service configuration
type RecommenderConfig struct {
	BaseURL     string        `yaml:"base_url" env:"BASE_URL"`
	APIKey      string        `yaml:"api_key" env:"API_KEY"` // never logged
	Model       string        `yaml:"model" env:"MODEL"`
	Temperature float32       `yaml:"temperature" env:"TEMPERATURE"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS"`
	Timeout     time.Duration `yaml:"timeout" env:"TIMEOUT"`
	MaxRetries  int           `yaml:"max_retries" env:"MAX_RETRIES"`
	RetryDelay  time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
	CacheTTL    time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
}

// StorageConfig contains local persistence configuration
type StorageConfig struct {
	DBPath       string `yaml:"db_path" env:"DB_PATH"`
	MinFreeBytes int64  `yaml:"min_free_bytes" env:"MIN_FREE_BYTES"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads and parses the configuration file.
// An empty path with no file at any default location yields the defaults.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = getDefaultConfigPath()
		if configPath == "" {
			return Default(), nil
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// getDefaultConfigPath returns the first existing default configuration path
func getDefaultConfigPath() string {
	paths := []string{
		"./config/config.dev.yaml",
		"./config/config.yaml",
		"../config/config.dev.yaml",
		"../config/config.yaml",
		"/etc/styleai/config.yaml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}

	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 5000
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 90 * time.Second
	}

	if c.Health.Port == 0 {
		c.Health.Port = 8081
	}

	if c.Vision.BlurThreshold == 0 {
		c.Vision.BlurThreshold = 100
	}
	if c.Vision.Face.CascadePath == "" {
		c.Vision.Face.CascadePath = filepath.Join(c.DataDir, "models", "facefinder")
	}
	if c.Vision.Face.CascadeURL == "" {
		c.Vision.Face.CascadeURL = "https://raw.githubusercontent.com/esimov/pigo/master/cascade/facefinder"
	}
	if c.Vision.Face.MinSize == 0 {
		c.Vision.Face.MinSize = 30
	}
	if c.Vision.Face.QualityThreshold == 0 {
		c.Vision.Face.QualityThreshold = 5.0
	}
	if c.Vision.Face.IoUThreshold == 0 {
		c.Vision.Face.IoUThreshold = 0.2
	}

	if c.Gender.Mode == "" {
		c.Gender.Mode = "auto"
	}
	if c.Gender.ModelDir == "" {
		c.Gender.ModelDir = filepath.Join(c.DataDir, "models")
	}
	if c.Gender.PrototxtURL == "" {
		c.Gender.PrototxtURL = "https://raw.githubusercontent.com/smahesh29/Gender-and-Age-Detection/master/gender_deploy.prototxt"
	}
	if c.Gender.CaffemodelURL == "" {
		c.Gender.CaffemodelURL = "https://raw.githubusercontent.com/smahesh29/Gender-and-Age-Detection/master/gender_net.caffemodel"
	}
	if c.Gender.DownloadTimeout == 0 {
		c.Gender.DownloadTimeout = 60 * time.Second
	}

	if c.Recommender.BaseURL == "" {
		c.Recommender.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Recommender.Model == "" {
		c.Recommender.Model = "llama-3.3-70b-versatile"
	}
	if c.Recommender.Temperature == 0 {
		c.Recommender.Temperature = 0.7
	}
	if c.Recommender.MaxTokens == 0 {
		c.Recommender.MaxTokens = 1024
	}
	if c.Recommender.Timeout == 0 {
		c.Recommender.Timeout = 45 * time.Second
	}
	if c.Recommender.MaxRetries == 0 {
		c.Recommender.MaxRetries = 2
	}
	if c.Recommender.RetryDelay == 0 {
		c.Recommender.RetryDelay = time.Second
	}
	if c.Recommender.CacheTTL == 0 {
		c.Recommender.CacheTTL = 24 * time.Hour
	}

	if c.Storage.DBPath == "" {
		c.Storage.DBPath = filepath.Join(c.DataDir, "db", "styleai.db")
	}
	if c.Storage.MinFreeBytes == 0 {
		c.Storage.MinFreeBytes = 100 << 20
	}
}
