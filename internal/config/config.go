// Package config provides the layered configuration for the Winnow service:
// TOML base file, environment overlay file, and WINNOW_ environment
// variable overrides, finalized with defaults and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/winnowhq/winnow/internal/classifier"
	"github.com/winnowhq/winnow/pipeline"
	"github.com/winnowhq/winnow/pkg/database"
	"github.com/winnowhq/winnow/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvWinnowEnv             = "WINNOW_ENV"
	EnvWinnowShutdownTimeout = "WINNOW_SHUTDOWN_TIMEOUT"
	EnvWinnowVersion         = "WINNOW_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "WINNOW_DB_HOST",
	Port:            "WINNOW_DB_PORT",
	Name:            "WINNOW_DB_NAME",
	User:            "WINNOW_DB_USER",
	Password:        "WINNOW_DB_PASSWORD",
	SSLMode:         "WINNOW_DB_SSL_MODE",
	MaxOpenConns:    "WINNOW_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "WINNOW_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "WINNOW_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "WINNOW_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "WINNOW_STORAGE_CONTAINER_NAME",
	ConnectionString: "WINNOW_STORAGE_CONNECTION_STRING",
}

var classifierEnv = &classifier.Env{
	BaseURL: "WINNOW_CLASSIFIER_BASE_URL",
	Model:   "WINNOW_CLASSIFIER_MODEL",
	Token:   "WINNOW_CLASSIFIER_TOKEN",
	Timeout: "WINNOW_CLASSIFIER_TIMEOUT",
}

var pipelineEnv = &pipeline.Env{
	MinTokens:         "WINNOW_PIPELINE_MIN_TOKENS",
	Vocabulary:        "WINNOW_PIPELINE_VOCABULARY",
	AcceptThreshold:   "WINNOW_PIPELINE_ACCEPT_THRESHOLD",
	ReviewThreshold:   "WINNOW_PIPELINE_REVIEW_THRESHOLD",
	GateConfidence:    "WINNOW_PIPELINE_GATE_CONFIDENCE",
	SemanticRetries:   "WINNOW_PIPELINE_SEMANTIC_RETRIES",
	Concurrency:       "WINNOW_PIPELINE_CONCURRENCY",
	PersistMaxElapsed: "WINNOW_PIPELINE_PERSIST_MAX_ELAPSED",
}

// Config is the root configuration for the Winnow service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	API             APIConfig         `toml:"api"`
	Classifier      classifier.Config `toml:"classifier"`
	Pipeline        pipeline.Config   `toml:"pipeline"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the WINNOW_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvWinnowEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Classifier.Merge(&overlay.Classifier)
	c.Pipeline.Merge(&overlay.Pipeline)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Classifier.Finalize(classifierEnv); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	if err := c.Pipeline.Finalize(pipelineEnv); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvWinnowShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvWinnowVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvWinnowEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
