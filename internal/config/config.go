// Package config provides the configuration structure for the voice studio.
package config

import (
	"fmt"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Defaults applied to zero-valued settings after loading.
const (
	defaultEngineTimeoutSeconds     = 120
	defaultGenerationTimeoutSeconds = 180
	defaultParameterPolicy          = "clamp"
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                    string `toml:"url"`
	GenerationJobSubject   string `toml:"generation_job_subject"`
	ProfileBucket          string `toml:"profile_bucket"`
	HistoryBucket          string `toml:"history_bucket"`
	AudioObjectStoreBucket string `toml:"audio_object_store_bucket"`
}

// EngineConfig holds the configuration for the TTS inference server.
type EngineConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// GenerationConfig holds the generation policy settings.
type GenerationConfig struct {
	// ParameterPolicy is "clamp" or "reject".
	ParameterPolicy string `toml:"parameter_policy"`

	// TimeoutSeconds bounds a single generation call.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	OutputDir   string `toml:"output_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS       NATSConfig       `toml:"nats"`
	Engine     EngineConfig     `toml:"engine"`
	Generation GenerationConfig `toml:"generation"`
	Paths      PathsConfig      `toml:"paths"`
}

// Load loads the configuration for the voice studio and fills defaults.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.TimeoutSeconds <= 0 {
		c.Engine.TimeoutSeconds = defaultEngineTimeoutSeconds
	}

	if c.Generation.TimeoutSeconds <= 0 {
		c.Generation.TimeoutSeconds = defaultGenerationTimeoutSeconds
	}

	if c.Generation.ParameterPolicy == "" {
		c.Generation.ParameterPolicy = defaultParameterPolicy
	}
}

// EngineTimeout returns the engine HTTP timeout as a duration.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

// GenerationTimeout returns the per-generation deadline as a duration.
func (c *Config) GenerationTimeout() time.Duration {
	return time.Duration(c.Generation.TimeoutSeconds) * time.Second
}
