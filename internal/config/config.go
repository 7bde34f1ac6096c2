// Package config loads and validates the churnd YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/churnml/churnd/internal/model"
	"github.com/churnml/churnd/internal/schema"
)

// Config holds the full churnd configuration.
type Config struct {
	Server    ServerConfig       `yaml:"server"`
	Schema    []schema.FieldSpec `yaml:"schema"`
	Training  TrainingConfig     `yaml:"training"`
	Artifacts ArtifactsConfig    `yaml:"artifacts"`
	Tracking  TrackingConfig     `yaml:"tracking"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address, e.g. ":8080"
}

type TrainingConfig struct {
	Dataset string `yaml:"dataset"` // labeled CSV path
	Target  string `yaml:"target"`  // label column name

	// ValidationSplit is the held-out fraction used for candidate scoring.
	ValidationSplit float64 `yaml:"validation_split"`

	// Threshold is the decision boundary; probability >= threshold is churn.
	Threshold float64 `yaml:"threshold"`

	// Seed drives splitting and every stochastic training step.
	Seed int64 `yaml:"seed"`

	// Candidates lists the algorithms to evaluate, in priority order: ties on
	// validation ROC-AUC resolve to the earlier entry.
	Candidates []string `yaml:"candidates"`
}

type ArtifactsConfig struct {
	Dir string `yaml:"dir"`
}

type TrackingConfig struct {
	DB string `yaml:"db"` // SQLite path for training-run history
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Training.Target == "" {
		cfg.Training.Target = "Churn"
	}
	if cfg.Training.ValidationSplit == 0 {
		cfg.Training.ValidationSplit = 0.2
	}
	if cfg.Training.Threshold == 0 {
		cfg.Training.Threshold = 0.5
	}
	if cfg.Training.Seed == 0 {
		cfg.Training.Seed = 42
	}
	if len(cfg.Training.Candidates) == 0 {
		cfg.Training.Candidates = append([]string(nil), model.Algorithms...)
	}
	if cfg.Artifacts.Dir == "" {
		cfg.Artifacts.Dir = "artifacts"
	}
	if cfg.Tracking.DB == "" {
		cfg.Tracking.DB = "churnd.db"
	}
}

// BuildSchema constructs the immutable schema registry from the configured
// field specs.
func (c *Config) BuildSchema() (*schema.Schema, error) {
	return schema.New(c.Schema)
}
