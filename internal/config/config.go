// Package config defines the service configuration, its defaults, and
// the YAML loader.
package config

import "time"

// Config is the root service configuration.
type Config struct {
	Database     DatabaseConfig     `mapstructure:"database" yaml:"database"`
	Planner      PlannerConfig      `mapstructure:"planner" yaml:"planner"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	Routing      RoutingConfig      `mapstructure:"routing" yaml:"routing"`
	FlowControl  FlowControlConfig  `mapstructure:"flow_control" yaml:"flow_control"`
	Model        ModelConfig        `mapstructure:"model" yaml:"model"`
	Logging      LoggingConfig      `mapstructure:"logging" yaml:"logging"`
}

// DatabaseConfig configures the sqlite store.
type DatabaseConfig struct {
	Path          string `mapstructure:"path" yaml:"path"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms" yaml:"busy_timeout_ms"`
}

// PlannerConfig sizes the plan submission pipeline.
type PlannerConfig struct {
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
	Workers   int `mapstructure:"workers" yaml:"workers"`
}

// OrchestratorConfig bounds the orchestrator's external calls.
type OrchestratorConfig struct {
	TeamTimeout     time.Duration `mapstructure:"team_timeout" yaml:"team_timeout"`
	MaxRetries      int           `mapstructure:"max_retries" yaml:"max_retries"`
	RefinerTimeout  time.Duration `mapstructure:"refiner_timeout" yaml:"refiner_timeout"`
	CallbackTimeout time.Duration `mapstructure:"callback_timeout" yaml:"callback_timeout"`
}

// RoutingConfig points at an optional capability table override.
type RoutingConfig struct {
	CapabilityTablePath string `mapstructure:"capability_table" yaml:"capability_table"`
}

// FlowControlConfig shapes the shared rate limiting and dedup window.
type FlowControlConfig struct {
	DedupTTL time.Duration `mapstructure:"dedup_ttl" yaml:"dedup_ttl"`
}

// ModelConfig selects the optional analysis model. An empty provider
// disables model-backed analysis and refinement.
type ModelConfig struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	Name     string `mapstructure:"name" yaml:"name"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultConfig returns the configuration used when no file is
// provided.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:          "silhouette.db",
			BusyTimeoutMS: 5000,
		},
		Planner: PlannerConfig{
			QueueSize: 100,
			Workers:   3,
		},
		Orchestrator: OrchestratorConfig{
			TeamTimeout:     30 * time.Second,
			MaxRetries:      2,
			RefinerTimeout:  10 * time.Second,
			CallbackTimeout: 5 * time.Second,
		},
		FlowControl: FlowControlConfig{
			DedupTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
