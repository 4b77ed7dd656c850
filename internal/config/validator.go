package config

import (
	"fmt"

	"github.com/haroldfabla2-hue/silhouette-workflow-creation/internal/types"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"text": true, "json": true,
}

// Validate checks the configuration's internal consistency.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return validationError("database.path is required")
	}
	if c.Database.BusyTimeoutMS < 0 {
		return validationError("database.busy_timeout_ms cannot be negative")
	}
	if c.Planner.QueueSize <= 0 {
		return validationError("planner.queue_size must be positive")
	}
	if c.Planner.Workers <= 0 {
		return validationError("planner.workers must be positive")
	}
	if c.Orchestrator.TeamTimeout <= 0 {
		return validationError("orchestrator.team_timeout must be positive")
	}
	if c.Orchestrator.MaxRetries < 0 {
		return validationError("orchestrator.max_retries cannot be negative")
	}
	if c.Orchestrator.RefinerTimeout <= 0 {
		return validationError("orchestrator.refiner_timeout must be positive")
	}
	if c.Orchestrator.CallbackTimeout <= 0 {
		return validationError("orchestrator.callback_timeout must be positive")
	}
	if c.FlowControl.DedupTTL <= 0 {
		return validationError("flow_control.dedup_ttl must be positive")
	}
	if !validLogLevels[c.Logging.Level] {
		return validationError(fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	if !validLogFormats[c.Logging.Format] {
		return validationError(fmt.Sprintf("logging.format %q is not one of text, json", c.Logging.Format))
	}
	return nil
}

func validationError(message string) error {
	return types.NewError(types.CONFIG_VALIDATION_FAILED, message)
}
