package app

import (
	"errors"
	"fmt"

	"github.com/mk/taskchaingo/internal/scheduler"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	FlowPath string // a single .hcl file, or a directory searched recursively

	LogFormat       string
	LogLevel        string
	WorkerCount     int
	HealthcheckPort int
	Profile         bool
}

// NewConfig validates a Config and fills in defaults for the zero-valued
// choice fields, so the rest of the application never sees an empty one.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.FlowPath == "" {
		return nil, errors.New("FlowPath is a required configuration field and cannot be empty")
	}

	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = scheduler.DefaultWorkers
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.WorkerCount)
	}

	return &cfg, nil
}
