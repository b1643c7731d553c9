package config

import (
	"time"
)

// DefaultConfig returns a Config with sensible default values. The defaults
// mirror the package-level constants in planner and replan so a nil-config
// deployment and a default-config deployment behave identically.
func DefaultConfig() *Config {
	return &Config{
		Planner: PlannerConfig{
			MaxDepth: 50,
		},
		Replan: ReplanConfig{
			MaxRetryAttempts:  3,
			BackoffBase:       time.Second,
			BackoffMultiplier: 2.0,
			ResourceWait:      30 * time.Second,
			LockExtension:     30 * time.Second,
		},
		Learning: LearningConfig{
			PatternCapacity: 100,
		},
		Events: EventsConfig{
			BufferSize: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "",
		},
	}
}
