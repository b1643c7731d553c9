package config

import (
	"time"
)

// Config is the root configuration for the Strategos planning framework.
type Config struct {
	Planner  PlannerConfig  `mapstructure:"planner" yaml:"planner" validate:"required"`
	Replan   ReplanConfig   `mapstructure:"replan" yaml:"replan" validate:"required"`
	Learning LearningConfig `mapstructure:"learning" yaml:"learning"`
	Events   EventsConfig   `mapstructure:"events" yaml:"events"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing" yaml:"tracing"`
}

// PlannerConfig contains settings for the goal-directed planner.
type PlannerConfig struct {
	// MaxDepth bounds plan length; the search budget is derived from it.
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth" validate:"min=1,max=10000"`
}

// ReplanConfig contains settings for the adaptive replanner.
type ReplanConfig struct {
	MaxRetryAttempts  int           `mapstructure:"max_retry_attempts" yaml:"max_retry_attempts" validate:"min=1,max=10"`
	BackoffBase       time.Duration `mapstructure:"backoff_base" yaml:"backoff_base" validate:"min=1ms"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier" yaml:"backoff_multiplier" validate:"min=1"`
	ResourceWait      time.Duration `mapstructure:"resource_wait" yaml:"resource_wait" validate:"min=1s"`
	LockExtension     time.Duration `mapstructure:"lock_extension" yaml:"lock_extension" validate:"min=1s"`
}

// LearningConfig contains settings for the failure-pattern learning store.
type LearningConfig struct {
	PatternCapacity int `mapstructure:"pattern_capacity" yaml:"pattern_capacity" validate:"min=5,max=100000"`
}

// EventsConfig contains settings for the replanning event emitter.
type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size" validate:"min=1,max=100000"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=json text"`
}

// TracingConfig contains OpenTelemetry tracing settings.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}
