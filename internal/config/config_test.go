package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, NewValidator().Validate(cfg))

	assert.Equal(t, 50, cfg.Planner.MaxDepth)
	assert.Equal(t, 3, cfg.Replan.MaxRetryAttempts)
	assert.Equal(t, time.Second, cfg.Replan.BackoffBase)
	assert.Equal(t, 2.0, cfg.Replan.BackoffMultiplier)
	assert.Equal(t, 100, cfg.Learning.PatternCapacity)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfigFile(t, `
planner:
  max_depth: 200
replan:
  max_retry_attempts: 5
  backoff_base: 500ms
  backoff_multiplier: 1.5
  resource_wait: 45s
  lock_extension: 60s
learning:
  pattern_capacity: 500
events:
  buffer_size: 256
logging:
  level: debug
  format: text
tracing:
  enabled: true
  endpoint: localhost:4317
`)

	loader := NewConfigLoader(NewValidator())
	cfg, err := loader.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Planner.MaxDepth)
	assert.Equal(t, 5, cfg.Replan.MaxRetryAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Replan.BackoffBase)
	assert.Equal(t, 1.5, cfg.Replan.BackoffMultiplier)
	assert.Equal(t, 45*time.Second, cfg.Replan.ResourceWait)
	assert.Equal(t, time.Minute, cfg.Replan.LockExtension)
	assert.Equal(t, 500, cfg.Learning.PatternCapacity)
	assert.Equal(t, 256, cfg.Events.BufferSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Tracing.Endpoint)
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfigFile(t, `
planner:
  max_depth: 10
`)

	loader := NewConfigLoader(NewValidator())
	cfg, err := loader.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Planner.MaxDepth)
	// Everything not named in the file stays at its default.
	assert.Equal(t, 3, cfg.Replan.MaxRetryAttempts)
	assert.Equal(t, 100, cfg.Learning.PatternCapacity)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileFails(t *testing.T) {
	loader := NewConfigLoader(NewValidator())
	_, err := loader.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	loader := NewConfigLoader(NewValidator())
	cfg, err := loader.LoadWithDefaults(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		wantIn   string
	}{
		{
			name: "max_depth too small",
			contents: `
planner:
  max_depth: 0
`,
			wantIn: "planner.max_depth",
		},
		{
			name: "retry ceiling too large",
			contents: `
replan:
  max_retry_attempts: 50
`,
			wantIn: "replan.max_retry_attempts",
		},
		{
			name: "unknown log level",
			contents: `
logging:
  level: loud
`,
			wantIn: "logging.level",
		},
		{
			name: "backoff multiplier below one",
			contents: `
replan:
  backoff_multiplier: 0.5
`,
			wantIn: "replan.backoff_multiplier",
		},
	}

	loader := NewConfigLoader(NewValidator())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.contents)
			_, err := loader.Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantIn)
		})
	}
}

func TestLoadRejectsTracingWithoutEndpoint(t *testing.T) {
	path := writeConfigFile(t, `
tracing:
  enabled: true
`)

	loader := NewConfigLoader(NewValidator())
	_, err := loader.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracing.endpoint")
}

func TestLoadInterpolatesEnvVars(t *testing.T) {
	t.Setenv("STRATEGOS_TEST_LOG_LEVEL", "warn")
	t.Setenv("STRATEGOS_TEST_OTLP", "collector:4317")

	path := writeConfigFile(t, `
logging:
  level: ${STRATEGOS_TEST_LOG_LEVEL}
tracing:
  enabled: true
  endpoint: ${STRATEGOS_TEST_OTLP}
`)

	loader := NewConfigLoader(NewValidator())
	cfg, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "collector:4317", cfg.Tracing.Endpoint)
}

func TestInterpolateStringLeavesUnsetVars(t *testing.T) {
	assert.Equal(t, "${NOT_SET_ANYWHERE_12345}", interpolateString("${NOT_SET_ANYWHERE_12345}"))
	assert.Equal(t, "plain", interpolateString("plain"))
}
