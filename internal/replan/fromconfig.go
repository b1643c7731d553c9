package replan

import (
	"github.com/zero-day-ai/strategos/internal/config"
)

// NewEngineFromConfig assembles an Engine from a loaded configuration: the
// learning store is sized from the learning section and the analyzer,
// generator, and executor are built from the replan section. A nil config
// falls back to DefaultConfig, so a nil-config engine behaves identically to
// NewEngine(NewLearningStore()).
//
// Explicit options are applied after the configured components, so a caller
// can still swap any stage out.
func NewEngineFromConfig(cfg *config.Config, opts ...EngineOption) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	store := NewLearningStore(WithPatternCapacity(cfg.Learning.PatternCapacity))

	base := []EngineOption{
		WithAnalyzer(NewAnalyzer(store,
			WithAnalyzerRetryCeiling(cfg.Replan.MaxRetryAttempts))),
		WithGenerator(NewGenerator(store,
			WithGeneratorRetryCeiling(cfg.Replan.MaxRetryAttempts),
			WithBackoff(cfg.Replan.BackoffBase, cfg.Replan.BackoffMultiplier),
			WithResourceWait(cfg.Replan.ResourceWait))),
		WithExecutor(NewExecutor(
			WithExecutorRetryCeiling(cfg.Replan.MaxRetryAttempts),
			WithLockExtension(cfg.Replan.LockExtension))),
	}

	return NewEngine(store, append(base, opts...)...)
}
