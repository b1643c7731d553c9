package replan

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/strategos/internal/types"
)

// Engine composes the replanning pipeline: classification, root-cause
// analysis, alternative generation, and optional recovery, with the learning
// store closing the feedback loop.
//
// The engine tracks consecutive failure counts per action so callers do not
// have to thread retry state through every call; ReportOutcome with a
// successful result resets the count for the action.
type Engine struct {
	analyzer  *Analyzer
	generator *Generator
	executor  *Executor
	store     *LearningStore
	emitter   EventEmitter
	logger    *slog.Logger
	tracer    trace.Tracer
	clock     func() time.Time

	mu            sync.Mutex
	failureCounts map[string]int
}

// EngineOption is a functional option for configuring an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the logger for engine operations.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithEngineTracer sets the OpenTelemetry tracer for pipeline spans.
// The tracer is propagated to the analyzer, generator, and executor.
func WithEngineTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithEngineEmitter sets the event emitter for pipeline events. Without one,
// the engine emits nothing; emission is advisory either way.
func WithEngineEmitter(emitter EventEmitter) EngineOption {
	return func(e *Engine) {
		if emitter != nil {
			e.emitter = emitter
		}
	}
}

// WithEngineClock overrides the time source. Intended for tests.
func WithEngineClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithAnalyzer replaces the default analyzer.
func WithAnalyzer(analyzer *Analyzer) EngineOption {
	return func(e *Engine) {
		if analyzer != nil {
			e.analyzer = analyzer
		}
	}
}

// WithGenerator replaces the default generator.
func WithGenerator(generator *Generator) EngineOption {
	return func(e *Engine) {
		if generator != nil {
			e.generator = generator
		}
	}
}

// WithExecutor replaces the default recovery executor.
func WithExecutor(executor *Executor) EngineOption {
	return func(e *Engine) {
		if executor != nil {
			e.executor = executor
		}
	}
}

// NewEngine creates an Engine around the given learning store. The store is
// required: it is the only mutable state shared between pipeline stages and
// across failures.
func NewEngine(store *LearningStore, opts ...EngineOption) *Engine {
	e := &Engine{
		store:         store,
		logger:        slog.Default(),
		tracer:        noop.NewTracerProvider().Tracer("replan"),
		clock:         time.Now,
		failureCounts: make(map[string]int),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.analyzer == nil {
		e.analyzer = NewAnalyzer(store, WithAnalyzerTracer(e.tracer))
	}
	if e.generator == nil {
		e.generator = NewGenerator(store, WithGeneratorTracer(e.tracer))
	}
	if e.executor == nil {
		e.executor = NewExecutor(WithExecutorTracer(e.tracer))
	}

	return e
}

// HandleFailure runs the full pipeline for one execution failure: classify,
// analyze, generate alternatives. The returned failure carries its attached
// root cause; alternatives are sorted by descending confidence.
func (e *Engine) HandleFailure(ctx context.Context, action ActionRef, execErr error, failureCtx map[string]any, sys *SystemState) (*Failure, []AlternativePlan, error) {
	ctx, span := e.tracer.Start(ctx, "replan.HandleFailure", trace.WithAttributes(
		attribute.String("failure.action", action.Name),
	))
	defer span.End()

	if execErr == nil {
		return nil, nil, types.NewError(types.REPLAN_INVALID_FAILURE, "execution error is nil")
	}

	failure := &Failure{
		ID:         types.NewID(),
		Timestamp:  e.clock(),
		Type:       Classify(action, execErr, failureCtx),
		Action:     action,
		Err:        execErr,
		Message:    execErr.Error(),
		Context:    failureCtx,
		RetryCount: e.bumpFailureCount(action.Name),
	}

	e.logger.Warn("execution failure detected",
		"failure_id", failure.ID,
		"action", action.Name,
		"type", failure.Type,
		"retry_count", failure.RetryCount)

	e.emit(ctx, EventFailureDetected, failure.ID, map[string]any{
		"action":      action.Name,
		"type":        failure.Type.String(),
		"retry_count": failure.RetryCount,
	})

	rootCause, err := e.analyzer.Analyze(ctx, failure, sys)
	if err != nil {
		return nil, nil, err
	}

	e.emit(ctx, EventFailureAnalyzed, failure.ID, map[string]any{
		"category":    string(rootCause.Category),
		"severity":    string(rootCause.Severity),
		"recoverable": rootCause.Recoverable,
	})

	alternatives, err := e.generator.Generate(ctx, failure, sys)
	if err != nil {
		return nil, nil, err
	}

	e.emit(ctx, EventPlansGenerated, failure.ID, map[string]any{
		"count": len(alternatives),
	})

	if len(alternatives) > 0 && alternatives[0].Strategy == StrategyEscalate {
		// Escalation ranked first means nothing automatable remains.
		e.emit(ctx, EventEscalationRequired, failure.ID, map[string]any{
			"reason": alternatives[0].Reasoning,
		})
	}

	return failure, alternatives, nil
}

// Recover runs the recovery executor for an analyzed failure and emits the
// recovery lifecycle events.
func (e *Engine) Recover(ctx context.Context, failure *Failure, sys *SystemState) *RecoveryResult {
	ctx, span := e.tracer.Start(ctx, "replan.EngineRecover")
	defer span.End()

	var failureID types.ID
	if failure != nil {
		failureID = failure.ID
	}

	e.emit(ctx, EventRecoveryStarted, failureID, nil)

	result := e.executor.Recover(ctx, failure, sys)

	actions := make([]string, len(result.ActionsTaken))
	for i, a := range result.ActionsTaken {
		actions[i] = string(a)
	}
	payload := map[string]any{"actions_taken": actions}

	if result.Success {
		e.emit(ctx, EventRecoveryCompleted, failureID, payload)
	} else {
		if result.Err != nil {
			payload["error"] = result.Err.Error()
		}
		e.emit(ctx, EventRecoveryFailed, failureID, payload)
	}

	return result
}

// ReportOutcome closes the learning loop: the caller reports which strategy
// it selected for a failure and whether it ultimately worked. A successful
// outcome also resets the consecutive failure count for the action and
// credits the action type.
func (e *Engine) ReportOutcome(failure *Failure, strategy Strategy, success bool, recoveryTime time.Duration) {
	if failure == nil {
		return
	}

	var category CauseCategory
	if failure.RootCause != nil {
		category = failure.RootCause.Category
	}
	signature := FailureSignature(failure.Type, failure.Action.Type, category)

	e.store.RecordStrategyOutcome(signature, strategy, success, recoveryTime)
	if success {
		e.store.RecordActionSuccess(failure.Action.Type)
		e.resetFailureCount(failure.Action.Name)
	}

	e.logger.Info("strategy outcome recorded",
		"failure_id", failure.ID,
		"strategy", strategy,
		"success", success)
}

// Store returns the engine's learning store for observability reads.
func (e *Engine) Store() *LearningStore {
	return e.store
}

// bumpFailureCount increments and returns the consecutive failure count for
// an action.
func (e *Engine) bumpFailureCount(actionName string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failureCounts[actionName]++
	return e.failureCounts[actionName]
}

func (e *Engine) resetFailureCount(actionName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.failureCounts, actionName)
}

// emit publishes an advisory event when an emitter is configured. Emission
// failures are logged, never propagated: events must not gate control flow.
func (e *Engine) emit(ctx context.Context, eventType ReplanEventType, failureID types.ID, payload map[string]any) {
	if e.emitter == nil {
		return
	}

	event := ReplanEvent{
		Type:      eventType,
		FailureID: failureID,
		Timestamp: e.clock(),
		Payload:   payload,
	}
	if err := e.emitter.Emit(ctx, event); err != nil {
		e.logger.Debug("event emission failed", "type", eventType, "error", err)
	}
}
