package replan

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/strategos/internal/types"
)

// nonRecoverableSignals are error-message fragments that mark a failure as
// beyond automated remediation regardless of retry count.
var nonRecoverableSignals = []string{
	"permission denied",
	"access denied",
	"unauthorized",
	"no space left",
	"disk full",
	"quota exceeded",
}

// Analyzer performs root-cause analysis: given a classified failure and a
// system-state snapshot it derives the cause category, contributing factors,
// severity, and recoverability, and records the failure signature into the
// learning store.
type Analyzer struct {
	store      *LearningStore
	maxRetries int
	tracer     trace.Tracer
}

// AnalyzerOption is a functional option for configuring an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithAnalyzerRetryCeiling sets the retry ceiling used for recoverability
// and severity escalation. Default: MaxRetryAttempts.
func WithAnalyzerRetryCeiling(ceiling int) AnalyzerOption {
	return func(a *Analyzer) {
		if ceiling > 0 {
			a.maxRetries = ceiling
		}
	}
}

// WithAnalyzerTracer sets the OpenTelemetry tracer for analysis spans.
func WithAnalyzerTracer(tracer trace.Tracer) AnalyzerOption {
	return func(a *Analyzer) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// NewAnalyzer creates an Analyzer backed by the given learning store.
func NewAnalyzer(store *LearningStore, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		store:      store,
		maxRetries: MaxRetryAttempts,
		tracer:     noop.NewTracerProvider().Tracer("replan"),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Analyze derives the root cause for a classified failure and attaches it to
// the failure record. The root cause is attached exactly once; analyzing an
// already-analyzed failure is an error.
//
// Side effect: the failure's signature is recorded into the learning store.
func (a *Analyzer) Analyze(ctx context.Context, failure *Failure, sys *SystemState) (*RootCause, error) {
	_, span := a.tracer.Start(ctx, "replan.Analyze")
	defer span.End()

	if failure == nil {
		return nil, types.NewError(types.REPLAN_INVALID_FAILURE, "failure is nil")
	}
	if failure.RootCause != nil {
		return nil, types.NewError(types.REPLAN_INVALID_FAILURE,
			"failure "+failure.ID.String()+" was already analyzed")
	}
	if sys == nil {
		return nil, types.NewError(types.REPLAN_MISSING_STATE, "system state is nil")
	}

	span.SetAttributes(
		attribute.String("failure.type", failure.Type.String()),
		attribute.String("failure.action", failure.Action.Name),
		attribute.Int("failure.retry_count", failure.RetryCount),
	)

	var (
		category CauseCategory
		reason   string
		factors  []string
		baseline Severity
	)

	// One branch per taxonomy member. A FailureType outside the taxonomy is
	// a programming error at the call site, not a silent default.
	switch failure.Type {
	case FailurePreconditions:
		category = CategoryPrecondition
		reason = fmt.Sprintf("preconditions for action %q did not hold at execution time", failure.Action.Name)
		factors = a.preconditionFactors(failure, sys)
		baseline = SeverityMedium

	case FailureExecution:
		category = CategoryExecution
		reason = fmt.Sprintf("action %q failed during execution", failure.Action.Name)
		factors = a.executionFactors(failure, sys)
		baseline = SeverityMedium

	case FailureResource:
		category = CategoryResource
		reason = fmt.Sprintf("a resource required by action %q was unavailable", failure.Action.Name)
		factors = a.resourceFactors(sys)
		baseline = SeverityHigh

	case FailureTimeout:
		category = CategoryTiming
		reason = fmt.Sprintf("action %q exceeded its time budget", failure.Action.Name)
		factors = a.timingFactors(failure, sys)
		baseline = SeverityMedium

	case FailureDependency:
		category = CategoryDependency
		reason = fmt.Sprintf("action %q was blocked on unmet dependencies", failure.Action.Name)
		factors = a.dependencyFactors(failure, sys)
		baseline = SeverityHigh

	case FailureQualityGate:
		category = CategoryQuality
		reason = fmt.Sprintf("a quality gate rejected the output of action %q", failure.Action.Name)
		factors = a.qualityFactors(failure)
		baseline = SeverityHigh

	default:
		return nil, types.NewError(types.REPLAN_INVALID_FAILURE,
			"unrecognized failure type "+failure.Type.String())
	}

	severity := baseline
	if failure.RetryCount >= a.maxRetries {
		severity = SeverityCritical
	} else if failure.RetryCount >= 2 {
		severity = baseline.escalate(1)
	}

	rootCause := &RootCause{
		Category:            category,
		Reason:              reason,
		ContributingFactors: factors,
		Severity:            severity,
		Recoverable:         a.recoverable(failure),
	}
	failure.RootCause = rootCause

	a.store.RecordFailure(
		FailureSignature(failure.Type, failure.Action.Type, category),
		failure.Action.Type,
	)

	return rootCause, nil
}

// recoverable reports false once the retry ceiling is reached or the error
// message signals a non-recoverable condition.
func (a *Analyzer) recoverable(failure *Failure) bool {
	if failure.RetryCount >= a.maxRetries {
		return false
	}

	message := strings.ToLower(failure.Message)
	for _, signal := range nonRecoverableSignals {
		if strings.Contains(message, signal) {
			return false
		}
	}
	return true
}

func (a *Analyzer) preconditionFactors(failure *Failure, sys *SystemState) []string {
	var factors []string
	if sys.Plan != nil {
		for _, action := range sys.Plan.Actions {
			if action.Name == failure.Action.Name {
				break
			}
			switch action.Status {
			case ActionStatusFailed:
				factors = append(factors, fmt.Sprintf("earlier action %q failed", action.Name))
			case ActionStatusPending, ActionStatusRunning:
				factors = append(factors, fmt.Sprintf("earlier action %q has not completed", action.Name))
			}
		}
	}
	if len(factors) == 0 {
		factors = append(factors, "no earlier plan step explains the unmet precondition")
	}
	return factors
}

func (a *Analyzer) executionFactors(failure *Failure, sys *SystemState) []string {
	var factors []string
	if failure.RetryCount > 1 {
		factors = append(factors, fmt.Sprintf("action has failed %d consecutive times", failure.RetryCount))
	}
	if agentID, ok := failure.Context["agent_id"].(string); ok {
		if agent, exists := sys.Agents[agentID]; exists {
			if agent.State == AgentStateFailed {
				factors = append(factors, fmt.Sprintf("executing agent %q is in failed state", agentID))
			}
			if agent.SuccessRate < 0.3 {
				factors = append(factors, fmt.Sprintf("executing agent %q has a low success rate (%.2f)", agentID, agent.SuccessRate))
			}
		}
	}
	if len(factors) == 0 {
		factors = append(factors, "no environmental factor identified; likely an action-level defect")
	}
	return factors
}

func (a *Analyzer) resourceFactors(sys *SystemState) []string {
	var factors []string
	for _, resource := range sys.Resources {
		if resource.Saturated() {
			factors = append(factors, fmt.Sprintf("resource %q at full capacity (%d/%d)",
				resource.Name, resource.Allocated, resource.Capacity))
		}
	}
	if len(factors) == 0 {
		factors = append(factors, "no resource in the pool is saturated; contention may be external")
	}
	return factors
}

func (a *Analyzer) timingFactors(failure *Failure, sys *SystemState) []string {
	var factors []string
	if sys.Plan != nil {
		if action := sys.Plan.FindAction(failure.Action.Name); action != nil && action.EstimatedDuration > 0 {
			factors = append(factors, fmt.Sprintf("action estimated to take %s", action.EstimatedDuration))
		}
	}
	busy := 0
	for _, agent := range sys.Agents {
		if agent.State == AgentStateBusy {
			busy++
		}
	}
	if busy > 0 {
		factors = append(factors, fmt.Sprintf("%d agents busy at time of failure", busy))
	}
	if len(factors) == 0 {
		factors = append(factors, "no load indicator available for the timeout")
	}
	return factors
}

func (a *Analyzer) dependencyFactors(failure *Failure, sys *SystemState) []string {
	var factors []string
	if sys.Plan != nil {
		if action := sys.Plan.FindAction(failure.Action.Name); action != nil {
			for _, dep := range action.DependsOn {
				switch {
				case sys.HasFailed(dep):
					factors = append(factors, fmt.Sprintf("dependency %q has failed", dep))
				case !sys.HasExecuted(dep):
					factors = append(factors, fmt.Sprintf("dependency %q has not yet executed", dep))
				}
			}
		}
	}
	if len(factors) == 0 {
		factors = append(factors, "declared dependencies all completed; blockage may be external")
	}
	return factors
}

func (a *Analyzer) qualityFactors(failure *Failure) []string {
	var factors []string
	if gate, ok := failure.Context["gate"].(string); ok {
		factors = append(factors, fmt.Sprintf("quality gate %q rejected the result", gate))
	}
	if len(factors) == 0 {
		factors = append(factors, "quality gate rejected the result")
	}
	return factors
}
