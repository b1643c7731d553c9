package replan

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/strategos/internal/types"
)

// Strategy names one of the replanning strategies the generator evaluates.
type Strategy string

const (
	// StrategyRetry retries the failed action after an exponential backoff.
	StrategyRetry Strategy = "retry_with_backoff"

	// StrategyAlternativePath substitutes an equivalent not-yet-tried action.
	StrategyAlternativePath Strategy = "alternative_path"

	// StrategySimplifyGoal drops flexible constraints and optional criteria.
	StrategySimplifyGoal Strategy = "simplify_goal"

	// StrategyRequestResources waits for resource capacity to free up.
	StrategyRequestResources Strategy = "request_resources"

	// StrategyEscalate hands the decision to a human. Its confidence is a
	// fixed 0.0 sentinel: it is never a candidate for automatic selection.
	StrategyEscalate Strategy = "escalate"
)

// AllStrategies lists every strategy, in evaluation order.
var AllStrategies = []Strategy{
	StrategyRetry,
	StrategyAlternativePath,
	StrategySimplifyGoal,
	StrategyRequestResources,
	StrategyEscalate,
}

// String returns the string representation of the strategy.
func (s Strategy) String() string {
	return string(s)
}

// Default backoff and wait constants. These are tunable heuristics, not
// specified invariants.
const (
	DefaultBackoffBase       = time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultResourceWait      = 30 * time.Second
)

// AlternativePlan is one candidate continuation after a failure. Alternatives
// are produced fresh per failure and never persisted.
type AlternativePlan struct {
	// Plan is the candidate execution plan. Nil for escalation, which
	// proposes no automated continuation.
	Plan *ExecutionPlan `json:"plan,omitempty"`

	// Strategy identifies how this alternative was synthesized.
	Strategy Strategy `json:"strategy"`

	// Confidence in [0,1] is derived from historical strategy effectiveness.
	Confidence float64 `json:"confidence"`

	// Reasoning explains why this alternative is proposed.
	Reasoning string `json:"reasoning"`

	// Tradeoffs lists what the caller gives up by choosing this alternative.
	Tradeoffs []string `json:"tradeoffs,omitempty"`

	// BackoffDelay is the wait before retrying. Only set for the retry
	// strategy.
	BackoffDelay time.Duration `json:"backoff_delay,omitempty"`
}

// Generator synthesizes ranked alternative continuations for an analyzed
// failure. Confidence scores are biased by the learning store's historical
// strategy and action-type success rates.
type Generator struct {
	store             *LearningStore
	maxRetries        int
	backoffBase       time.Duration
	backoffMultiplier float64
	resourceWait      time.Duration
	tracer            trace.Tracer
}

// GeneratorOption is a functional option for configuring a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorRetryCeiling sets the retry ceiling.
// Default: MaxRetryAttempts.
func WithGeneratorRetryCeiling(ceiling int) GeneratorOption {
	return func(g *Generator) {
		if ceiling > 0 {
			g.maxRetries = ceiling
		}
	}
}

// WithBackoff sets the exponential backoff base and multiplier for the retry
// strategy. Defaults: 1s base, 2.0 multiplier.
func WithBackoff(base time.Duration, multiplier float64) GeneratorOption {
	return func(g *Generator) {
		if base > 0 {
			g.backoffBase = base
		}
		if multiplier > 0 {
			g.backoffMultiplier = multiplier
		}
	}
}

// WithResourceWait sets the wait budget added to a plan's estimated duration
// by the request-resources strategy. Default: 30s.
func WithResourceWait(wait time.Duration) GeneratorOption {
	return func(g *Generator) {
		if wait > 0 {
			g.resourceWait = wait
		}
	}
}

// WithGeneratorTracer sets the OpenTelemetry tracer for generation spans.
func WithGeneratorTracer(tracer trace.Tracer) GeneratorOption {
	return func(g *Generator) {
		if tracer != nil {
			g.tracer = tracer
		}
	}
}

// NewGenerator creates a Generator backed by the given learning store.
func NewGenerator(store *LearningStore, opts ...GeneratorOption) *Generator {
	g := &Generator{
		store:             store,
		maxRetries:        MaxRetryAttempts,
		backoffBase:       DefaultBackoffBase,
		backoffMultiplier: DefaultBackoffMultiplier,
		resourceWait:      DefaultResourceWait,
		tracer:            noop.NewTracerProvider().Tracer("replan"),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Generate evaluates every strategy against the analyzed failure and returns
// the applicable ones sorted by descending confidence. Escalation is always
// appended when the root cause is non-recoverable or when no other strategy
// applied.
//
// The failure must have been analyzed first: a failure without a root cause
// is rejected.
func (g *Generator) Generate(ctx context.Context, failure *Failure, sys *SystemState) ([]AlternativePlan, error) {
	_, span := g.tracer.Start(ctx, "replan.Generate")
	defer span.End()

	if failure == nil {
		return nil, types.NewError(types.REPLAN_INVALID_FAILURE, "failure is nil")
	}
	if failure.RootCause == nil {
		return nil, types.NewError(types.REPLAN_INVALID_FAILURE,
			"failure "+failure.ID.String()+" has no root cause; analyze it first")
	}
	if sys == nil {
		return nil, types.NewError(types.REPLAN_MISSING_STATE, "system state is nil")
	}

	var alternatives []AlternativePlan

	if alt, ok := g.retryWithBackoff(failure, sys); ok {
		alternatives = append(alternatives, alt)
	}
	alternatives = append(alternatives, g.alternativePaths(failure, sys)...)
	if alt, ok := g.simplifyGoal(failure, sys); ok {
		alternatives = append(alternatives, alt)
	}
	if alt, ok := g.requestResources(failure, sys); ok {
		alternatives = append(alternatives, alt)
	}

	if !failure.RootCause.Recoverable || len(alternatives) == 0 {
		alternatives = append(alternatives, g.escalate(failure))
	}

	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].Confidence > alternatives[j].Confidence
	})

	span.SetAttributes(attribute.Int("replan.alternatives", len(alternatives)))
	return alternatives, nil
}

// retryWithBackoff proposes re-running the failed action after an
// exponential delay. Applicable while the retry ceiling has not been reached,
// the root cause is recoverable, and its category is timing, resource, or
// execution.
func (g *Generator) retryWithBackoff(failure *Failure, sys *SystemState) (AlternativePlan, bool) {
	cause := failure.RootCause
	if failure.RetryCount >= g.maxRetries || !cause.Recoverable {
		return AlternativePlan{}, false
	}
	switch cause.Category {
	case CategoryTiming, CategoryResource, CategoryExecution:
	default:
		return AlternativePlan{}, false
	}

	delay := time.Duration(float64(g.backoffBase) * math.Pow(g.backoffMultiplier, float64(failure.RetryCount)))

	plan := sys.Plan.Clone()
	if plan != nil {
		if action := plan.FindAction(failure.Action.Name); action != nil {
			action.Status = ActionStatusPending
		}
	}

	rate := g.store.StrategySuccessRate(StrategyRetry)
	confidence := rate * (1 - float64(failure.RetryCount)*0.2)
	confidence = math.Min(0.9, math.Max(0, confidence))

	return AlternativePlan{
		Plan:         plan,
		Strategy:     StrategyRetry,
		Confidence:   confidence,
		Reasoning:    fmt.Sprintf("transient %s failure; retry %q after %s backoff", cause.Category, failure.Action.Name, delay),
		Tradeoffs:    []string{fmt.Sprintf("adds %s of delay", delay), "may fail again for the same reason"},
		BackoffDelay: delay,
	}, true
}

// alternativePaths proposes, one candidate per qualifying action, routing
// around the failed action through an equivalent action in the current plan
// that has not been tried and has not failed.
func (g *Generator) alternativePaths(failure *Failure, sys *SystemState) []AlternativePlan {
	if sys.Plan == nil {
		return nil
	}

	strategyRate := g.store.StrategySuccessRate(StrategyAlternativePath)

	var alternatives []AlternativePlan
	for _, candidate := range sys.Plan.Actions {
		if candidate.Name == failure.Action.Name || candidate.Type != failure.Action.Type {
			continue
		}
		if candidate.Status != ActionStatusPending {
			continue
		}
		if sys.HasExecuted(candidate.Name) || sys.HasFailed(candidate.Name) {
			continue
		}

		plan := sys.Plan.Clone()
		if action := plan.FindAction(failure.Action.Name); action != nil {
			action.Status = ActionStatusSkipped
		}

		confidence := g.store.ActionSuccessRate(candidate.Type) * strategyRate

		alternatives = append(alternatives, AlternativePlan{
			Plan:       plan,
			Strategy:   StrategyAlternativePath,
			Confidence: confidence,
			Reasoning:  fmt.Sprintf("action %q is equivalent to failed %q and has not been tried", candidate.Name, failure.Action.Name),
			Tradeoffs:  []string{fmt.Sprintf("skips %q entirely", failure.Action.Name)},
		})
	}

	return alternatives
}

// simplifyGoal proposes dropping flexible constraints and non-required
// success criteria, along with any action that contributes only to dropped
// criteria.
func (g *Generator) simplifyGoal(failure *Failure, sys *SystemState) (AlternativePlan, bool) {
	if sys.Plan == nil || !sys.Plan.Goal.HasFlexibility() {
		return AlternativePlan{}, false
	}

	plan := sys.Plan.Clone()

	var dropped []string
	kept := make([]Criterion, 0, len(plan.Goal.SuccessCriteria))
	keptNames := make(map[string]bool)
	for _, criterion := range plan.Goal.SuccessCriteria {
		if criterion.Required {
			kept = append(kept, criterion)
			keptNames[criterion.Name] = true
		} else {
			dropped = append(dropped, criterion.Name)
		}
	}
	plan.Goal.SuccessCriteria = kept

	if len(plan.Goal.FlexibleConstraints) > 0 {
		dropped = append(dropped, plan.Goal.FlexibleConstraints...)
		plan.Goal.FlexibleConstraints = nil
	}

	// Drop actions that only served dropped criteria.
	var removed []string
	remaining := make([]PlannedAction, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		if len(action.ContributesTo) > 0 && !contributesToAny(action, keptNames) {
			removed = append(removed, action.Name)
			continue
		}
		remaining = append(remaining, action)
	}
	plan.Actions = remaining

	tradeoffs := []string{fmt.Sprintf("drops %d goal elements", len(dropped))}
	if len(removed) > 0 {
		tradeoffs = append(tradeoffs, fmt.Sprintf("removes actions no longer needed: %v", removed))
	}

	return AlternativePlan{
		Plan:       plan,
		Strategy:   StrategySimplifyGoal,
		Confidence: g.store.StrategySuccessRate(StrategySimplifyGoal) * 0.8,
		Reasoning:  fmt.Sprintf("goal has %d droppable elements; a reduced goal may still deliver core value", len(dropped)),
		Tradeoffs:  tradeoffs,
	}, true
}

// requestResources proposes waiting for resource capacity. Applicable only
// when the root cause is in the resource category.
func (g *Generator) requestResources(failure *Failure, sys *SystemState) (AlternativePlan, bool) {
	if failure.RootCause.Category != CategoryResource {
		return AlternativePlan{}, false
	}

	plan := sys.Plan.Clone()
	if plan != nil {
		plan.EstimatedDuration += g.resourceWait
	}

	return AlternativePlan{
		Plan:       plan,
		Strategy:   StrategyRequestResources,
		Confidence: g.store.StrategySuccessRate(StrategyRequestResources) * 0.7,
		Reasoning:  fmt.Sprintf("resources are saturated; wait %s for capacity before resuming", g.resourceWait),
		Tradeoffs:  []string{fmt.Sprintf("extends estimated duration by %s", g.resourceWait)},
	}, true
}

// escalate produces the terminal hand-to-a-human alternative. Confidence is
// a fixed 0.0 sentinel meaning "requires human decision".
func (g *Generator) escalate(failure *Failure) AlternativePlan {
	reason := "no automated strategy is applicable"
	if !failure.RootCause.Recoverable {
		reason = "root cause is not recoverable by automated remediation"
	}

	return AlternativePlan{
		Strategy:   StrategyEscalate,
		Confidence: 0.0,
		Reasoning:  reason,
		Tradeoffs:  []string{"requires human intervention", "blocks progress until decided"},
	}
}

func contributesToAny(action PlannedAction, kept map[string]bool) bool {
	for _, name := range action.ContributesTo {
		if kept[name] {
			return true
		}
	}
	return false
}
