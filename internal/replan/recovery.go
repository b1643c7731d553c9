package replan

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/strategos/internal/state"
	"github.com/zero-day-ai/strategos/internal/types"
)

// RecoveryAction names one remediation the executor can perform.
type RecoveryAction string

const (
	RecoveryCheckpointRollback   RecoveryAction = "checkpoint_rollback"
	RecoveryResourceReallocation RecoveryAction = "resource_reallocation"
	RecoveryAgentRespawn         RecoveryAction = "agent_respawn"
	RecoveryLockRefresh          RecoveryAction = "lock_refresh"
	RecoveryDependencyRestore    RecoveryAction = "dependency_restore"
)

// Default recovery tunables.
const (
	// DefaultLockExtension is how far an expired lock is pushed out.
	DefaultLockExtension = 30 * time.Second

	// respawnThreshold is the agent success rate below which a respawn is
	// warranted.
	respawnThreshold = 0.3

	// respawnSuccessRate is the neutral rate a respawned agent restarts with.
	respawnSuccessRate = 0.5
)

// RecoveryResult reports what the executor did. It is always well-formed:
// when a remediation step errors, the steps already completed are preserved
// in ActionsTaken and the error is surfaced in Err rather than thrown.
type RecoveryResult struct {
	// Success reports whether at least one remediation ran and none errored.
	Success bool `json:"success"`

	// ActionsTaken lists the remediations performed, in execution order.
	ActionsTaken []RecoveryAction `json:"actions_taken"`

	// RestoredState is the world-state fragment restored from a checkpoint,
	// set only when a rollback ran.
	RestoredState state.WorldState `json:"restored_state,omitempty"`

	// Err is the error that aborted remediation, if any.
	Err error `json:"-"`
}

// Executor attempts automatic remediation. Each remediation has its own
// precondition and is attempted independently, in a fixed order; an error in
// one step aborts the remaining steps but never discards bookkeeping for
// steps already completed.
type Executor struct {
	maxRetries    int
	lockExtension time.Duration
	tracer        trace.Tracer
	clock         func() time.Time
}

// ExecutorOption is a functional option for configuring an Executor.
type ExecutorOption func(*Executor)

// WithExecutorRetryCeiling sets the retry ceiling that triggers rollback.
// Default: MaxRetryAttempts.
func WithExecutorRetryCeiling(ceiling int) ExecutorOption {
	return func(e *Executor) {
		if ceiling > 0 {
			e.maxRetries = ceiling
		}
	}
}

// WithLockExtension sets how far expired locks are extended. Default: 30s.
func WithLockExtension(extension time.Duration) ExecutorOption {
	return func(e *Executor) {
		if extension > 0 {
			e.lockExtension = extension
		}
	}
}

// WithExecutorTracer sets the OpenTelemetry tracer for recovery spans.
func WithExecutorTracer(tracer trace.Tracer) ExecutorOption {
	return func(e *Executor) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithExecutorClock overrides the time source. Intended for tests.
func WithExecutorClock(clock func() time.Time) ExecutorOption {
	return func(e *Executor) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// NewExecutor creates a recovery Executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		maxRetries:    MaxRetryAttempts,
		lockExtension: DefaultLockExtension,
		tracer:        noop.NewTracerProvider().Tracer("replan"),
		clock:         time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// remediation is one step of the fixed recovery sequence. performed reports
// whether the step's precondition held and the step ran.
type remediation struct {
	action RecoveryAction
	run    func(failure *Failure, sys *SystemState, result *RecoveryResult) (performed bool, err error)
}

// Recover attempts every applicable remediation in fixed order: checkpoint
// rollback, resource reallocation, agent respawn, lock refresh, dependency
// restoration. The failure must carry a root cause.
func (e *Executor) Recover(ctx context.Context, failure *Failure, sys *SystemState) *RecoveryResult {
	_, span := e.tracer.Start(ctx, "replan.Recover")
	defer span.End()

	result := &RecoveryResult{ActionsTaken: []RecoveryAction{}}

	if failure == nil || failure.RootCause == nil {
		result.Err = types.NewError(types.REPLAN_INVALID_FAILURE,
			"recovery requires an analyzed failure")
		return result
	}
	if sys == nil {
		result.Err = types.NewError(types.REPLAN_MISSING_STATE, "system state is nil")
		return result
	}

	steps := []remediation{
		{RecoveryCheckpointRollback, e.rollbackCheckpoint},
		{RecoveryResourceReallocation, e.reallocateResources},
		{RecoveryAgentRespawn, e.respawnAgent},
		{RecoveryLockRefresh, e.refreshLocks},
		{RecoveryDependencyRestore, e.restoreDependencies},
	}

	for _, step := range steps {
		performed, err := step.run(failure, sys, result)
		if err != nil {
			// Surface the error but keep the partial results: steps already
			// completed stay recorded.
			result.Err = types.WrapError(types.RECOVERY_STEP_FAILED,
				fmt.Sprintf("remediation %s failed", step.action), err)
			result.Success = false
			span.SetAttributes(attribute.String("recovery.failed_step", string(step.action)))
			return result
		}
		if performed {
			result.ActionsTaken = append(result.ActionsTaken, step.action)
		}
	}

	result.Success = len(result.ActionsTaken) > 0
	span.SetAttributes(attribute.Int("recovery.actions", len(result.ActionsTaken)))
	return result
}

// rollbackCheckpoint restores the most recent checkpoint with no failures
// recorded after it, falling back to the oldest available checkpoint.
// Applicable when the root cause is critical, the failure is a quality-gate
// failure, or the retry ceiling was reached.
func (e *Executor) rollbackCheckpoint(failure *Failure, sys *SystemState, result *RecoveryResult) (bool, error) {
	cause := failure.RootCause
	if cause.Severity != SeverityCritical &&
		failure.Type != FailureQualityGate &&
		failure.RetryCount < e.maxRetries {
		return false, nil
	}
	if len(sys.Checkpoints) == 0 {
		return false, nil
	}

	// Checkpoints are ordered oldest first. Walk backwards looking for one
	// with no failures after it.
	var chosen *Checkpoint
	for i := len(sys.Checkpoints) - 1; i >= 0; i-- {
		cp := sys.Checkpoints[i]
		clean := true
		for _, past := range sys.FailureHistory {
			if past.Timestamp.After(cp.CreatedAt) {
				clean = false
				break
			}
		}
		if clean {
			chosen = cp
			break
		}
	}
	if chosen == nil {
		chosen = sys.Checkpoints[0]
	}

	result.RestoredState = chosen.State.Clone()
	return true, nil
}

// reallocateResources frees one unit of capacity from any under-saturated
// resource. Applicable when the root-cause category is resource.
func (e *Executor) reallocateResources(failure *Failure, sys *SystemState, _ *RecoveryResult) (bool, error) {
	if failure.RootCause.Category != CategoryResource {
		return false, nil
	}

	for _, resource := range sys.Resources {
		if resource.Allocated > 0 && !resource.Saturated() {
			resource.Allocated--
			return true, nil
		}
	}
	return false, nil
}

// respawnAgent resets the acting agent to idle with a neutral success rate.
// Applicable when the agent is marked failed or its success rate is below
// the respawn threshold.
func (e *Executor) respawnAgent(failure *Failure, sys *SystemState, _ *RecoveryResult) (bool, error) {
	agentID, ok := failure.Context["agent_id"].(string)
	if !ok || agentID == "" {
		return false, nil
	}

	agent, exists := sys.Agents[agentID]
	if !exists {
		return false, types.NewError(types.RECOVERY_AGENT_NOT_FOUND,
			"acting agent "+agentID+" is not in the system state")
	}
	if agent.State != AgentStateFailed && agent.SuccessRate >= respawnThreshold {
		return false, nil
	}

	agent.State = AgentStateIdle
	agent.CurrentAction = ""
	agent.SuccessRate = respawnSuccessRate
	return true, nil
}

// refreshLocks extends every lock past its expiry by the configured
// extension.
func (e *Executor) refreshLocks(_ *Failure, sys *SystemState, _ *RecoveryResult) (bool, error) {
	now := e.clock()
	refreshed := false
	for _, lock := range sys.Locks {
		if lock.ExpiresAt.Before(now) {
			lock.ExpiresAt = now.Add(e.lockExtension)
			refreshed = true
		}
	}
	return refreshed, nil
}

// restoreDependencies re-signals missing dependencies of the failed action
// for re-execution. Applicable when the failure type is dependency-blocked.
func (e *Executor) restoreDependencies(failure *Failure, sys *SystemState, _ *RecoveryResult) (bool, error) {
	if failure.Type != FailureDependency || sys.Plan == nil {
		return false, nil
	}

	action := sys.Plan.FindAction(failure.Action.Name)
	if action == nil {
		return false, nil
	}

	restored := false
	for _, dep := range action.DependsOn {
		depAction := sys.Plan.FindAction(dep)
		if depAction == nil {
			continue
		}
		missing := depAction.Status == ActionStatusFailed ||
			(!sys.HasExecuted(dep) && depAction.Status != ActionStatusCompleted)
		if missing && depAction.Status != ActionStatusPending {
			depAction.Status = ActionStatusPending
			restored = true
		}
	}
	return restored, nil
}
