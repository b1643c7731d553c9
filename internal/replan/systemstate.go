package replan

import (
	"time"

	"github.com/zero-day-ai/strategos/internal/state"
	"github.com/zero-day-ai/strategos/internal/types"
)

// ActionStatus tracks the lifecycle of a planned action during execution.
type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "pending"
	ActionStatusRunning   ActionStatus = "running"
	ActionStatusCompleted ActionStatus = "completed"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusSkipped   ActionStatus = "skipped"
)

// PlannedAction is one step of an execution plan as the orchestration layer
// sees it: identity, equivalence type, execution status, and which success
// criteria it serves.
type PlannedAction struct {
	// Name uniquely identifies the action within the plan.
	Name string `json:"name"`

	// Type groups equivalent actions. Two actions of the same type are
	// interchangeable candidates for the alternative-path strategy.
	Type string `json:"type"`

	// Status is the current execution status.
	Status ActionStatus `json:"status"`

	// ContributesTo names the success criteria this action serves. An action
	// contributing only to dropped criteria is removed by goal
	// simplification.
	ContributesTo []string `json:"contributes_to,omitempty"`

	// DependsOn names the actions this one depends on.
	DependsOn []string `json:"depends_on,omitempty"`

	// EstimatedDuration is the expected execution time for this action.
	EstimatedDuration time.Duration `json:"estimated_duration,omitempty"`
}

// Criterion is one success criterion of a goal.
type Criterion struct {
	// Name identifies the criterion.
	Name string `json:"name"`

	// Required marks criteria that goal simplification must keep.
	Required bool `json:"required"`
}

// GoalSpec describes what the current plan is trying to achieve, including
// which parts of the goal are negotiable.
type GoalSpec struct {
	// Description is a human-readable goal statement.
	Description string `json:"description"`

	// SuccessCriteria are the named conditions the plan must establish.
	SuccessCriteria []Criterion `json:"success_criteria,omitempty"`

	// FlexibleConstraints are constraints that may be dropped under the
	// simplify-goal strategy.
	FlexibleConstraints []string `json:"flexible_constraints,omitempty"`
}

// HasFlexibility reports whether the goal has anything simplification could
// drop: a flexible constraint or a non-required success criterion.
func (g GoalSpec) HasFlexibility() bool {
	if len(g.FlexibleConstraints) > 0 {
		return true
	}
	for _, c := range g.SuccessCriteria {
		if !c.Required {
			return true
		}
	}
	return false
}

// ExecutionPlan is the orchestration layer's view of the plan currently
// being executed. It is distinct from planner.Plan: the planner produces raw
// action sequences, the orchestrator annotates them with status, goal
// criteria, and duration estimates.
type ExecutionPlan struct {
	// ID is the unique identifier for this plan.
	ID types.ID `json:"id"`

	// Goal is what the plan is trying to achieve.
	Goal GoalSpec `json:"goal"`

	// Actions are the plan steps in execution order.
	Actions []PlannedAction `json:"actions"`

	// EstimatedDuration is the projected total execution time.
	EstimatedDuration time.Duration `json:"estimated_duration"`
}

// Clone returns a deep copy of the plan so strategies can modify candidate
// plans without touching the caller's snapshot.
func (p *ExecutionPlan) Clone() *ExecutionPlan {
	if p == nil {
		return nil
	}

	out := &ExecutionPlan{
		ID:                p.ID,
		Goal:              p.Goal,
		EstimatedDuration: p.EstimatedDuration,
	}

	out.Goal.SuccessCriteria = append([]Criterion(nil), p.Goal.SuccessCriteria...)
	out.Goal.FlexibleConstraints = append([]string(nil), p.Goal.FlexibleConstraints...)

	out.Actions = make([]PlannedAction, len(p.Actions))
	for i, a := range p.Actions {
		out.Actions[i] = a
		out.Actions[i].ContributesTo = append([]string(nil), a.ContributesTo...)
		out.Actions[i].DependsOn = append([]string(nil), a.DependsOn...)
	}

	return out
}

// FindAction returns a pointer to the named action within the plan, or nil.
func (p *ExecutionPlan) FindAction(name string) *PlannedAction {
	for i := range p.Actions {
		if p.Actions[i].Name == name {
			return &p.Actions[i]
		}
	}
	return nil
}

// ResourceState is one entry of the orchestration layer's resource pool.
type ResourceState struct {
	// Name identifies the resource.
	Name string `json:"name"`

	// Capacity is the total number of allocatable units.
	Capacity int `json:"capacity"`

	// Allocated is the number of units currently in use.
	Allocated int `json:"allocated"`
}

// Saturated reports whether the resource has no free units.
func (r *ResourceState) Saturated() bool {
	return r.Allocated >= r.Capacity
}

// AgentState tracks the lifecycle of a worker agent.
type AgentState string

const (
	AgentStateIdle   AgentState = "idle"
	AgentStateBusy   AgentState = "busy"
	AgentStateFailed AgentState = "failed"
)

// AgentInfo is the per-agent status slice of the system state.
type AgentInfo struct {
	// ID identifies the agent.
	ID string `json:"id"`

	// State is the agent's lifecycle state.
	State AgentState `json:"state"`

	// CurrentAction is the action the agent is executing, if any.
	CurrentAction string `json:"current_action,omitempty"`

	// SuccessRate is the agent's observed success rate in [0,1].
	SuccessRate float64 `json:"success_rate"`
}

// Lock is one active lock held in the external lock manager, mirrored into
// the snapshot so recovery can refresh expired entries.
type Lock struct {
	// Resource is the locked resource name.
	Resource string `json:"resource"`

	// Owner is the worker holding the lock.
	Owner string `json:"owner"`

	// ExpiresAt is when the lock lapses unless refreshed.
	ExpiresAt time.Time `json:"expires_at"`
}

// Checkpoint is a saved prior world-state snapshot usable for rollback.
type Checkpoint struct {
	// ID is the unique identifier for this checkpoint.
	ID types.ID `json:"id"`

	// State is the world state captured at checkpoint time.
	State state.WorldState `json:"state"`

	// CreatedAt is when the checkpoint was captured.
	CreatedAt time.Time `json:"created_at"`
}

// SystemState is the read-mostly snapshot of orchestration state supplied by
// the caller for root-cause analysis, alternative generation, and recovery.
// The replanner reads every slice of it; the recovery executor additionally
// mutates resources, agents, locks, and action statuses in place.
type SystemState struct {
	// Plan is the plan currently being executed.
	Plan *ExecutionPlan `json:"plan"`

	// ExecutedActions are the names of actions that completed, in order.
	ExecutedActions []string `json:"executed_actions,omitempty"`

	// FailedActions are the names of actions that failed at least once.
	FailedActions []string `json:"failed_actions,omitempty"`

	// Resources is the resource pool keyed by resource name.
	Resources map[string]*ResourceState `json:"resources,omitempty"`

	// Agents is per-agent status keyed by agent ID.
	Agents map[string]*AgentInfo `json:"agents,omitempty"`

	// Locks are the currently held locks.
	Locks []*Lock `json:"locks,omitempty"`

	// Checkpoints is the bounded checkpoint list, ordered by CreatedAt
	// ascending (oldest first).
	Checkpoints []*Checkpoint `json:"checkpoints,omitempty"`

	// FailureHistory records past failures, newest last. Rollback selection
	// uses the timestamps to find a checkpoint with no failures after it.
	FailureHistory []*Failure `json:"failure_history,omitempty"`
}

// HasExecuted reports whether the named action completed.
func (s *SystemState) HasExecuted(name string) bool {
	for _, n := range s.ExecutedActions {
		if n == name {
			return true
		}
	}
	return false
}

// HasFailed reports whether the named action has a recorded failure.
func (s *SystemState) HasFailed(name string) bool {
	for _, n := range s.FailedActions {
		if n == name {
			return true
		}
	}
	return false
}
