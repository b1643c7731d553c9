package replan

import (
	"time"

	"github.com/zero-day-ai/strategos/internal/types"
)

// MaxRetryAttempts is the retry ceiling: once an action has accumulated this
// many consecutive classified failures, its root cause is reported as
// non-recoverable and the retry strategy is withheld.
const MaxRetryAttempts = 3

// FailureType classifies an execution failure into the fixed taxonomy.
// The set is exhaustive; the root-cause analyzer matches on every member
// explicitly and rejects anything else.
type FailureType string

const (
	// FailurePreconditions indicates the action's preconditions did not hold.
	FailurePreconditions FailureType = "action_preconditions_failed"

	// FailureExecution is the generic execution failure, used when no more
	// specific signal matches.
	FailureExecution FailureType = "action_execution_failed"

	// FailureResource indicates a required resource was unavailable.
	FailureResource FailureType = "resource_unavailable"

	// FailureTimeout indicates the action exceeded its time budget.
	FailureTimeout FailureType = "timeout_exceeded"

	// FailureDependency indicates the action was blocked on a dependency.
	FailureDependency FailureType = "dependency_blocked"

	// FailureQualityGate indicates a quality gate rejected the action's output.
	FailureQualityGate FailureType = "quality_gate_failed"
)

// String returns the string representation of the failure type.
func (t FailureType) String() string {
	return string(t)
}

// IsValid checks if the FailureType is a recognized taxonomy member.
func (t FailureType) IsValid() bool {
	switch t {
	case FailurePreconditions, FailureExecution, FailureResource,
		FailureTimeout, FailureDependency, FailureQualityGate:
		return true
	default:
		return false
	}
}

// Severity grades how serious a root cause is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// rank orders severities for escalation arithmetic.
func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 0
	case SeverityMedium:
		return 1
	case SeverityHigh:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// escalate raises the severity by the given number of levels, capped at
// critical.
func (s Severity) escalate(levels int) Severity {
	ladder := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	idx := s.rank() + levels
	if idx >= len(ladder) {
		idx = len(ladder) - 1
	}
	return ladder[idx]
}

// CauseCategory labels the broad cause family a root cause belongs to.
type CauseCategory string

const (
	CategoryPrecondition CauseCategory = "precondition"
	CategoryExecution    CauseCategory = "execution"
	CategoryResource     CauseCategory = "resource"
	CategoryTiming       CauseCategory = "timing"
	CategoryDependency   CauseCategory = "dependency"
	CategoryQuality      CauseCategory = "quality"
)

// RootCause is the analyzer's verdict on why an action failed. It is derived
// by the analyzer and never constructed directly by callers.
type RootCause struct {
	// Category is the broad cause family.
	Category CauseCategory `json:"category"`

	// Reason is a human-readable summary of the cause.
	Reason string `json:"reason"`

	// ContributingFactors lists observations from the system-state snapshot
	// that plausibly contributed to the failure.
	ContributingFactors []string `json:"contributing_factors"`

	// Severity grades the failure, escalating with retry count.
	Severity Severity `json:"severity"`

	// Recoverable reports whether automated remediation is still worth
	// attempting. False once the retry ceiling is reached or the error
	// signals a non-recoverable condition.
	Recoverable bool `json:"recoverable"`
}

// ActionRef describes the failed action as reported by the executor. The
// executor owns action identity; the replanner only needs the name and the
// type used for equivalence and learning.
type ActionRef struct {
	// Name uniquely identifies the action within the current plan.
	Name string `json:"name"`

	// Type groups equivalent actions for alternative-path generation and
	// per-action-type learning.
	Type string `json:"type"`
}

// Failure is one classified execution failure flowing through the
// replanning pipeline.
type Failure struct {
	// ID is the unique identifier for this failure.
	ID types.ID `json:"id"`

	// Timestamp is when the failure was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Type is the classified failure type.
	Type FailureType `json:"type"`

	// Action is the action whose execution failed.
	Action ActionRef `json:"action"`

	// Err is the execution error reported by the executor.
	Err error `json:"-"`

	// Message is the error message, kept separately so the failure stays
	// serializable.
	Message string `json:"message"`

	// Context carries executor-supplied key/value context (agent ID,
	// resource names, gate names).
	Context map[string]any `json:"context,omitempty"`

	// RetryCount is the number of consecutive classified failures for this
	// action, including this one.
	RetryCount int `json:"retry_count"`

	// RootCause is attached exactly once, by the root-cause analyzer.
	RootCause *RootCause `json:"root_cause,omitempty"`
}
