package replan

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/strategos/internal/types"
)

// analyzedFailure builds a failure with an attached root cause without going
// through the analyzer, so generator behavior can be pinned precisely.
func analyzedFailure(ft FailureType, action ActionRef, retryCount int, cause *RootCause) *Failure {
	f := newFailureForTest(ft, action, "synthetic", retryCount)
	f.RootCause = cause
	return f
}

func planWithAlternatives() *SystemState {
	return &SystemState{
		Plan: &ExecutionPlan{
			ID: types.NewID(),
			Goal: GoalSpec{
				Description: "publish artifacts",
				SuccessCriteria: []Criterion{
					{Name: "published", Required: true},
					{Name: "notified", Required: false},
				},
			},
			Actions: []PlannedAction{
				{Name: "upload-primary", Type: "upload", Status: ActionStatusFailed},
				{Name: "upload-mirror", Type: "upload", Status: ActionStatusPending},
				{Name: "notify-team", Type: "notify", Status: ActionStatusPending, ContributesTo: []string{"notified"}},
			},
			EstimatedDuration: time.Minute,
		},
		FailedActions: []string{"upload-primary"},
	}
}

func TestGenerateRequiresRootCause(t *testing.T) {
	g := NewGenerator(NewLearningStore())
	failure := newFailureForTest(FailureExecution, ActionRef{Name: "x"}, "boom", 1)

	_, err := g.Generate(context.Background(), failure, planWithAlternatives())
	assert.Error(t, err, "unanalyzed failure must be rejected")
}

func TestGenerateRetryWithBackoff(t *testing.T) {
	g := NewGenerator(NewLearningStore())
	failure := analyzedFailure(FailureTimeout, ActionRef{Name: "upload-primary", Type: "upload"}, 1, &RootCause{
		Category:    CategoryTiming,
		Severity:    SeverityMedium,
		Recoverable: true,
	})

	alternatives, err := g.Generate(context.Background(), failure, planWithAlternatives())
	require.NoError(t, err)

	retry := findStrategy(alternatives, StrategyRetry)
	require.NotNil(t, retry)

	// Exponential backoff: base × multiplier^retryCount = 1s × 2^1.
	assert.Equal(t, 2*time.Second, retry.BackoffDelay)

	// Confidence: strategy rate (seeded 0.5) × (1 − retryCount×0.2), capped at 0.9.
	assert.InDelta(t, 0.5*0.8, retry.Confidence, 1e-9)

	// The retried action is reset to pending in the candidate plan.
	require.NotNil(t, retry.Plan)
	assert.Equal(t, ActionStatusPending, retry.Plan.FindAction("upload-primary").Status)
}

func TestGenerateRetryConfidenceCap(t *testing.T) {
	store := NewLearningStore()
	sig := "any|sig|here"
	// Drive the retry success rate to 11/12 ≈ 0.917.
	for i := 0; i < 10; i++ {
		store.RecordStrategyOutcome(sig, StrategyRetry, true, time.Second)
	}

	g := NewGenerator(store)
	failure := analyzedFailure(FailureTimeout, ActionRef{Name: "upload-primary", Type: "upload"}, 0, &RootCause{
		Category:    CategoryTiming,
		Recoverable: true,
	})

	alternatives, err := g.Generate(context.Background(), failure, planWithAlternatives())
	require.NoError(t, err)

	retry := findStrategy(alternatives, StrategyRetry)
	require.NotNil(t, retry)
	assert.Equal(t, 0.9, retry.Confidence, "confidence must cap at 0.9")
}

func TestGenerateRetryNotOfferedAtCeiling(t *testing.T) {
	g := NewGenerator(NewLearningStore())
	failure := analyzedFailure(FailureTimeout, ActionRef{Name: "upload-primary", Type: "upload"}, MaxRetryAttempts, &RootCause{
		Category:    CategoryTiming,
		Recoverable: false,
	})

	alternatives, err := g.Generate(context.Background(), failure, planWithAlternatives())
	require.NoError(t, err)
	assert.Nil(t, findStrategy(alternatives, StrategyRetry))
}

func TestGenerateRetryCategoryGate(t *testing.T) {
	g := NewGenerator(NewLearningStore())

	// Quality failures are not retry candidates even when recoverable.
	failure := analyzedFailure(FailureQualityGate, ActionRef{Name: "upload-primary", Type: "upload"}, 1, &RootCause{
		Category:    CategoryQuality,
		Recoverable: true,
	})

	alternatives, err := g.Generate(context.Background(), failure, planWithAlternatives())
	require.NoError(t, err)
	assert.Nil(t, findStrategy(alternatives, StrategyRetry))
}

func TestGenerateAlternativePath(t *testing.T) {
	g := NewGenerator(NewLearningStore())
	failure := analyzedFailure(FailureExecution, ActionRef{Name: "upload-primary", Type: "upload"}, 1, &RootCause{
		Category:    CategoryExecution,
		Recoverable: true,
	})

	alternatives, err := g.Generate(context.Background(), failure, planWithAlternatives())
	require.NoError(t, err)

	alt := findStrategy(alternatives, StrategyAlternativePath)
	require.NotNil(t, alt)
	assert.Contains(t, alt.Reasoning, "upload-mirror")

	// Confidence: action-type rate (unknown, 0.5) × strategy rate (seeded 0.5).
	assert.InDelta(t, 0.25, alt.Confidence, 1e-9)

	// The failed action is skipped in the candidate plan.
	require.NotNil(t, alt.Plan)
	assert.Equal(t, ActionStatusSkipped, alt.Plan.FindAction("upload-primary").Status)
}

func TestGenerateAlternativePathSkipsFailedCandidates(t *testing.T) {
	g := NewGenerator(NewLearningStore())
	sys := planWithAlternatives()
	sys.FailedActions = append(sys.FailedActions, "upload-mirror")
	sys.Plan.Actions[1].Status = ActionStatusFailed

	failure := analyzedFailure(FailureExecution, ActionRef{Name: "upload-primary", Type: "upload"}, 1, &RootCause{
		Category:    CategoryExecution,
		Recoverable: true,
	})

	alternatives, err := g.Generate(context.Background(), failure, sys)
	require.NoError(t, err)
	assert.Nil(t, findStrategy(alternatives, StrategyAlternativePath))
}

func TestGenerateSimplifyGoal(t *testing.T) {
	g := NewGenerator(NewLearningStore())
	failure := analyzedFailure(FailureExecution, ActionRef{Name: "upload-primary", Type: "upload"}, 1, &RootCause{
		Category:    CategoryExecution,
		Recoverable: true,
	})

	alternatives, err := g.Generate(context.Background(), failure, planWithAlternatives())
	require.NoError(t, err)

	simplify := findStrategy(alternatives, StrategySimplifyGoal)
	require.NotNil(t, simplify)
	assert.InDelta(t, 0.5*0.8, simplify.Confidence, 1e-9)

	// The optional criterion is dropped, and the action serving only that
	// criterion is removed.
	require.NotNil(t, simplify.Plan)
	require.Len(t, simplify.Plan.Goal.SuccessCriteria, 1)
	assert.Equal(t, "published", simplify.Plan.Goal.SuccessCriteria[0].Name)
	assert.Nil(t, simplify.Plan.FindAction("notify-team"))
	assert.NotNil(t, simplify.Plan.FindAction("upload-mirror"))
}

func TestGenerateSimplifyGoalNotApplicableForRigidGoal(t *testing.T) {
	g := NewGenerator(NewLearningStore())
	sys := planWithAlternatives()
	sys.Plan.Goal.SuccessCriteria = []Criterion{{Name: "published", Required: true}}
	sys.Plan.Goal.FlexibleConstraints = nil

	failure := analyzedFailure(FailureExecution, ActionRef{Name: "upload-primary", Type: "upload"}, 1, &RootCause{
		Category:    CategoryExecution,
		Recoverable: true,
	})

	alternatives, err := g.Generate(context.Background(), failure, sys)
	require.NoError(t, err)
	assert.Nil(t, findStrategy(alternatives, StrategySimplifyGoal))
}

func TestGenerateRequestResources(t *testing.T) {
	g := NewGenerator(NewLearningStore())
	failure := analyzedFailure(FailureResource, ActionRef{Name: "upload-primary", Type: "upload"}, 1, &RootCause{
		Category:    CategoryResource,
		Recoverable: true,
	})

	sys := planWithAlternatives()
	alternatives, err := g.Generate(context.Background(), failure, sys)
	require.NoError(t, err)

	request := findStrategy(alternatives, StrategyRequestResources)
	require.NotNil(t, request)
	assert.InDelta(t, 0.5*0.7, request.Confidence, 1e-9)

	// Wait budget is added to the candidate plan's estimated duration.
	require.NotNil(t, request.Plan)
	assert.Equal(t, time.Minute+DefaultResourceWait, request.Plan.EstimatedDuration)
	// The caller's snapshot is untouched.
	assert.Equal(t, time.Minute, sys.Plan.EstimatedDuration)
}

func TestGenerateEscalateForNonRecoverable(t *testing.T) {
	g := NewGenerator(NewLearningStore())
	failure := analyzedFailure(FailureExecution, ActionRef{Name: "upload-primary", Type: "upload"}, MaxRetryAttempts, &RootCause{
		Category:    CategoryExecution,
		Recoverable: false,
	})

	alternatives, err := g.Generate(context.Background(), failure, planWithAlternatives())
	require.NoError(t, err)

	escalate := findStrategy(alternatives, StrategyEscalate)
	require.NotNil(t, escalate)
	assert.Equal(t, 0.0, escalate.Confidence)
	assert.Nil(t, escalate.Plan)
}

func TestGenerateEscalateWhenNothingElseApplies(t *testing.T) {
	g := NewGenerator(NewLearningStore())

	// Precondition category blocks retry; a rigid single-action plan blocks
	// the other strategies.
	sys := &SystemState{
		Plan: &ExecutionPlan{
			ID:   types.NewID(),
			Goal: GoalSpec{SuccessCriteria: []Criterion{{Name: "done", Required: true}}},
			Actions: []PlannedAction{
				{Name: "only-action", Type: "unique", Status: ActionStatusFailed},
			},
		},
	}
	failure := analyzedFailure(FailurePreconditions, ActionRef{Name: "only-action", Type: "unique"}, 1, &RootCause{
		Category:    CategoryPrecondition,
		Recoverable: true,
	})

	alternatives, err := g.Generate(context.Background(), failure, sys)
	require.NoError(t, err)
	require.Len(t, alternatives, 1)
	assert.Equal(t, StrategyEscalate, alternatives[0].Strategy)
}

func TestGenerateSortsByDescendingConfidence(t *testing.T) {
	g := NewGenerator(NewLearningStore())
	failure := analyzedFailure(FailureResource, ActionRef{Name: "upload-primary", Type: "upload"}, 0, &RootCause{
		Category:    CategoryResource,
		Recoverable: true,
	})

	alternatives, err := g.Generate(context.Background(), failure, planWithAlternatives())
	require.NoError(t, err)
	require.True(t, len(alternatives) >= 2)

	for i := 1; i < len(alternatives); i++ {
		assert.GreaterOrEqual(t, alternatives[i-1].Confidence, alternatives[i].Confidence)
	}
}

func findStrategy(alternatives []AlternativePlan, strategy Strategy) *AlternativePlan {
	for i := range alternatives {
		if alternatives[i].Strategy == strategy {
			return &alternatives[i]
		}
	}
	return nil
}
