package replan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/strategos/internal/types"
)

func engineSystemState() *SystemState {
	return &SystemState{
		Plan: &ExecutionPlan{
			ID: types.NewID(),
			Goal: GoalSpec{
				Description:     "ship the release",
				SuccessCriteria: []Criterion{{Name: "deployed", Required: true}},
			},
			Actions: []PlannedAction{
				{Name: "deploy-east", Type: "deployment", Status: ActionStatusFailed},
				{Name: "deploy-west", Type: "deployment", Status: ActionStatusPending},
			},
		},
		FailedActions: []string{"deploy-east"},
		Resources:     map[string]*ResourceState{},
		Agents:        map[string]*AgentInfo{},
	}
}

func drain(ch <-chan ReplanEvent) []ReplanEvent {
	var events []ReplanEvent
	for {
		select {
		case event := <-ch:
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestHandleFailurePipeline(t *testing.T) {
	emitter := NewChannelEventEmitter()
	defer emitter.Close()
	ch, cleanup := emitter.Subscribe(context.Background())
	defer cleanup()

	engine := NewEngine(NewLearningStore(), WithEngineEmitter(emitter))

	action := ActionRef{Name: "deploy-east", Type: "deployment"}
	failure, alternatives, err := engine.HandleFailure(
		context.Background(), action, errors.New("operation timed out"), nil, engineSystemState())
	require.NoError(t, err)

	require.NotNil(t, failure)
	assert.Equal(t, FailureTimeout, failure.Type)
	assert.Equal(t, 1, failure.RetryCount)
	require.NotNil(t, failure.RootCause)
	assert.Equal(t, CategoryTiming, failure.RootCause.Category)
	assert.True(t, failure.RootCause.Recoverable)

	require.NotEmpty(t, alternatives)
	for i := 1; i < len(alternatives); i++ {
		assert.GreaterOrEqual(t, alternatives[i-1].Confidence, alternatives[i].Confidence)
	}

	// The classified signature landed in the learning store.
	sig := FailureSignature(FailureTimeout, "deployment", CategoryTiming)
	_, ok := engine.Store().Pattern(sig)
	assert.True(t, ok)

	events := drain(ch)
	require.Len(t, events, 3)
	assert.Equal(t, EventFailureDetected, events[0].Type)
	assert.Equal(t, EventFailureAnalyzed, events[1].Type)
	assert.Equal(t, EventPlansGenerated, events[2].Type)
	for _, event := range events {
		assert.Equal(t, failure.ID, event.FailureID)
	}
}

func TestHandleFailureRejectsNilError(t *testing.T) {
	engine := NewEngine(NewLearningStore())

	_, _, err := engine.HandleFailure(
		context.Background(), ActionRef{Name: "deploy-east"}, nil, nil, engineSystemState())
	require.Error(t, err)

	var serr *types.StrategosError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, types.REPLAN_INVALID_FAILURE, serr.Code)
}

func TestHandleFailureRetryExhaustion(t *testing.T) {
	engine := NewEngine(NewLearningStore())
	action := ActionRef{Name: "deploy-east", Type: "deployment"}

	var failure *Failure
	var alternatives []AlternativePlan
	for i := 0; i < MaxRetryAttempts; i++ {
		var err error
		failure, alternatives, err = engine.HandleFailure(
			context.Background(), action, errors.New("operation timed out"), nil, engineSystemState())
		require.NoError(t, err)
	}

	// The third consecutive classified failure exhausts the retry budget:
	// the root cause flips to non-recoverable and retry is withheld.
	assert.Equal(t, MaxRetryAttempts, failure.RetryCount)
	assert.False(t, failure.RootCause.Recoverable)
	assert.Equal(t, SeverityCritical, failure.RootCause.Severity)
	assert.Nil(t, findStrategy(alternatives, StrategyRetry))
	assert.NotNil(t, findStrategy(alternatives, StrategyEscalate))
}

func TestHandleFailureEmitsEscalationWhenItRanksFirst(t *testing.T) {
	emitter := NewChannelEventEmitter()
	defer emitter.Close()
	ch, cleanup := emitter.Subscribe(context.Background())
	defer cleanup()

	engine := NewEngine(NewLearningStore(), WithEngineEmitter(emitter))

	// A rigid single-action plan with a non-retryable category leaves only
	// escalation.
	sys := &SystemState{
		Plan: &ExecutionPlan{
			ID:   types.NewID(),
			Goal: GoalSpec{SuccessCriteria: []Criterion{{Name: "done", Required: true}}},
			Actions: []PlannedAction{
				{Name: "only-action", Type: "unique", Status: ActionStatusFailed},
			},
		},
		Resources: map[string]*ResourceState{},
		Agents:    map[string]*AgentInfo{},
	}

	_, alternatives, err := engine.HandleFailure(
		context.Background(), ActionRef{Name: "only-action", Type: "unique"},
		errors.New("precondition not satisfied"), nil, sys)
	require.NoError(t, err)
	require.Len(t, alternatives, 1)
	assert.Equal(t, StrategyEscalate, alternatives[0].Strategy)

	events := drain(ch)
	require.Len(t, events, 4)
	assert.Equal(t, EventEscalationRequired, events[3].Type)
}

func TestEngineRecoverEmitsLifecycleEvents(t *testing.T) {
	emitter := NewChannelEventEmitter()
	defer emitter.Close()
	ch, cleanup := emitter.Subscribe(context.Background())
	defer cleanup()

	engine := NewEngine(NewLearningStore(), WithEngineEmitter(emitter))

	sys := engineSystemState()
	sys.Resources["workers"] = &ResourceState{Name: "workers", Capacity: 4, Allocated: 2}

	failure := newFailureForTest(FailureResource, ActionRef{Name: "deploy-east", Type: "deployment"}, "no capacity", 1)
	failure.RootCause = &RootCause{Category: CategoryResource, Severity: SeverityHigh, Recoverable: true}

	result := engine.Recover(context.Background(), failure, sys)
	assert.True(t, result.Success)

	events := drain(ch)
	require.Len(t, events, 2)
	assert.Equal(t, EventRecoveryStarted, events[0].Type)
	assert.Equal(t, EventRecoveryCompleted, events[1].Type)
}

func TestEngineRecoverFailureEvent(t *testing.T) {
	emitter := NewChannelEventEmitter()
	defer emitter.Close()
	ch, cleanup := emitter.Subscribe(context.Background())
	defer cleanup()

	engine := NewEngine(NewLearningStore(), WithEngineEmitter(emitter))

	// Nothing applicable, so recovery performs no actions and reports failure.
	failure := newFailureForTest(FailureExecution, ActionRef{Name: "deploy-east", Type: "deployment"}, "boom", 1)
	failure.RootCause = &RootCause{Category: CategoryExecution, Severity: SeverityMedium, Recoverable: true}

	result := engine.Recover(context.Background(), failure, engineSystemState())
	assert.False(t, result.Success)

	events := drain(ch)
	require.Len(t, events, 2)
	assert.Equal(t, EventRecoveryStarted, events[0].Type)
	assert.Equal(t, EventRecoveryFailed, events[1].Type)
}

func TestReportOutcomeClosesTheLoop(t *testing.T) {
	engine := NewEngine(NewLearningStore())
	action := ActionRef{Name: "deploy-east", Type: "deployment"}
	sys := engineSystemState()

	failure, _, err := engine.HandleFailure(
		context.Background(), action, errors.New("operation timed out"), nil, sys)
	require.NoError(t, err)
	require.Equal(t, 1, failure.RetryCount)

	engine.ReportOutcome(failure, StrategyRetry, true, 2*time.Second)

	// Strategy prior 1/1 plus one success: 2/3.
	assert.InDelta(t, 2.0/3.0, engine.Store().StrategySuccessRate(StrategyRetry), 1e-9)

	// The action was credited: one failure, one success.
	assert.InDelta(t, 0.5, engine.Store().ActionSuccessRate("deployment"), 1e-9)

	// The consecutive failure count was reset, so the next failure starts
	// from one again.
	failure2, _, err := engine.HandleFailure(
		context.Background(), action, errors.New("operation timed out"), nil, engineSystemState())
	require.NoError(t, err)
	assert.Equal(t, 1, failure2.RetryCount)
}

func TestReportOutcomeFailureKeepsCounting(t *testing.T) {
	engine := NewEngine(NewLearningStore())
	action := ActionRef{Name: "deploy-east", Type: "deployment"}

	failure, _, err := engine.HandleFailure(
		context.Background(), action, errors.New("operation timed out"), nil, engineSystemState())
	require.NoError(t, err)

	engine.ReportOutcome(failure, StrategyRetry, false, time.Second)

	failure2, _, err := engine.HandleFailure(
		context.Background(), action, errors.New("operation timed out"), nil, engineSystemState())
	require.NoError(t, err)
	assert.Equal(t, 2, failure2.RetryCount)
}

func TestReportOutcomeNilFailureIsNoop(t *testing.T) {
	engine := NewEngine(NewLearningStore())
	assert.NotPanics(t, func() {
		engine.ReportOutcome(nil, StrategyRetry, true, time.Second)
	})
}
