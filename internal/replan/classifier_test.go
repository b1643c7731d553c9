package replan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	action := ActionRef{Name: "deploy", Type: "deployment"}

	tests := []struct {
		name    string
		message string
		want    FailureType
	}{
		{
			name:    "precondition phrasing",
			message: "precondition hasKey not met",
			want:    FailurePreconditions,
		},
		{
			name:    "resource phrasing",
			message: "resource pool exhausted",
			want:    FailureResource,
		},
		{
			name:    "timeout phrasing",
			message: "operation timed out after 30s",
			want:    FailureTimeout,
		},
		{
			name:    "deadline phrasing",
			message: "context deadline exceeded",
			want:    FailureTimeout,
		},
		{
			name:    "dependency phrasing",
			message: "blocked waiting on upstream task",
			want:    FailureDependency,
		},
		{
			name:    "quality gate phrasing",
			message: "quality gate rejected build: coverage below threshold",
			want:    FailureQualityGate,
		},
		{
			name:    "unmatched message defaults to execution failure",
			message: "something went wrong",
			want:    FailureExecution,
		},
		{
			name:    "case insensitive matching",
			message: "TIMEOUT while connecting",
			want:    FailureTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(action, errors.New(tt.message), nil)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyRuleOrder(t *testing.T) {
	action := ActionRef{Name: "deploy", Type: "deployment"}

	// The precondition rule precedes the timeout rule, so a message carrying
	// both signals must classify as precondition-failed.
	got := Classify(action, errors.New("timeout while checking precondition"), nil)
	assert.Equal(t, FailurePreconditions, got)

	// Resource precedes timeout.
	got = Classify(action, errors.New("timed out waiting for unavailable resource"), nil)
	assert.Equal(t, FailureResource, got)

	// Timeout precedes dependency.
	got = Classify(action, errors.New("dependency check timed out"), nil)
	assert.Equal(t, FailureTimeout, got)
}

func TestClassifyNilError(t *testing.T) {
	got := Classify(ActionRef{Name: "x"}, nil, nil)
	assert.Equal(t, FailureExecution, got)
}

func TestFailureTypeIsValid(t *testing.T) {
	for _, ft := range []FailureType{
		FailurePreconditions, FailureExecution, FailureResource,
		FailureTimeout, FailureDependency, FailureQualityGate,
	} {
		assert.True(t, ft.IsValid(), ft)
	}
	assert.False(t, FailureType("made_up").IsValid())
}
