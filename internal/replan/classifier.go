package replan

import "strings"

// signalRule pairs a failure type with the textual signals that indicate it.
type signalRule struct {
	failureType FailureType
	signals     []string
}

// classificationRules are checked in order; the first rule with a matching
// signal wins. The ordering is a design contract: an error message matching
// several rules must always classify the same way, so reordering these
// entries changes observable behavior.
var classificationRules = []signalRule{
	{
		failureType: FailurePreconditions,
		signals:     []string{"precondition", "prerequisite", "not satisfied", "requirement not met"},
	},
	{
		failureType: FailureResource,
		signals:     []string{"resource", "unavailable", "no capacity", "capacity exceeded", "exhausted", "insufficient"},
	},
	{
		failureType: FailureTimeout,
		signals:     []string{"timeout", "timed out", "deadline exceeded", "too slow"},
	},
	{
		failureType: FailureDependency,
		signals:     []string{"dependency", "blocked", "waiting on", "not yet executed"},
	},
	{
		failureType: FailureQualityGate,
		signals:     []string{"quality gate", "quality check", "lint", "coverage", "tests failed", "test failure"},
	},
}

// Classify maps an execution error plus context onto a FailureType by
// matching the error message against the fixed, ordered signal rules.
// Unmatched errors classify as the generic execution failure.
//
// Classification is a pure function: it never touches the learning store or
// the system state.
func Classify(action ActionRef, err error, context map[string]any) FailureType {
	if err == nil {
		return FailureExecution
	}

	message := strings.ToLower(err.Error())
	for _, rule := range classificationRules {
		for _, signal := range rule.signals {
			if strings.Contains(message, signal) {
				return rule.failureType
			}
		}
	}

	return FailureExecution
}
