package planner

import (
	"fmt"
	"math"

	"github.com/zero-day-ai/strategos/internal/state"
)

// costTolerance absorbs float accumulation error when comparing the summed
// action costs against the recorded total.
const costTolerance = 1e-9

// ValidationResult is the outcome of replaying a plan against its initial
// state and goal. Validation failures are structured returns, not errors, so
// a caller can decide to re-plan rather than crash.
type ValidationResult struct {
	// Valid reports whether the plan replays cleanly and reaches the goal.
	Valid bool `json:"valid"`

	// Error describes the first defect found when Valid is false.
	Error string `json:"error,omitempty"`
}

// ValidatePlan replays every action of the plan from the initial state,
// checking that preconditions hold before each step, that the final state
// satisfies the goal, and that the summed action costs equal the plan's
// recorded TotalCost.
func ValidatePlan(plan *Plan, initial, goal state.WorldState) ValidationResult {
	if plan == nil {
		return ValidationResult{Valid: false, Error: "plan is nil"}
	}

	current := initial.Clone()
	summedCost := 0.0

	for i, action := range plan.Actions {
		if !action.Applicable(current) {
			return ValidationResult{
				Valid: false,
				Error: fmt.Sprintf("precondition not met for action %q at step %d", action.Name, i),
			}
		}
		current = action.Apply(current)
		summedCost += action.Cost
	}

	if !current.Satisfies(goal) {
		return ValidationResult{
			Valid: false,
			Error: "final state does not satisfy the goal",
		}
	}

	if math.Abs(summedCost-plan.TotalCost) > costTolerance {
		return ValidationResult{
			Valid: false,
			Error: fmt.Sprintf("summed action cost %.6f does not equal recorded total cost %.6f", summedCost, plan.TotalCost),
		}
	}

	return ValidationResult{Valid: true}
}
