// Package planner implements goal-directed action planning as an A* search
// over the symbolic state space defined by internal/state. Each planning call
// owns its entire search state (frontier, closed set, node arena), so
// independent calls may run concurrently.
package planner

import (
	"time"

	"github.com/zero-day-ai/strategos/internal/state"
	"github.com/zero-day-ai/strategos/internal/types"
)

// Plan is an ordered action sequence reaching a goal, with its total cost.
//
// Invariant: replaying Actions from the initial state via repeated effect
// application reaches a state satisfying the goal, and the sum of action
// costs equals TotalCost. ValidatePlan checks both.
type Plan struct {
	// ID is the unique identifier for this plan.
	ID types.ID `json:"id"`

	// Actions is the ordered sequence of actions to execute.
	Actions []state.Action `json:"actions"`

	// TotalCost is the sum of the costs of all actions in the plan.
	TotalCost float64 `json:"total_cost"`

	// CreatedAt is when the plan was generated.
	CreatedAt time.Time `json:"created_at"`
}

// Empty reports whether the plan contains no actions, i.e. the initial state
// already satisfied the goal.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0
}
