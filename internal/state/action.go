package state

// Action is an immutable value object describing one step the executor can
// take: required input state, guaranteed output-state delta, and a positive
// cost. Actions are shared read-only across searches and must not be mutated
// after construction.
type Action struct {
	// Name uniquely identifies the action within an action catalog.
	Name string `json:"name"`

	// Preconditions must all match the current state for the action to be
	// applicable.
	Preconditions WorldState `json:"preconditions"`

	// Effects overlay the current state when the action is applied.
	// Effect keys replace existing values; all other keys are unchanged.
	Effects WorldState `json:"effects"`

	// Cost is the positive cost of executing this action.
	Cost float64 `json:"cost"`
}

// Applicable reports whether every precondition key/value matches the state.
func (a Action) Applicable(s WorldState) bool {
	return s.Satisfies(a.Preconditions)
}

// Apply returns a new state equal to s overlaid with the action's effects.
// The receiver state is never modified.
func (a Action) Apply(s WorldState) WorldState {
	out := s.Clone()
	for k, v := range a.Effects {
		out[k] = v
	}
	return out
}

// ApplicableActions filters the catalog down to the actions whose
// preconditions all hold in the given state, preserving catalog order.
func ApplicableActions(s WorldState, actions []Action) []Action {
	out := make([]Action, 0, len(actions))
	for _, a := range actions {
		if a.Applicable(s) {
			out = append(out, a)
		}
	}
	return out
}
