package state

// Heuristic estimates the remaining cost from a state to a goal as the count
// of goal keys whose value differs from (or is absent in) the state.
//
// The estimate is admissible: an action can change at most the keys it lists
// in its effects, so in the best case each applied action resolves one unmet
// goal condition. The count therefore never overestimates the true remaining
// cost under unit-equivalent accounting, which is what A* needs for
// optimality.
func Heuristic(s, goal WorldState) float64 {
	unmet := 0
	for key, want := range goal {
		got, ok := s[key]
		if !ok || !scalarEqual(got, want) {
			unmet++
		}
	}
	return float64(unmet)
}
