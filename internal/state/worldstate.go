// Package state defines the symbolic world-state representation used by the
// planner: scalar-valued property maps, actions with preconditions and
// effects, and the admissible goal-distance heuristic. Everything in this
// package is pure data plus pure functions; no I/O.
package state

import (
	"fmt"
	"sort"
	"strings"
)

// WorldState is a mapping from property name to a scalar value (bool, number,
// or text). No nesting is allowed. A goal state is a WorldState that may omit
// keys: unspecified keys are unconstrained.
type WorldState map[string]any

// Clone returns a shallow copy of the state.
// Values are scalars, so a shallow copy is a full copy.
func (s WorldState) Clone() WorldState {
	out := make(WorldState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Satisfies reports whether the state satisfies the goal: every key present
// in the goal must match the state. Keys absent from the goal are
// unconstrained. An empty goal is satisfied by any state.
func (s WorldState) Satisfies(goal WorldState) bool {
	for key, want := range goal {
		got, ok := s[key]
		if !ok || !scalarEqual(got, want) {
			return false
		}
	}
	return true
}

// Equal reports whether two states have identical key sets and matching
// values for every key.
func (s WorldState) Equal(other WorldState) bool {
	if len(s) != len(other) {
		return false
	}
	return s.Satisfies(other)
}

// Hash returns a canonical string for the state: keys sorted, then
// serialized with a per-kind tag. Two states hash identically iff they are
// equal under scalarEqual: insertion order never matters, numeric values of
// different widths agree, and values of different kinds (true vs "true",
// 3 vs "3") never collide.
func (s WorldState) Hash() string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%s=%s", k, hashScalar(s[k]))
	}
	return b.String()
}

// scalarEqual compares two scalar values, treating all numeric types as
// equivalent when their values match. JSON decoding yields float64 while Go
// literals are typically int, so mixed-width numeric comparison matters.
func scalarEqual(a, b any) bool {
	af, aNum := asFloat(a)
	bf, bNum := asFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return a == b
}

// hashScalar encodes one value for Hash. Numeric values normalize onto
// float64 so that hashing agrees with scalarEqual across widths; every other
// kind gets its own tag (and strings are quoted) so distinct kinds with the
// same textual form cannot collide.
func hashScalar(v any) string {
	if f, ok := asFloat(v); ok {
		return fmt.Sprintf("n:%v", f)
	}
	switch t := v.(type) {
	case string:
		return fmt.Sprintf("s:%q", t)
	case bool:
		return fmt.Sprintf("b:%v", t)
	default:
		return fmt.Sprintf("o:%v", t)
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
