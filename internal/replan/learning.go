package replan

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultPatternCapacity bounds the failure-pattern table.
const DefaultPatternCapacity = 100

// Neutral priors used before any observations exist.
const (
	unknownActionRate   = 0.5
	unknownStrategyRate = 0.6
)

// FailureSignature derives the grouping key for learned failure patterns.
func FailureSignature(failureType FailureType, actionType string, category CauseCategory) string {
	return fmt.Sprintf("%s|%s|%s", failureType, actionType, category)
}

// FailurePattern aggregates everything learned about one failure signature.
type FailurePattern struct {
	// Signature is the derived grouping key.
	Signature string `json:"signature"`

	// Occurrences counts how many times this signature has been seen.
	Occurrences int `json:"occurrences"`

	// SuccessfulStrategies counts, per strategy, how often that strategy
	// resolved a failure with this signature.
	SuccessfulStrategies map[Strategy]int `json:"successful_strategies"`

	// AverageRecoveryTime is the running average time to recover from this
	// signature across successful strategy outcomes.
	AverageRecoveryTime time.Duration `json:"average_recovery_time"`

	// recoverySamples counts the observations behind AverageRecoveryTime.
	recoverySamples int

	// LastSeen is the last time this signature occurred, used for eviction.
	LastSeen time.Time `json:"last_seen"`
}

// outcomeCounter is a success/failure tally.
type outcomeCounter struct {
	successes int
	failures  int
}

func (c *outcomeCounter) rate() float64 {
	total := c.successes + c.failures
	if total == 0 {
		return 0
	}
	return float64(c.successes) / float64(total)
}

// LearningStore records failure signatures and strategy outcomes with
// bounded memory, to bias future confidence scores. It keeps two independent
// tracking tables (per-action-type and per-strategy success counters) plus a
// capacity-bounded pattern table with least-recently-seen eviction.
//
// The store is the only mutable shared state in the replanner; all methods
// are safe for concurrent use.
type LearningStore struct {
	mu sync.RWMutex

	actions    map[string]*outcomeCounter
	strategies map[Strategy]*outcomeCounter
	patterns   map[string]*FailurePattern

	capacity int
	clock    func() time.Time
}

// LearningStoreOption is a functional option for configuring a LearningStore.
type LearningStoreOption func(*LearningStore)

// WithPatternCapacity sets the failure-pattern table capacity.
// Default: 100.
func WithPatternCapacity(capacity int) LearningStoreOption {
	return func(s *LearningStore) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(clock func() time.Time) LearningStoreOption {
	return func(s *LearningStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewLearningStore creates a LearningStore. Every strategy is seeded with a
// one-success/one-failure prior so early confidence estimates are neither
// divide-by-zero nor overconfident.
func NewLearningStore(opts ...LearningStoreOption) *LearningStore {
	s := &LearningStore{
		actions:    make(map[string]*outcomeCounter),
		strategies: make(map[Strategy]*outcomeCounter),
		patterns:   make(map[string]*FailurePattern),
		capacity:   DefaultPatternCapacity,
		clock:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	for _, strategy := range AllStrategies {
		s.strategies[strategy] = &outcomeCounter{successes: 1, failures: 1}
	}

	return s
}

// RecordFailure registers one occurrence of a failure signature and counts a
// failure against the action type. Called by the root-cause analyzer for
// every analyzed failure.
func (s *LearningStore) RecordFailure(signature, actionType string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()

	pattern, ok := s.patterns[signature]
	if !ok {
		pattern = &FailurePattern{
			Signature:            signature,
			SuccessfulStrategies: make(map[Strategy]int),
		}
		s.patterns[signature] = pattern
	}
	pattern.Occurrences++
	pattern.LastSeen = now

	s.actionCounter(actionType).failures++

	s.evictLocked()
}

// RecordActionSuccess counts a successful execution of an action type.
func (s *LearningStore) RecordActionSuccess(actionType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actionCounter(actionType).successes++
}

// RecordStrategyOutcome registers whether a strategy ultimately worked for a
// failure with the given signature, and how long recovery took.
func (s *LearningStore) RecordStrategyOutcome(signature string, strategy Strategy, success bool, recoveryTime time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.strategies[strategy]
	if !ok {
		counter = &outcomeCounter{}
		s.strategies[strategy] = counter
	}
	if success {
		counter.successes++
	} else {
		counter.failures++
	}

	pattern, ok := s.patterns[signature]
	if !ok {
		return
	}
	pattern.LastSeen = s.clock()
	if success {
		pattern.SuccessfulStrategies[strategy]++
		// Running average over successful recoveries.
		total := pattern.AverageRecoveryTime*time.Duration(pattern.recoverySamples) + recoveryTime
		pattern.recoverySamples++
		pattern.AverageRecoveryTime = total / time.Duration(pattern.recoverySamples)
	}
}

// ActionSuccessRate returns the observed success rate for an action type, or
// the neutral 0.5 prior when the action type has never been seen.
func (s *LearningStore) ActionSuccessRate(actionType string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counter, ok := s.actions[actionType]
	if !ok || counter.successes+counter.failures == 0 {
		return unknownActionRate
	}
	return counter.rate()
}

// StrategySuccessRate returns the observed success rate for a strategy, or
// the neutral 0.6 prior when the strategy has never been tracked.
func (s *LearningStore) StrategySuccessRate(strategy Strategy) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counter, ok := s.strategies[strategy]
	if !ok || counter.successes+counter.failures == 0 {
		return unknownStrategyRate
	}
	return counter.rate()
}

// Pattern returns a copy of the pattern for a signature, or false if the
// signature has never been recorded.
func (s *LearningStore) Pattern(signature string) (FailurePattern, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pattern, ok := s.patterns[signature]
	if !ok {
		return FailurePattern{}, false
	}
	return copyPattern(pattern), true
}

// PatternCount returns the number of tracked failure signatures.
func (s *LearningStore) PatternCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.patterns)
}

// actionCounter returns the counter for an action type, creating it if
// needed. Caller must hold the write lock.
func (s *LearningStore) actionCounter(actionType string) *outcomeCounter {
	counter, ok := s.actions[actionType]
	if !ok {
		counter = &outcomeCounter{}
		s.actions[actionType] = counter
	}
	return counter
}

// evictLocked drops the oldest fifth of patterns by LastSeen once the table
// exceeds capacity. Caller must hold the write lock.
func (s *LearningStore) evictLocked() {
	if len(s.patterns) <= s.capacity {
		return
	}

	ordered := make([]*FailurePattern, 0, len(s.patterns))
	for _, p := range s.patterns {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].LastSeen.Before(ordered[j].LastSeen)
	})

	evictCount := s.capacity / 5
	if evictCount < 1 {
		evictCount = 1
	}
	// Always drop back to capacity even when a fifth is not enough.
	if over := len(s.patterns) - s.capacity; over > evictCount {
		evictCount = over
	}

	for _, p := range ordered[:evictCount] {
		delete(s.patterns, p.Signature)
	}
}

func copyPattern(p *FailurePattern) FailurePattern {
	out := *p
	out.SuccessfulStrategies = make(map[Strategy]int, len(p.SuccessfulStrategies))
	for k, v := range p.SuccessfulStrategies {
		out.SuccessfulStrategies[k] = v
	}
	return out
}
