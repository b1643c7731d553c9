package replan

import (
	"sort"
	"time"
)

// PatternInsight summarizes one learned failure pattern for observability.
type PatternInsight struct {
	// Signature is the failure signature.
	Signature string `json:"signature"`

	// Occurrences counts how often the signature has been seen.
	Occurrences int `json:"occurrences"`

	// BestStrategy is the strategy with the most recorded successes for this
	// signature, empty when none has succeeded yet.
	BestStrategy Strategy `json:"best_strategy,omitempty"`

	// AverageRecoveryTime is the running average recovery time.
	AverageRecoveryTime time.Duration `json:"average_recovery_time"`
}

// ActionInsight summarizes the learned success rate of one action type.
type ActionInsight struct {
	// ActionType is the action type.
	ActionType string `json:"action_type"`

	// SuccessRate is the observed success rate in [0,1].
	SuccessRate float64 `json:"success_rate"`

	// Observations is the number of recorded outcomes.
	Observations int `json:"observations"`
}

// StrategyInsight summarizes the learned effectiveness of one strategy.
type StrategyInsight struct {
	// Strategy is the replanning strategy.
	Strategy Strategy `json:"strategy"`

	// SuccessRate is the observed success rate in [0,1], including the
	// seeded prior.
	SuccessRate float64 `json:"success_rate"`

	// Observations is the number of recorded outcomes, including the seeded
	// prior.
	Observations int `json:"observations"`
}

// Insights is a read-only snapshot of what the store has learned.
type Insights struct {
	// MostCommonPatterns lists the top-N failure signatures by occurrence.
	MostCommonPatterns []PatternInsight `json:"most_common_patterns"`

	// MostReliableActions lists the top-N action types by success rate.
	MostReliableActions []ActionInsight `json:"most_reliable_actions"`

	// MostFailingActions lists the top-N action types by failure rate.
	MostFailingActions []ActionInsight `json:"most_failing_actions"`

	// StrategyEffectiveness lists every strategy by descending success rate.
	StrategyEffectiveness []StrategyInsight `json:"strategy_effectiveness"`
}

// Insights returns top-N observability views over the learned state.
// It never mutates the store.
func (s *LearningStore) Insights(topN int) Insights {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if topN <= 0 {
		topN = 10
	}

	patterns := make([]PatternInsight, 0, len(s.patterns))
	for _, p := range s.patterns {
		patterns = append(patterns, PatternInsight{
			Signature:           p.Signature,
			Occurrences:         p.Occurrences,
			BestStrategy:        bestStrategy(p.SuccessfulStrategies),
			AverageRecoveryTime: p.AverageRecoveryTime,
		})
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Occurrences != patterns[j].Occurrences {
			return patterns[i].Occurrences > patterns[j].Occurrences
		}
		return patterns[i].Signature < patterns[j].Signature
	})

	actions := make([]ActionInsight, 0, len(s.actions))
	for actionType, counter := range s.actions {
		actions = append(actions, ActionInsight{
			ActionType:   actionType,
			SuccessRate:  counter.rate(),
			Observations: counter.successes + counter.failures,
		})
	}

	reliable := make([]ActionInsight, len(actions))
	copy(reliable, actions)
	sort.Slice(reliable, func(i, j int) bool {
		if reliable[i].SuccessRate != reliable[j].SuccessRate {
			return reliable[i].SuccessRate > reliable[j].SuccessRate
		}
		return reliable[i].ActionType < reliable[j].ActionType
	})

	failing := make([]ActionInsight, len(actions))
	copy(failing, actions)
	sort.Slice(failing, func(i, j int) bool {
		if failing[i].SuccessRate != failing[j].SuccessRate {
			return failing[i].SuccessRate < failing[j].SuccessRate
		}
		return failing[i].ActionType < failing[j].ActionType
	})

	strategies := make([]StrategyInsight, 0, len(s.strategies))
	for strategy, counter := range s.strategies {
		strategies = append(strategies, StrategyInsight{
			Strategy:     strategy,
			SuccessRate:  counter.rate(),
			Observations: counter.successes + counter.failures,
		})
	}
	sort.Slice(strategies, func(i, j int) bool {
		if strategies[i].SuccessRate != strategies[j].SuccessRate {
			return strategies[i].SuccessRate > strategies[j].SuccessRate
		}
		return strategies[i].Strategy < strategies[j].Strategy
	})

	return Insights{
		MostCommonPatterns:    clampTop(patterns, topN),
		MostReliableActions:   clampTop(reliable, topN),
		MostFailingActions:    clampTop(failing, topN),
		StrategyEffectiveness: strategies,
	}
}

func bestStrategy(counts map[Strategy]int) Strategy {
	var best Strategy
	bestCount := 0
	for strategy, count := range counts {
		if count > bestCount || (count == bestCount && strategy < best) {
			best = strategy
			bestCount = count
		}
	}
	return best
}

func clampTop[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
