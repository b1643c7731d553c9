// Package replan implements the adaptive replanner: when execution of a
// planned action fails, it classifies the failure into a fixed taxonomy,
// performs root-cause analysis against a snapshot of orchestration state,
// synthesizes ranked alternative continuations under several named
// strategies, attempts bounded automatic recovery, and tracks the historical
// effectiveness of each strategy to bias future confidence scores.
//
// The pipeline is driven through the Engine façade:
//
//	store := replan.NewLearningStore()
//	engine := replan.NewEngine(store)
//
//	failure, alternatives, err := engine.HandleFailure(ctx, action, execErr, failureCtx, sys)
//	// caller picks an alternative, optionally recovers first:
//	result := engine.Recover(ctx, failure, sys)
//	// ...executes the chosen alternative, then closes the loop:
//	engine.ReportOutcome(failure, chosen.Strategy, worked, elapsed)
//
// Every stage is synchronous and side-effect-free except for the explicit
// learning-store mutation and advisory event emission. The learning store is
// the only shared mutable state and is safe for concurrent use.
package replan
