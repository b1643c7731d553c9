package planner

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zero-day-ai/strategos/internal/config"
	"github.com/zero-day-ai/strategos/internal/state"
	"github.com/zero-day-ai/strategos/internal/types"
)

// DefaultMaxDepth is the default bound on search-tree depth.
const DefaultMaxDepth = 50

// Planner searches for a minimum-cost action sequence from a current state
// to a (possibly partial) goal state using A* with an admissible heuristic.
//
// A Planner is stateless across calls: every call to Plan owns its own
// frontier, closed set, and node arena, so a single Planner may be used from
// multiple goroutines concurrently.
type Planner struct {
	maxDepth int
	logger   *slog.Logger
	tracer   trace.Tracer
}

// PlannerOption is a functional option for configuring a Planner.
type PlannerOption func(*Planner)

// WithMaxDepth sets the maximum search-tree depth.
// Default: 50.
func WithMaxDepth(depth int) PlannerOption {
	return func(p *Planner) {
		if depth >= 0 {
			p.maxDepth = depth
		}
	}
}

// WithLogger sets the logger for planner operations.
func WithLogger(logger *slog.Logger) PlannerOption {
	return func(p *Planner) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer sets the OpenTelemetry tracer for planning spans.
func WithTracer(tracer trace.Tracer) PlannerOption {
	return func(p *Planner) {
		if tracer != nil {
			p.tracer = tracer
		}
	}
}

// New creates a new Planner with the given options.
func New(opts ...PlannerOption) *Planner {
	p := &Planner{
		maxDepth: DefaultMaxDepth,
		logger:   slog.Default(),
		tracer:   noop.NewTracerProvider().Tracer("planner"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// NewFromConfig creates a Planner from a loaded configuration section.
// Explicit options are applied after the configuration, so they win.
func NewFromConfig(cfg config.PlannerConfig, opts ...PlannerOption) *Planner {
	base := []PlannerOption{WithMaxDepth(cfg.MaxDepth)}
	return New(append(base, opts...)...)
}

// Plan searches for the cheapest action sequence from current to a state
// satisfying goal.
//
// Returns (nil, nil) when no plan exists within the depth and iteration
// bounds: "no plan found" is a normal outcome, not an error. An error is
// returned only for invalid inputs (such as a non-positive action cost) or a
// cancelled context.
//
// The search expands at most maxDepth × len(actions) nodes. If the bound is
// reached or the frontier is exhausted without satisfying the goal, the
// search reports not-found.
func (p *Planner) Plan(ctx context.Context, current, goal state.WorldState, actions []state.Action) (*Plan, error) {
	ctx, span := p.tracer.Start(ctx, "planner.Plan", trace.WithAttributes(
		attribute.Int("planner.actions", len(actions)),
		attribute.Int("planner.max_depth", p.maxDepth),
	))
	defer span.End()

	for _, a := range actions {
		if a.Cost <= 0 {
			return nil, types.NewError(types.PLANNER_INVALID_INPUT,
				"action "+a.Name+" has non-positive cost")
		}
	}

	// Immediate success: the current state already satisfies the goal.
	if current.Satisfies(goal) {
		return &Plan{
			ID:        types.NewID(),
			Actions:   []state.Action{},
			TotalCost: 0,
			CreatedAt: time.Now(),
		}, nil
	}

	maxIterations := p.maxDepth * len(actions)
	if maxIterations == 0 {
		// Depth zero or an empty catalog cannot reach an unsatisfied goal.
		return nil, nil
	}

	arena := newNodeArena(64)
	open := newFrontier()
	closed := make(map[string]bool)
	// best maps a state hash to the cheapest node seen for that state, so a
	// cheaper path can replace a node already in the frontier.
	best := make(map[string]int)

	rootIdx := arena.add(searchNode{
		state:     current,
		hash:      current.Hash(),
		actionIdx: noParent,
		parent:    noParent,
		depth:     0,
		gScore:    0,
		hScore:    state.Heuristic(current, goal),
		fScore:    state.Heuristic(current, goal),
	})
	best[arena.at(rootIdx).hash] = rootIdx
	open.push(rootIdx, arena.at(rootIdx).fScore)

	iterations := 0
	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		iterations++
		if iterations > maxIterations {
			p.logger.Debug("planner iteration bound exceeded",
				"iterations", iterations, "max_iterations", maxIterations)
			return nil, nil
		}

		entry := open.pop()
		node := arena.at(entry.nodeIdx)

		if closed[node.hash] {
			continue
		}
		// A cheaper node for this state superseded the entry after it was
		// pushed. Skip the stale entry.
		if best[node.hash] != entry.nodeIdx {
			continue
		}

		if node.state.Satisfies(goal) {
			return p.buildPlan(arena, entry.nodeIdx, actions), nil
		}

		closed[node.hash] = true

		if node.depth >= p.maxDepth {
			continue
		}

		nodeState := node.state
		nodeG := node.gScore
		nodeDepth := node.depth

		for actionIdx, action := range actions {
			if !action.Applicable(nodeState) {
				continue
			}

			nextState := action.Apply(nodeState)
			nextHash := nextState.Hash()
			if closed[nextHash] {
				continue
			}

			nextG := nodeG + action.Cost
			if existingIdx, ok := best[nextHash]; ok {
				if arena.at(existingIdx).gScore <= nextG {
					continue
				}
			}

			nextH := state.Heuristic(nextState, goal)
			nextIdx := arena.add(searchNode{
				state:     nextState,
				hash:      nextHash,
				actionIdx: actionIdx,
				parent:    entry.nodeIdx,
				depth:     nodeDepth + 1,
				gScore:    nextG,
				hScore:    nextH,
				fScore:    nextG + nextH,
			})
			best[nextHash] = nextIdx
			open.push(nextIdx, nextG+nextH)
		}
	}

	// Frontier exhausted without reaching the goal.
	return nil, nil
}

// FindOptimalPath plans and then validates the result as a defensive check
// against search defects. A plan that fails validation is treated as
// not-found rather than returned unchecked.
func (p *Planner) FindOptimalPath(ctx context.Context, current, goal state.WorldState, actions []state.Action) (*Plan, error) {
	plan, err := p.Plan(ctx, current, goal, actions)
	if err != nil || plan == nil {
		return plan, err
	}

	if result := ValidatePlan(plan, current, goal); !result.Valid {
		p.logger.Warn("discarding plan that failed validation",
			"plan_id", plan.ID, "reason", result.Error)
		return nil, nil
	}

	return plan, nil
}

// buildPlan reconstructs the action sequence by walking parent links from
// the goal node to the root.
func (p *Planner) buildPlan(arena *nodeArena, goalIdx int, actions []state.Action) *Plan {
	path := arena.reconstruct(goalIdx)

	planActions := make([]state.Action, len(path))
	for i, actionIdx := range path {
		planActions[i] = actions[actionIdx]
	}

	return &Plan{
		ID:        types.NewID(),
		Actions:   planActions,
		TotalCost: arena.at(goalIdx).gScore,
		CreatedAt: time.Now(),
	}
}
