package planner

import "github.com/zero-day-ai/strategos/internal/state"

// noParent marks the root node of a search tree.
const noParent = -1

// searchNode is one node of the search tree. Parent links are stored as
// arena indices rather than pointers so nodes cannot outlive or alias across
// planning calls; the whole arena is dropped when the call returns.
type searchNode struct {
	// state is the world state this node represents.
	state state.WorldState

	// hash is the normalized hash of state, cached at insertion.
	hash string

	// actionIdx is the index into the action catalog of the action that
	// produced this node, or noParent for the root.
	actionIdx int

	// parent is the arena index of the node this one was expanded from,
	// or noParent for the root.
	parent int

	// depth is the count of parent links back to the root.
	depth int

	// gScore is the cost accumulated from the root to this node.
	gScore float64

	// hScore is the heuristic estimate from this node to the goal.
	hScore float64

	// fScore is gScore + hScore, the frontier ordering key.
	fScore float64
}

// nodeArena owns every node created during a single planning call.
// It is never shared between calls.
type nodeArena struct {
	nodes []searchNode
}

func newNodeArena(capacity int) *nodeArena {
	return &nodeArena{nodes: make([]searchNode, 0, capacity)}
}

// add appends a node and returns its index.
func (a *nodeArena) add(n searchNode) int {
	a.nodes = append(a.nodes, n)
	return len(a.nodes) - 1
}

// at returns a pointer into the arena. The pointer is only valid until the
// next add, so callers must not hold it across insertions.
func (a *nodeArena) at(idx int) *searchNode {
	return &a.nodes[idx]
}

// reconstruct walks parent links from idx back to the root and returns the
// action catalog indices along the path in execution order.
func (a *nodeArena) reconstruct(idx int) []int {
	var reversed []int
	for cur := idx; cur != noParent; cur = a.nodes[cur].parent {
		if a.nodes[cur].actionIdx != noParent {
			reversed = append(reversed, a.nodes[cur].actionIdx)
		}
	}

	path := make([]int, len(reversed))
	for i, actionIdx := range reversed {
		path[len(reversed)-1-i] = actionIdx
	}
	return path
}
