package planner

import "container/heap"

// frontierEntry is one open-list entry. Entries are never removed in place;
// a cheaper path to the same state pushes a fresh entry and the stale one is
// skipped at pop time (lazy deletion).
type frontierEntry struct {
	nodeIdx int
	fScore  float64
	seq     uint64
}

// frontier is a min-heap over fScore. Ties break on insertion order (seq) so
// that repeated searches over the same inputs expand nodes in the same order
// and planning stays deterministic.
type frontier struct {
	entries []frontierEntry
	nextSeq uint64
}

func newFrontier() *frontier {
	return &frontier{entries: make([]frontierEntry, 0, 64)}
}

func (f *frontier) Len() int { return len(f.entries) }

func (f *frontier) Less(i, j int) bool {
	if f.entries[i].fScore != f.entries[j].fScore {
		return f.entries[i].fScore < f.entries[j].fScore
	}
	return f.entries[i].seq < f.entries[j].seq
}

func (f *frontier) Swap(i, j int) {
	f.entries[i], f.entries[j] = f.entries[j], f.entries[i]
}

func (f *frontier) Push(x any) {
	f.entries = append(f.entries, x.(frontierEntry))
}

func (f *frontier) Pop() any {
	old := f.entries
	n := len(old)
	entry := old[n-1]
	f.entries = old[:n-1]
	return entry
}

// push adds a node to the open list with the next sequence number.
func (f *frontier) push(nodeIdx int, fScore float64) {
	heap.Push(f, frontierEntry{nodeIdx: nodeIdx, fScore: fScore, seq: f.nextSeq})
	f.nextSeq++
}

// pop removes and returns the entry with the lowest fScore.
func (f *frontier) pop() frontierEntry {
	return heap.Pop(f).(frontierEntry)
}
