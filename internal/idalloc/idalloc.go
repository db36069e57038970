// Package idalloc issues strictly increasing identifiers per sequence.
package idalloc

import "sync"

// Sequence names an independent identifier counter.
type Sequence string

const (
	SequenceGroup      Sequence = "group"
	SequenceExpense    Sequence = "expense"
	SequenceSettlement Sequence = "settlement"
)

// Allocator hands out identifiers starting at 1 for every sequence.
// The zero value is ready to use.
type Allocator struct {
	mu   sync.Mutex
	last map[Sequence]uint64
}

// Next returns a fresh identifier for seq.
func (a *Allocator) Next(seq Sequence) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.last == nil {
		a.last = make(map[Sequence]uint64)
	}
	a.last[seq]++
	return a.last[seq]
}

// Last returns the most recently issued identifier for seq, or 0.
func (a *Allocator) Last(seq Sequence) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last[seq]
}

// Snapshot returns a copy of every counter.
func (a *Allocator) Snapshot() map[Sequence]uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[Sequence]uint64, len(a.last))
	for k, v := range a.last {
		out[k] = v
	}
	return out
}

// Restore replaces every counter with the values in snap.
func (a *Allocator) Restore(snap map[Sequence]uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.last = make(map[Sequence]uint64, len(snap))
	for k, v := range snap {
		a.last[k] = v
	}
}
