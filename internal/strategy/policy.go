package strategy

import (
	"fmt"

	"TrendAllocator/internal/model"
)

// PolicyEntry maps one state to an allocation fraction.
type PolicyEntry struct {
	State      model.State
	Allocation float64
}

// PolicyTable is an ordered state -> allocation mapping. Lookups are exact.
type PolicyTable struct {
	entries []PolicyEntry
	index   map[model.State]float64
}

// NewPolicyTable builds a table, rejecting invalid or duplicate states.
func NewPolicyTable(entries []PolicyEntry) (*PolicyTable, error) {
	t := &PolicyTable{
		entries: make([]PolicyEntry, 0, len(entries)),
		index:   make(map[model.State]float64, len(entries)),
	}
	for i, e := range entries {
		if !e.State.Valid() {
			return nil, fmt.Errorf("policy entry %d: %v is not a permutation of short, medium, long", i, e.State)
		}
		if _, dup := t.index[e.State]; dup {
			return nil, fmt.Errorf("policy entry %d: duplicate state %v", i, e.State)
		}
		t.entries = append(t.entries, e)
		t.index[e.State] = e.Allocation
	}
	return t, nil
}

// DefaultPolicy is the reference allocation policy.
func DefaultPolicy() *PolicyTable {
	t, err := NewPolicyTable(DefaultPolicyEntries())
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultPolicyEntries returns the reference entries in display order.
func DefaultPolicyEntries() []PolicyEntry {
	return []PolicyEntry{
		// bullish alignment
		{model.State{model.Short, model.Medium, model.Long}, 0.7},
		{model.State{model.Medium, model.Short, model.Long}, 1.0},
		// long average in the middle
		{model.State{model.Short, model.Long, model.Medium}, 0.4},
		{model.State{model.Medium, model.Long, model.Short}, 0.0},
		// bearish alignment
		{model.State{model.Long, model.Short, model.Medium}, 0.4},
		{model.State{model.Long, model.Medium, model.Short}, 0.1},
	}
}

// Entries returns a copy of the entries in table order.
func (t *PolicyTable) Entries() []PolicyEntry {
	if t == nil {
		return nil
	}
	out := make([]PolicyEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *PolicyTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Lookup returns the allocation for state and whether it is mapped.
func (t *PolicyTable) Lookup(state model.State) (float64, bool) {
	if t == nil {
		return 0, false
	}
	alloc, ok := t.index[state]
	return alloc, ok
}

// Resolve returns the allocation for a classified state. Unmapped states and
// "no state" (ok == false) resolve to zero.
func (t *PolicyTable) Resolve(state model.State, ok bool) float64 {
	if !ok {
		return 0
	}
	if alloc, found := t.Lookup(state); found {
		return alloc
	}
	return 0
}
