package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendAllocator/internal/model"
)

var testLabels = model.Labels{"SMA5", "EMA20", "SMA180"}

func snapshot(short, medium, long float64) model.IndicatorSnapshot {
	return model.IndicatorSnapshot{
		Short:  model.Reading{Value: short, Valid: true},
		Medium: model.Reading{Value: medium, Valid: true},
		Long:   model.Reading{Value: long, Valid: true},
	}
}

func TestClassify_UndefinedReading(t *testing.T) {
	for _, ind := range model.Indicators {
		snap := snapshot(3, 2, 1)
		switch ind {
		case model.Short:
			snap.Short.Valid = false
		case model.Medium:
			snap.Medium.Valid = false
		case model.Long:
			snap.Long.Valid = false
		}
		state, ok := Classify(snap)
		assert.False(t, ok, "missing %s", ind)
		assert.Equal(t, 0.0, DefaultPolicy().Resolve(state, ok))
	}
}

func TestClassify_AllPermutations(t *testing.T) {
	tests := []struct {
		short, medium, long float64
		label               string
		alloc               float64
	}{
		{3, 2, 1, "SMA5 > EMA20 > SMA180", 0.7},
		{2, 3, 1, "EMA20 > SMA5 > SMA180", 1.0},
		{3, 1, 2, "SMA5 > SMA180 > EMA20", 0.4},
		{1, 3, 2, "EMA20 > SMA180 > SMA5", 0.0},
		{2, 1, 3, "SMA180 > SMA5 > EMA20", 0.4},
		{1, 2, 3, "SMA180 > EMA20 > SMA5", 0.1},
	}
	policy := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			state, ok := Classify(snapshot(tt.short, tt.medium, tt.long))
			require.True(t, ok)
			assert.True(t, state.Valid())
			assert.Equal(t, tt.label, state.Label(testLabels))

			_, mapped := policy.Lookup(state)
			assert.True(t, mapped)
			assert.Equal(t, tt.alloc, policy.Resolve(state, ok))

			parsed, err := ParseState(state.Label(testLabels), testLabels)
			require.NoError(t, err)
			assert.Equal(t, state, parsed)
		})
	}
}

func TestClassify_TieBreakIsFixedPriority(t *testing.T) {
	state, ok := Classify(snapshot(5, 5, 5))
	require.True(t, ok)
	assert.Equal(t, model.State{model.Short, model.Medium, model.Long}, state)

	state, ok = Classify(snapshot(1, 5, 5))
	require.True(t, ok)
	assert.Equal(t, model.State{model.Medium, model.Long, model.Short}, state)

	state, ok = Classify(snapshot(5, 1, 5))
	require.True(t, ok)
	assert.Equal(t, model.State{model.Short, model.Long, model.Medium}, state)
}

func TestResolve_EmptyOrNonMatchingTable(t *testing.T) {
	state := model.State{model.Short, model.Medium, model.Long}

	empty, err := NewPolicyTable(nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, empty.Resolve(state, true))

	partial, err := NewPolicyTable([]PolicyEntry{
		{State: model.State{model.Long, model.Medium, model.Short}, Allocation: 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, partial.Resolve(state, true))
	assert.Equal(t, 0.0, partial.Resolve(model.State{}, false))

	var nilTable *PolicyTable
	assert.Equal(t, 0.0, nilTable.Resolve(state, true))
	assert.Equal(t, 0, nilTable.Len())
}

func TestNewPolicyTable_Rejects(t *testing.T) {
	_, err := NewPolicyTable([]PolicyEntry{
		{State: model.State{model.Short, model.Short, model.Long}, Allocation: 1},
	})
	assert.Error(t, err)

	_, err = NewPolicyTable([]PolicyEntry{
		{State: model.State{model.Short, model.Medium, model.Long}, Allocation: 1},
		{State: model.State{model.Short, model.Medium, model.Long}, Allocation: 0.5},
	})
	assert.Error(t, err)
}

func TestDefaultPolicy_OrderAndCoverage(t *testing.T) {
	policy := DefaultPolicy()
	entries := policy.Entries()
	require.Len(t, entries, 6)
	assert.Equal(t, "SMA5 > EMA20 > SMA180", entries[0].State.Label(testLabels))
	assert.Equal(t, "SMA180 > EMA20 > SMA5", entries[5].State.Label(testLabels))

	// Entries returns a copy.
	entries[0].Allocation = 99
	alloc, _ := policy.Lookup(entries[0].State)
	assert.Equal(t, 0.7, alloc)
}

func TestParseState(t *testing.T) {
	state, err := ParseState("short > long > medium", testLabels)
	require.NoError(t, err)
	assert.Equal(t, model.State{model.Short, model.Long, model.Medium}, state)

	_, err = ParseState("SMA5 > EMA20", testLabels)
	assert.Error(t, err)
	_, err = ParseState("SMA5 > SMA5 > SMA180", testLabels)
	assert.Error(t, err)
	_, err = ParseState("SMA5 > RSI14 > SMA180", testLabels)
	assert.Error(t, err)
}
