package strategy

import (
	"fmt"
	"slices"
	"strings"

	"TrendAllocator/internal/model"
)

// Classify ranks the snapshot's readings by value, highest first. It returns
// false when any reading is undefined. Equal values keep the fixed order
// short, medium, long.
func Classify(snap model.IndicatorSnapshot) (model.State, bool) {
	if !snap.Complete() {
		return model.State{}, false
	}

	type ranked struct {
		ind   model.Indicator
		value float64
	}
	rs := make([]ranked, 0, len(model.Indicators))
	for _, ind := range model.Indicators {
		rs = append(rs, ranked{ind: ind, value: snap.Get(ind).Value})
	}
	slices.SortStableFunc(rs, func(a, b ranked) int {
		switch {
		case a.value > b.value:
			return -1
		case a.value < b.value:
			return 1
		default:
			return 0
		}
	})

	var state model.State
	for i, r := range rs {
		state[i] = r.ind
	}
	return state, true
}

// ParseState parses a rendered state such as "SMA5 > EMA20 > SMA180". Each
// part may be a display label or an indicator name.
func ParseState(label string, labels model.Labels) (model.State, error) {
	parts := strings.Split(label, strings.TrimSpace(model.StateSeparator))
	if len(parts) != 3 {
		return model.State{}, fmt.Errorf("state %q: want 3 parts, got %d", label, len(parts))
	}
	var state model.State
	for i, part := range parts {
		ind, err := parseIndicator(strings.TrimSpace(part), labels)
		if err != nil {
			return model.State{}, fmt.Errorf("state %q: %w", label, err)
		}
		state[i] = ind
	}
	if !state.Valid() {
		return model.State{}, fmt.Errorf("state %q: indicators must be distinct", label)
	}
	return state, nil
}

func parseIndicator(s string, labels model.Labels) (model.Indicator, error) {
	for _, ind := range model.Indicators {
		if labels.Of(ind) == s {
			return ind, nil
		}
	}
	return model.ParseIndicator(strings.ToLower(s))
}
