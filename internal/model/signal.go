package model

import (
	"strings"
	"time"
)

// State is the descending-value ordering of the three indicators.
type State [3]Indicator

// Valid reports whether the state is a permutation of all three indicators.
func (s State) Valid() bool {
	var seen [3]bool
	for _, ind := range s {
		if ind < Short || ind > Long || seen[ind] {
			return false
		}
		seen[ind] = true
	}
	return true
}

// Label renders the state with the given display labels, e.g. "SMA5 > EMA20 > SMA180".
func (s State) Label(labels Labels) string {
	parts := make([]string, len(s))
	for i, ind := range s {
		parts[i] = labels.Of(ind)
	}
	return strings.Join(parts, StateSeparator)
}

func (s State) String() string {
	parts := make([]string, len(s))
	for i, ind := range s {
		parts[i] = ind.String()
	}
	return strings.Join(parts, StateSeparator)
}

// StateSeparator joins indicator labels in a rendered state.
const StateSeparator = " > "

// Labels holds the display label of each indicator, indexed by Indicator.
type Labels [3]string

// Of returns the label for ind, falling back to its name.
func (l Labels) Of(ind Indicator) string {
	if ind < Short || ind > Long || l[ind] == "" {
		return ind.String()
	}
	return l[ind]
}

// RecommendationStatus tells how a recommendation was reached.
type RecommendationStatus string

const (
	StatusOK               RecommendationStatus = "ok"
	StatusDataUnavailable  RecommendationStatus = "data_unavailable"
	StatusInsufficientData RecommendationStatus = "insufficient_data"
)

// Recommendation is the output of one run. It is never persisted.
type Recommendation struct {
	Status     RecommendationStatus
	State      State // zero value unless Status is StatusOK
	StateLabel string
	Allocation float64
	Date       time.Time
	Snapshot   *IndicatorSnapshot
}
