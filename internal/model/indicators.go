package model

import (
	"fmt"
	"time"
)

// Indicator identifies one of the three smoothed series.
type Indicator int

const (
	Short Indicator = iota
	Medium
	Long
)

// Indicators lists the indicators in their fixed priority order.
var Indicators = [3]Indicator{Short, Medium, Long}

func (i Indicator) String() string {
	switch i {
	case Short:
		return "short"
	case Medium:
		return "medium"
	case Long:
		return "long"
	default:
		return fmt.Sprintf("indicator(%d)", int(i))
	}
}

// ParseIndicator maps "short", "medium" or "long" to an Indicator.
func ParseIndicator(s string) (Indicator, error) {
	for _, ind := range Indicators {
		if ind.String() == s {
			return ind, nil
		}
	}
	return 0, fmt.Errorf("unknown indicator %q", s)
}

// Reading is an indicator value that may not be computable yet.
type Reading struct {
	Value float64
	Valid bool
}

// IndicatorSnapshot holds the three readings computed for one date.
type IndicatorSnapshot struct {
	Date   time.Time
	Close  float64
	Short  Reading
	Medium Reading
	Long   Reading
}

// Get returns the reading for the given indicator.
func (s IndicatorSnapshot) Get(ind Indicator) Reading {
	switch ind {
	case Short:
		return s.Short
	case Medium:
		return s.Medium
	case Long:
		return s.Long
	default:
		return Reading{}
	}
}

// Complete reports whether all three readings are defined.
func (s IndicatorSnapshot) Complete() bool {
	return s.Short.Valid && s.Medium.Valid && s.Long.Valid
}
