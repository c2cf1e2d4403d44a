package model

import "time"

// OHLCV represents a single candlestick bar. Close carries the split and
// dividend adjusted close when the provider supports it.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PricePoint is one daily close in a chronological history.
type PricePoint struct {
	Date  time.Time
	Close float64
}

// PriceHistory holds the normalised close series for a symbol.
type PriceHistory struct {
	Symbol    string
	Points    []PricePoint
	FetchedAt time.Time
}

// Latest returns the most recent point, or false when the history is empty.
func (h *PriceHistory) Latest() (PricePoint, bool) {
	if len(h.Points) == 0 {
		return PricePoint{}, false
	}
	return h.Points[len(h.Points)-1], true
}
