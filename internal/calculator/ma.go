package calculator

import (
	"errors"
	"fmt"

	"github.com/markcheno/go-talib"

	"TrendAllocator/internal/model"
)

// Params configures the three averages.
type Params struct {
	ShortWindow int // simple average window
	MediumSpan  int // exponential average span, alpha = 1/(1+span)
	LongWindow  int // simple average window
}

// DefaultParams returns SMA5 / EMA20 / SMA180.
func DefaultParams() Params {
	return Params{ShortWindow: 5, MediumSpan: 20, LongWindow: 180}
}

// Validate checks that every window is positive.
func (p Params) Validate() error {
	if p.ShortWindow <= 0 || p.MediumSpan <= 0 || p.LongWindow <= 0 {
		return errors.New("indicator windows must be positive")
	}
	return nil
}

// Labels returns the display labels, e.g. SMA5, EMA20, SMA180.
func (p Params) Labels() model.Labels {
	return model.Labels{
		model.Short:  fmt.Sprintf("SMA%d", p.ShortWindow),
		model.Medium: fmt.Sprintf("EMA%d", p.MediumSpan),
		model.Long:   fmt.Sprintf("SMA%d", p.LongWindow),
	}
}

// CalculateSMA computes the trailing simple moving average series. Entries
// before the first full window are invalid.
func CalculateSMA(prices []float64, period int) []model.Reading {
	out := make([]model.Reading, len(prices))
	if period <= 0 || len(prices) < period {
		return out
	}
	sma := talib.Sma(prices, period)
	for i := period - 1; i < len(prices); i++ {
		out[i] = model.Reading{Value: sma[i], Valid: true}
	}
	return out
}

// CalculateEMA computes the recursive exponential average seeded with the
// first price: ema[t] = ema[t-1] + alpha*(price[t]-ema[t-1]), alpha = 1/(1+span).
func CalculateEMA(prices []float64, span int) []model.Reading {
	out := make([]model.Reading, len(prices))
	if span <= 0 || len(prices) == 0 {
		return out
	}
	alpha := 1.0 / (1.0 + float64(span))
	ema := prices[0]
	out[0] = model.Reading{Value: ema, Valid: true}
	for i := 1; i < len(prices); i++ {
		ema += alpha * (prices[i] - ema)
		out[i] = model.Reading{Value: ema, Valid: true}
	}
	return out
}

// Compute derives one snapshot per price point.
func Compute(points []model.PricePoint, p Params) []model.IndicatorSnapshot {
	closes := extractCloses(points)
	short := CalculateSMA(closes, p.ShortWindow)
	medium := CalculateEMA(closes, p.MediumSpan)
	long := CalculateSMA(closes, p.LongWindow)

	snaps := make([]model.IndicatorSnapshot, len(points))
	for i, pt := range points {
		snaps[i] = model.IndicatorSnapshot{
			Date:   pt.Date,
			Close:  pt.Close,
			Short:  short[i],
			Medium: medium[i],
			Long:   long[i],
		}
	}
	return snaps
}

// LatestComplete returns the most recent snapshot with all three readings defined.
func LatestComplete(snaps []model.IndicatorSnapshot) (model.IndicatorSnapshot, bool) {
	for i := len(snaps) - 1; i >= 0; i-- {
		if snaps[i].Complete() {
			return snaps[i], true
		}
	}
	return model.IndicatorSnapshot{}, false
}

func extractCloses(points []model.PricePoint) []float64 {
	closes := make([]float64, len(points))
	for i, p := range points {
		closes[i] = p.Close
	}
	return closes
}
