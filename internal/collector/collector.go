package collector

import (
	"context"
	"fmt"
	"sort"
	"time"

	"TrendAllocator/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price     float64
	DailyData []model.OHLCV
	Err       error
	Calls     int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(_ context.Context, _ string, days int) ([]model.OHLCV, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.DailyData != nil {
		return m.DailyData, nil
	}
	return generateMockBars(m.Price, days), nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	if basePrice <= 0 {
		return nil
	}
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector fetches and normalises the price history of one symbol.
type Collector struct {
	Fetcher      Fetcher
	Symbol       string
	LookbackDays int
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string, lookbackDays int) *Collector {
	return &Collector{Fetcher: fetcher, Symbol: symbol, LookbackDays: lookbackDays}
}

// Collect fetches daily bars and returns a chronological close series.
// An empty history is not an error.
func (c *Collector) Collect(ctx context.Context) (*model.PriceHistory, error) {
	bars, err := c.Fetcher.FetchDailyBars(ctx, c.Symbol, c.LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("fetch daily bars from %s: %w", c.Fetcher.Name(), err)
	}
	return &model.PriceHistory{
		Symbol:    c.Symbol,
		Points:    Normalize(bars),
		FetchedAt: time.Now(),
	}, nil
}

// Normalize sorts bars chronologically, drops non-positive closes and keeps
// the last bar of each calendar date.
func Normalize(bars []model.OHLCV) []model.PricePoint {
	sorted := make([]model.OHLCV, 0, len(bars))
	for _, b := range bars {
		if b.Close > 0 {
			sorted = append(sorted, b)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	points := make([]model.PricePoint, 0, len(sorted))
	for _, b := range sorted {
		p := model.PricePoint{Date: b.Time, Close: b.Close}
		if n := len(points); n > 0 && sameDay(points[n-1].Date, b.Time) {
			points[n-1] = p
			continue
		}
		points = append(points, p)
	}
	return points
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
