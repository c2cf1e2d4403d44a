package collector

import (
	"context"

	"TrendAllocator/internal/model"
)

// Fetcher defines the interface for fetching daily price history. An empty
// slice with a nil error means the symbol/period yielded no data.
type Fetcher interface {
	FetchDailyBars(ctx context.Context, symbol string, lookbackDays int) ([]model.OHLCV, error)
	Name() string
}
