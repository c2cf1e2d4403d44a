package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"TrendAllocator/internal/model"
)

const yahooUserAgent = "Mozilla/5.0"

// YahooFetcher implements Fetcher using Yahoo Finance chart data. Closes are
// split and dividend adjusted; bar times are in the exchange time zone.
type YahooFetcher struct {
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
	Backend   *finance.BackendConfiguration
	now       func() time.Time
}

// NewYahooFetcher creates a Yahoo Finance fetcher with its own backend, so
// the proxy and User-Agent do not leak into other finance-go users.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
			"NDX":    "^NDX",
		},
		Backend: &finance.BackendConfiguration{
			Type: finance.YFinBackend,
			URL:  finance.YFinURL,
			HTTPClient: &http.Client{
				Timeout:   timeout,
				Transport: &userAgentTransport{base: transport, agent: yahooUserAgent},
			},
		},
		now: time.Now,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, lookbackDays int) (bars []model.OHLCV, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The chart parser indexes the first result without a bounds check.
	defer func() {
		if r := recover(); r != nil {
			bars, err = nil, fmt.Errorf("yahoo chart %s: malformed response: %v", symbol, r)
		}
	}()

	end := f.now()
	start := end.AddDate(0, 0, -lookbackDays)
	params := &chart.Params{
		Symbol:   f.yahooSymbol(symbol),
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	params.Context = &ctx

	iter := chart.Client{B: f.Backend}.Get(params)
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	loc := exchangeLocation(iter.Meta())
	for iter.Next() {
		if bar, ok := convertBar(iter.Bar(), loc); ok {
			bars = append(bars, bar)
		}
	}
	return bars, nil
}

// exchangeLocation resolves the exchange time zone from chart metadata,
// falling back to the fixed GMT offset and then UTC.
func exchangeLocation(meta finance.ChartMeta) *time.Location {
	if meta.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(meta.ExchangeTimezoneName); err == nil {
			return loc
		}
	}
	if meta.Gmtoffset != 0 {
		return time.FixedZone(meta.Timezone, meta.Gmtoffset)
	}
	return time.UTC
}

// convertBar maps a chart bar to OHLCV, preferring the adjusted close.
// Null bars (holidays etc.) are skipped.
func convertBar(b *finance.ChartBar, loc *time.Location) (model.OHLCV, bool) {
	if b == nil {
		return model.OHLCV{}, false
	}
	closePrice := b.AdjClose
	if closePrice.IsZero() {
		closePrice = b.Close
	}
	if !closePrice.IsPositive() {
		return model.OHLCV{}, false
	}
	return model.OHLCV{
		Time:   time.Unix(int64(b.Timestamp), 0).In(loc),
		Open:   b.Open.InexactFloat64(),
		High:   b.High.InexactFloat64(),
		Low:    b.Low.InexactFloat64(),
		Close:  closePrice.InexactFloat64(),
		Volume: float64(b.Volume),
	}, true
}

// userAgentTransport sets a browser User-Agent on requests that carry none.
// Yahoo throttles Go's default agent.
type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(req)
}
