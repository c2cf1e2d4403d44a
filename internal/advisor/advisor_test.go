package advisor

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendAllocator/internal/calculator"
	"TrendAllocator/internal/collector"
	"TrendAllocator/internal/model"
	"TrendAllocator/internal/notifier"
	"TrendAllocator/internal/strategy"
)

var fixedNow = time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	name   string
	result notifier.Result
	got    []notifier.Message
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Notify(_ context.Context, msg notifier.Message) notifier.Result {
	r.got = append(r.got, msg)
	return r.result
}

func risingBars(n int) []model.OHLCV {
	start := time.Date(2025, 1, 1, 21, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Close: 50 + 0.5*float64(i)}
	}
	return bars
}

func newTestAdvisor(fetcher collector.Fetcher, policy *strategy.PolicyTable, notifiers ...notifier.Notifier) (*Advisor, *bytes.Buffer) {
	var out bytes.Buffer
	a := New("QLD", collector.NewCollector(fetcher, "QLD", 365), calculator.DefaultParams(), policy, zerolog.Nop())
	a.Out = &out
	a.Now = func() time.Time { return fixedNow }
	a.Notifiers = notifiers
	return a, &out
}

func TestRun_RisingMarket(t *testing.T) {
	bars := risingBars(220)
	mail := &recordingNotifier{name: "email", result: notifier.Sent("email")}
	a, out := newTestAdvisor(&collector.MockFetcher{DailyData: bars}, strategy.DefaultPolicy(), mail)

	outcome := a.Run(context.Background())
	rec := outcome.Recommendation

	assert.Equal(t, model.StatusOK, rec.Status)
	assert.Equal(t, model.State{model.Short, model.Medium, model.Long}, rec.State)
	assert.Equal(t, "SMA5 > EMA20 > SMA180", rec.StateLabel)
	assert.Equal(t, 0.7, rec.Allocation)
	assert.Equal(t, bars[219].Time, rec.Date)
	require.NotNil(t, rec.Snapshot)
	assert.True(t, rec.Snapshot.Complete())
	assert.NotEmpty(t, outcome.RunID)

	require.Len(t, mail.got, 1)
	assert.Equal(t, "Weekly QLD rebalancing alert (2025-08-08)", mail.got[0].Subject)
	assert.Contains(t, mail.got[0].Body, "-> SMA5 > EMA20 > SMA180")
	assert.Contains(t, mail.got[0].Body, "-> 70%")

	assert.Contains(t, out.String(), mail.got[0].Body)
	assert.Contains(t, out.String(), "delivery [email] sent")
}

func TestRun_EmptyHistory(t *testing.T) {
	mail := &recordingNotifier{name: "email", result: notifier.Sent("email")}
	a, out := newTestAdvisor(&collector.MockFetcher{DailyData: []model.OHLCV{}}, strategy.DefaultPolicy(), mail)

	outcome := a.Run(context.Background())
	rec := outcome.Recommendation

	assert.Equal(t, model.StatusDataUnavailable, rec.Status)
	assert.Equal(t, "data unavailable", rec.StateLabel)
	assert.Equal(t, 0.0, rec.Allocation)
	assert.Equal(t, fixedNow, rec.Date)
	assert.Nil(t, rec.Snapshot)
	assert.Contains(t, out.String(), "as of 2026-10-18")
	assert.Contains(t, out.String(), "-> data unavailable")
	assert.Contains(t, out.String(), "-> 0%")
	assert.Len(t, mail.got, 1)
}

func TestRun_FetchErrorIsNotFatal(t *testing.T) {
	a, _ := newTestAdvisor(&collector.MockFetcher{Err: errors.New("timeout")}, strategy.DefaultPolicy())
	rec := a.Run(context.Background()).Recommendation
	assert.Equal(t, model.StatusDataUnavailable, rec.Status)
	assert.Equal(t, fixedNow, rec.Date)
}

func TestRun_InsufficientHistory(t *testing.T) {
	bars := risingBars(120)
	a, out := newTestAdvisor(&collector.MockFetcher{DailyData: bars}, strategy.DefaultPolicy())

	rec := a.Run(context.Background()).Recommendation
	assert.Equal(t, model.StatusInsufficientData, rec.Status)
	assert.Equal(t, "insufficient data", rec.StateLabel)
	assert.Equal(t, 0.0, rec.Allocation)
	assert.Equal(t, bars[119].Time, rec.Date)
	assert.Contains(t, out.String(), "delivery: no channels configured")
}

func TestRun_StateMissingFromPolicy(t *testing.T) {
	policy, err := strategy.NewPolicyTable([]strategy.PolicyEntry{
		{State: model.State{model.Long, model.Medium, model.Short}, Allocation: 0.1},
	})
	require.NoError(t, err)
	a, out := newTestAdvisor(&collector.MockFetcher{DailyData: risingBars(220)}, policy)

	rec := a.Run(context.Background()).Recommendation
	assert.Equal(t, model.StatusOK, rec.Status)
	assert.Equal(t, "SMA5 > EMA20 > SMA180", rec.StateLabel)
	assert.Equal(t, 0.0, rec.Allocation)
	assert.Contains(t, out.String(), "-> 0%")
}

func TestRun_EmptyRecipientSkipsMail(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	mail := notifier.NewEmailNotifier("127.0.0.1", port, "bot@example.com", "secret", nil, time.Second)
	a, out := newTestAdvisor(&collector.MockFetcher{DailyData: risingBars(220)}, strategy.DefaultPolicy(), mail)

	outcome := a.Run(context.Background())
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, notifier.StatusSkipped, outcome.Results[0].Status)
	assert.Contains(t, out.String(), "Hello,")
	assert.Contains(t, out.String(), "delivery [email] skipped: no recipient configured")
}

func TestRun_DeliveryFailureIsNotFatal(t *testing.T) {
	failing := &recordingNotifier{name: "email", result: notifier.Failed("email", errors.New("535 auth failed"))}
	chat := &recordingNotifier{name: "telegram", result: notifier.Sent("telegram")}
	a, out := newTestAdvisor(&collector.MockFetcher{DailyData: risingBars(220)}, strategy.DefaultPolicy(), failing, chat)

	outcome := a.Run(context.Background())
	require.Len(t, outcome.Results, 2)
	assert.Equal(t, notifier.StatusFailed, outcome.Results[0].Status)
	assert.Equal(t, notifier.StatusSent, outcome.Results[1].Status)
	assert.Len(t, chat.got, 1, "a failed channel does not stop the next one")
	assert.Contains(t, out.String(), "delivery [email] failed: 535 auth failed")
}

func TestRun_DryRun(t *testing.T) {
	mail := &recordingNotifier{name: "email", result: notifier.Sent("email")}
	a, out := newTestAdvisor(&collector.MockFetcher{DailyData: risingBars(220)}, strategy.DefaultPolicy(), mail)
	a.DryRun = true

	outcome := a.Run(context.Background())
	assert.Empty(t, mail.got)
	require.Len(t, outcome.Results, 1)
	assert.Equal(t, "dry run", outcome.Results[0].Reason)
	assert.Contains(t, out.String(), "delivery [email] skipped: dry run")
}
