package advisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"TrendAllocator/internal/calculator"
	"TrendAllocator/internal/collector"
	"TrendAllocator/internal/metrics"
	"TrendAllocator/internal/model"
	"TrendAllocator/internal/notifier"
	"TrendAllocator/internal/strategy"
)

// Advisor runs the fetch, classify, format and notify pipeline for one ticker.
type Advisor struct {
	Ticker    string
	Collector *collector.Collector
	Params    calculator.Params
	Policy    *strategy.PolicyTable
	Notifiers []notifier.Notifier
	Metrics   *metrics.Pusher
	DryRun    bool

	Out io.Writer
	Log zerolog.Logger
	Now func() time.Time
}

// Outcome is everything one run produced.
type Outcome struct {
	RunID          string
	Recommendation *model.Recommendation
	Message        notifier.Message
	Results        []notifier.Result
}

// New creates an Advisor writing its report to stdout.
func New(ticker string, col *collector.Collector, params calculator.Params, policy *strategy.PolicyTable, log zerolog.Logger) *Advisor {
	return &Advisor{
		Ticker:    ticker,
		Collector: col,
		Params:    params,
		Policy:    policy,
		Out:       os.Stdout,
		Log:       log,
		Now:       time.Now,
	}
}

// Run executes one complete run. It never fails: data problems become
// sentinel recommendations and delivery problems become failed results.
func (a *Advisor) Run(ctx context.Context) *Outcome {
	runID := uuid.NewString()
	log := a.Log.With().Str("run_id", runID).Str("ticker", a.Ticker).Logger()
	log.Info().Msg("run started")

	rec := a.Recommend(ctx, log)
	msg := notifier.Compose(a.Ticker, rec, a.Policy, a.Params.Labels())

	a.printReport(msg)
	results := a.deliver(ctx, log, msg)

	if err := a.Metrics.Push(ctx, a.Ticker, rec, results); err != nil {
		log.Warn().Err(err).Msg("metrics push failed")
	}

	log.Info().
		Str("status", string(rec.Status)).
		Str("state", rec.StateLabel).
		Float64("allocation", rec.Allocation).
		Str("date", rec.Date.Format("2006-01-02")).
		Msg("run finished")

	return &Outcome{
		RunID:          runID,
		Recommendation: rec,
		Message:        msg,
		Results:        results,
	}
}

// Recommend fetches history and resolves the current allocation.
func (a *Advisor) Recommend(ctx context.Context, log zerolog.Logger) *model.Recommendation {
	log.Info().Str("source", a.Collector.Fetcher.Name()).Int("lookback_days", a.Collector.LookbackDays).Msg("downloading price history")
	hist, err := a.Collector.Collect(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("price history download failed")
		return a.unavailable()
	}
	latest, ok := hist.Latest()
	if !ok {
		log.Warn().Msg("price history is empty")
		return a.unavailable()
	}

	snaps := calculator.Compute(hist.Points, a.Params)
	snap, ok := calculator.LatestComplete(snaps)
	if !ok {
		log.Warn().Int("points", len(hist.Points)).Int("required", a.Params.LongWindow).Msg("not enough history for all averages")
		return &model.Recommendation{
			Status:     model.StatusInsufficientData,
			StateLabel: notifier.LabelInsufficientData,
			Date:       latest.Date,
		}
	}

	state, ok := strategy.Classify(snap)
	label := state.Label(a.Params.Labels())
	if _, mapped := a.Policy.Lookup(state); !mapped {
		log.Warn().Str("state", label).Msg("state has no policy entry, allocating 0")
	}
	log.Debug().
		Float64("short", snap.Short.Value).
		Float64("medium", snap.Medium.Value).
		Float64("long", snap.Long.Value).
		Msg("latest complete snapshot")

	return &model.Recommendation{
		Status:     model.StatusOK,
		State:      state,
		StateLabel: label,
		Allocation: a.Policy.Resolve(state, ok),
		Date:       snap.Date,
		Snapshot:   &snap,
	}
}

func (a *Advisor) unavailable() *model.Recommendation {
	return &model.Recommendation{
		Status:     model.StatusDataUnavailable,
		StateLabel: notifier.LabelDataUnavailable,
		Date:       a.now(),
	}
}

func (a *Advisor) deliver(ctx context.Context, log zerolog.Logger, msg notifier.Message) []notifier.Result {
	results := make([]notifier.Result, 0, len(a.Notifiers))
	for _, n := range a.Notifiers {
		var res notifier.Result
		if a.DryRun {
			res = notifier.Skipped(n.Name(), "dry run")
		} else {
			log.Info().Str("channel", n.Name()).Msg("delivering report")
			res = n.Notify(ctx, msg)
		}

		switch res.Status {
		case notifier.StatusFailed:
			log.Error().Err(res.Err).Str("channel", res.Channel).Msg("delivery failed")
		case notifier.StatusSkipped:
			log.Info().Str("channel", res.Channel).Str("reason", res.Reason).Msg("delivery skipped")
		default:
			log.Info().Str("channel", res.Channel).Msg("delivery succeeded")
		}
		fmt.Fprintf(a.out(), "delivery %s\n", res)
		results = append(results, res)
	}
	if len(a.Notifiers) == 0 {
		fmt.Fprintln(a.out(), "delivery: no channels configured")
	}
	return results
}

func (a *Advisor) printReport(msg notifier.Message) {
	out := a.out()
	fmt.Fprintf(out, "--- %s ---\n", msg.Subject)
	fmt.Fprintln(out, msg.Body)
	fmt.Fprintln(out, strings.Repeat("-", 25))
}

func (a *Advisor) out() io.Writer {
	if a.Out == nil {
		return io.Discard
	}
	return a.Out
}

func (a *Advisor) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}
