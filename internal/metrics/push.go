package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"TrendAllocator/internal/model"
	"TrendAllocator/internal/notifier"
)

const namespace = "allocator"

// Pusher publishes the outcome of one run to a Prometheus Pushgateway.
// A zero URL disables it.
type Pusher struct {
	URL    string
	Job    string
	Client *http.Client
}

// NewPusher creates a Pusher for the given gateway URL and job name.
func NewPusher(url, job string, timeout time.Duration) *Pusher {
	return &Pusher{
		URL:    url,
		Job:    job,
		Client: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a gateway is configured.
func (p *Pusher) Enabled() bool { return p != nil && p.URL != "" }

// Push replaces the run metrics of this job and ticker on the gateway.
func (p *Pusher) Push(ctx context.Context, ticker string, rec *model.Recommendation, results []notifier.Result) error {
	if !p.Enabled() {
		return nil
	}
	reg := prometheus.NewRegistry()

	allocation := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "recommended_allocation_ratio",
		Help:      "Recommended portfolio allocation fraction of the last run.",
	})
	status := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "recommendation_status",
		Help:      "1 for the status the last run ended with.",
	}, []string{"status"})
	referenceDate := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "reference_date_timestamp_seconds",
		Help:      "Date of the snapshot the recommendation is based on.",
	})
	lastRun := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Completion time of the last run.",
	})
	delivery := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "delivery_status",
		Help:      "1 for the delivery outcome of each channel.",
	}, []string{"channel", "status"})
	reg.MustRegister(allocation, status, referenceDate, lastRun, delivery)

	allocation.Set(rec.Allocation)
	for _, s := range []model.RecommendationStatus{model.StatusOK, model.StatusDataUnavailable, model.StatusInsufficientData} {
		v := 0.0
		if s == rec.Status {
			v = 1
		}
		status.WithLabelValues(string(s)).Set(v)
	}
	referenceDate.Set(float64(rec.Date.Unix()))
	lastRun.SetToCurrentTime()
	for _, r := range results {
		delivery.WithLabelValues(r.Channel, string(r.Status)).Set(1)
	}

	err := push.New(p.URL, p.Job).
		Client(p.Client).
		Gatherer(reg).
		Grouping("ticker", ticker).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", p.URL, err)
	}
	return nil
}
