package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline holds the counters of the event pipeline. A nil *Pipeline records nothing.
type Pipeline struct {
	EventsDerived    *prometheus.CounterVec
	ChannelAttempts  *prometheus.CounterVec
	AnalyticsRecords *prometheus.CounterVec
	LedgerQueries    *prometheus.CounterVec
	DispatchMS       prometheus.Histogram
}

// NewPipeline creates the pipeline collectors and registers them on reg.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		EventsDerived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brew",
			Subsystem: "pipeline",
			Name:      "events_derived_total",
			Help:      "Lifecycle events derived from transaction changes.",
		}, []string{"event_type"}),
		ChannelAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brew",
			Subsystem: "pipeline",
			Name:      "channel_attempts_total",
			Help:      "Notification attempts per channel and outcome.",
		}, []string{"channel", "outcome"}),
		AnalyticsRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brew",
			Subsystem: "pipeline",
			Name:      "analytics_records_total",
			Help:      "Analytics records handed to the sink.",
		}, []string{"outcome"}),
		LedgerQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brew",
			Subsystem: "pipeline",
			Name:      "ledger_queries_total",
			Help:      "Lifetime order count queries against the ledger.",
		}, []string{"outcome"}),
		DispatchMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "brew",
			Subsystem: "pipeline",
			Name:      "dispatch_duration_ms",
			Help:      "Duration of one dispatch call in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}

	reg.MustRegister(p.EventsDerived, p.ChannelAttempts, p.AnalyticsRecords, p.LedgerQueries, p.DispatchMS)
	return p
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func (p *Pipeline) ObserveDerived(eventType string) {
	if p == nil {
		return
	}
	p.EventsDerived.WithLabelValues(eventType).Inc()
}

func (p *Pipeline) ObserveAttempt(channel string, ok bool) {
	if p == nil {
		return
	}
	p.ChannelAttempts.WithLabelValues(channel, outcome(ok)).Inc()
}

func (p *Pipeline) ObserveAnalytics(n int, ok bool) {
	if p == nil || n == 0 {
		return
	}
	p.AnalyticsRecords.WithLabelValues(outcome(ok)).Add(float64(n))
}

func (p *Pipeline) ObserveLedger(ok bool) {
	if p == nil {
		return
	}
	p.LedgerQueries.WithLabelValues(outcome(ok)).Inc()
}

func (p *Pipeline) ObserveDispatch(start time.Time) {
	if p == nil {
		return
	}
	p.DispatchMS.Observe(float64(time.Since(start).Milliseconds()))
}

// Handler serves the metrics of gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
