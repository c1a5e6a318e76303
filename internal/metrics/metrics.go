package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metrics for message handling and reminders.
// A nil *Metrics is valid and records nothing.
//
// Metrics:
//   - epic_embeds_classified_total{category} - embeds seen from the game bot
//   - epic_hunt_results_total{result} - hunt results resolved or dropped
//   - epic_group_confirmations_total{result} - group activity confirmations
//   - epic_reminders_total{kind,result} - reminder deliveries
//   - epic_stale_activities_purged_total - stale group activities removed
//   - epic_scheduler_tick_seconds - duration of scheduler ticks
type Metrics struct {
	EmbedsClassified   *prometheus.CounterVec
	HuntResults        *prometheus.CounterVec
	GroupConfirmations *prometheus.CounterVec
	Reminders          *prometheus.CounterVec
	StalePurged        prometheus.Counter
	TickDuration       prometheus.Histogram
}

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EmbedsClassified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "epic_embeds_classified_total",
				Help: "Total number of game bot embeds by category",
			},
			[]string{"category"},
		),
		HuntResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "epic_hunt_results_total",
				Help: "Total number of hunt results by resolution",
			},
			[]string{"result"}, // "resolved" or "dropped"
		),
		GroupConfirmations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "epic_group_confirmations_total",
				Help: "Total number of group activity confirmation attempts",
			},
			[]string{"result"}, // "confirmed", "rejected", "conflict", "unmatched"
		),
		Reminders: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "epic_reminders_total",
				Help: "Total number of reminder deliveries",
			},
			[]string{"kind", "result"},
		),
		StalePurged: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "epic_stale_activities_purged_total",
				Help: "Total number of stale group activities purged",
			},
		),
		TickDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "epic_scheduler_tick_seconds",
				Help:    "Duration of scheduler ticks in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) EmbedClassified(category string) {
	if m == nil {
		return
	}
	m.EmbedsClassified.WithLabelValues(category).Inc()
}

func (m *Metrics) HuntResult(result string) {
	if m == nil {
		return
	}
	m.HuntResults.WithLabelValues(result).Inc()
}

func (m *Metrics) GroupConfirmation(result string) {
	if m == nil {
		return
	}
	m.GroupConfirmations.WithLabelValues(result).Inc()
}

func (m *Metrics) Reminder(kind, result string) {
	if m == nil {
		return
	}
	m.Reminders.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Purged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.StalePurged.Add(float64(n))
}

func (m *Metrics) ObserveTick(seconds float64) {
	if m == nil {
		return
	}
	m.TickDuration.Observe(seconds)
}
