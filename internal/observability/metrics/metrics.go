package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NotificationMetrics exposes counters/histograms for contact notification dispatch.
type NotificationMetrics struct {
	outcomeTotal *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	m := &NotificationMetrics{
		outcomeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "notify",
			Name:      "outcome_total",
			Help:      "Notification attempts by channel and result",
		}, []string{"channel", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portfolio",
			Subsystem: "notify",
			Name:      "latency_seconds",
			Help:      "Latency of a single channel attempt",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outcomeTotal, m.latency)
	return m
}

// ObserveOutcome counts one channel attempt. status is "sent", "failed" or
// "not_configured".
func (m *NotificationMetrics) ObserveOutcome(channel, status string, seconds float64) {
	if m == nil {
		return
	}
	m.outcomeTotal.WithLabelValues(channel, status).Inc()
	m.latency.WithLabelValues(channel).Observe(seconds)
}

// ContactMetrics tracks the submission pipeline itself.
type ContactMetrics struct {
	submissionsTotal *prometheus.CounterVec
	flagUpdateErrors prometheus.Counter
}

func NewContactMetrics(reg prometheus.Registerer) *ContactMetrics {
	m := &ContactMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "contact",
			Name:      "submissions_total",
			Help:      "Contact submissions by result",
		}, []string{"result"}),
		flagUpdateErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "contact",
			Name:      "flag_update_errors_total",
			Help:      "Failed writes of notification delivery flags",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.flagUpdateErrors)
	return m
}

// ObserveSubmission counts a submission by result ("created", "invalid", "error").
func (m *ContactMetrics) ObserveSubmission(result string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(result).Inc()
}

func (m *ContactMetrics) ObserveFlagUpdateError() {
	if m == nil {
		return
	}
	m.flagUpdateErrors.Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
