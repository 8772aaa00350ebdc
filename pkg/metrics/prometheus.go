package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	claimsTotal     *prometheus.CounterVec
	violationsTotal *prometheus.CounterVec
	decisionsTotal  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		claimsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradequorum_claims_total",
				Help: "Total number of claims processed by the verifier",
			},
			[]string{"role", "accepted"},
		),
		violationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradequorum_violations_total",
				Help: "Total number of risk violations found during verification",
			},
			[]string{"type", "severity"},
		),
		decisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradequorum_decisions_total",
				Help: "Total number of trading decisions generated",
			},
			[]string{"action"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradequorum_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradequorum_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordClaim records a verified claim outcome for a role.
func (r *Recorder) RecordClaim(role string, accepted bool) {
	r.claimsTotal.WithLabelValues(role, strconv.FormatBool(accepted)).Inc()
}

// RecordViolation records a verification violation.
func (r *Recorder) RecordViolation(kind, severity string) {
	r.violationsTotal.WithLabelValues(kind, severity).Inc()
}

// RecordDecision records a generated decision by action.
func (r *Recorder) RecordDecision(action string) {
	r.decisionsTotal.WithLabelValues(action).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
