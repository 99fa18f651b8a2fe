package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gateway-fm/dabench/pkg/types"
)

// PrometheusMetrics holds all Prometheus metrics for the harness.
type PrometheusMetrics struct {
	// Round counters
	RoundsTotal          *prometheus.CounterVec
	SubmittedBytesTotal  *prometheus.CounterVec
	VerificationFailures prometheus.Counter

	// Gauges
	PayloadBytes   prometheus.Gauge
	RunStatus      *prometheus.GaugeVec
	RunElapsedSecs prometheus.Gauge

	// Histograms
	RoundDuration *prometheus.HistogramVec
}

// roundDurationBuckets covers a fast local disperser (sub-second) up to a full
// store round that waits for batch confirmation on a public network (minutes).
var roundDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1200}

// NewPrometheusMetrics creates and registers all harness metrics on reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	factory := promauto.With(reg)

	return &PrometheusMetrics{
		RoundsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dabench_rounds_total",
				Help: "Completed rounds by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),

		SubmittedBytesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dabench_submitted_bytes_total",
				Help: "Payload bytes submitted to the DA network",
			},
			[]string{"mode"},
		),

		VerificationFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "dabench_verification_failures_total",
				Help: "Store rounds whose retrieved bytes differed from the payload",
			},
		),

		PayloadBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dabench_payload_bytes",
				Help: "Size of the payload submitted every round",
			},
		),

		RunStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dabench_run_status",
				Help: "Current run status (1 if active, 0 otherwise)",
			},
			[]string{"status"},
		),

		RunElapsedSecs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dabench_run_elapsed_seconds",
				Help: "Wall-clock time since the run started",
			},
		),

		RoundDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dabench_round_duration_seconds",
				Help:    "Wall-clock duration of a round by mode",
				Buckets: roundDurationBuckets,
			},
			[]string{"mode"},
		),
	}
}

// RecordRound records a completed round.
func (m *PrometheusMetrics) RecordRound(mode types.Mode, outcome types.RoundOutcome, seconds float64, submittedBytes int) {
	m.RoundsTotal.WithLabelValues(string(mode), string(outcome)).Inc()
	m.RoundDuration.WithLabelValues(string(mode)).Observe(seconds)
	if submittedBytes > 0 {
		m.SubmittedBytesTotal.WithLabelValues(string(mode)).Add(float64(submittedBytes))
	}
	if outcome == types.OutcomeMismatch {
		m.VerificationFailures.Inc()
	}
}

// SetPayloadBytes updates the payload size gauge.
func (m *PrometheusMetrics) SetPayloadBytes(n int) {
	m.PayloadBytes.Set(float64(n))
}

// SetRunElapsed updates the elapsed run time gauge.
func (m *PrometheusMetrics) SetRunElapsed(seconds float64) {
	m.RunElapsedSecs.Set(seconds)
}

// SetRunStatus updates the run status gauges.
func (m *PrometheusMetrics) SetRunStatus(status types.RunStatus) {
	for _, s := range types.AllStatuses {
		if s == status {
			m.RunStatus.WithLabelValues(string(s)).Set(1)
		} else {
			m.RunStatus.WithLabelValues(string(s)).Set(0)
		}
	}
}
