package eigenda

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc/status"
)

type clientMetrics struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	statusPolls *prometheus.CounterVec
}

func newClientMetrics(reg prometheus.Registerer) *clientMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &clientMetrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eigenda_client_requests_total",
				Help: "Disperser RPCs by method and gRPC status code",
			},
			[]string{"method", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "eigenda_client_request_duration_seconds",
				Help:    "Disperser RPC latency by method",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method"},
		),
		statusPolls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "eigenda_client_status_polls_total",
				Help: "Blob status polls by returned status",
			},
			[]string{"status"},
		),
	}
}

func (m *clientMetrics) observe(fullMethod string, err error, elapsed time.Duration) {
	method := fullMethod[strings.LastIndex(fullMethod, "/")+1:]
	m.requests.WithLabelValues(method, status.Code(err).String()).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}
