package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/gateway-fm/dabench/pkg/types"
)

func TestPrometheusMetrics_RecordRound(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.RecordRound(types.ModeStore, types.OutcomeSuccess, 1.5, 1024)
	m.RecordRound(types.ModeStore, types.OutcomeSuccess, 2.5, 1024)
	m.RecordRound(types.ModeStore, types.OutcomeMismatch, 3, 1024)
	m.RecordRound(types.ModeDisperse, types.OutcomeTransportFailure, 0.2, 0)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"store successes", testutil.ToFloat64(m.RoundsTotal.WithLabelValues("store", "success")), 2},
		{"store mismatches", testutil.ToFloat64(m.RoundsTotal.WithLabelValues("store", "mismatch")), 1},
		{"disperse failures", testutil.ToFloat64(m.RoundsTotal.WithLabelValues("disperse", "transport_failure")), 1},
		{"store bytes", testutil.ToFloat64(m.SubmittedBytesTotal.WithLabelValues("store")), 3072},
		{"verification failures", testutil.ToFloat64(m.VerificationFailures), 1},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(m.RoundDuration); n != 2 {
		t.Errorf("expected 2 duration series, got %d", n)
	}
}

func TestPrometheusMetrics_SetRunStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	m.SetRunStatus(types.StatusRunning)
	m.SetRunStatus(types.StatusCompleted)

	for _, s := range types.AllStatuses {
		want := 0.0
		if s == types.StatusCompleted {
			want = 1
		}
		if got := testutil.ToFloat64(m.RunStatus.WithLabelValues(string(s))); got != want {
			t.Errorf("status %s: got %v, want %v", s, got, want)
		}
	}
}

func TestPrometheusMetrics_Gauges(t *testing.T) {
	m := NewPrometheusMetrics(prometheus.NewRegistry())

	m.SetPayloadBytes(131072)
	m.SetRunElapsed(12.5)

	if got := testutil.ToFloat64(m.PayloadBytes); got != 131072 {
		t.Errorf("payload bytes: got %v, want 131072", got)
	}
	if got := testutil.ToFloat64(m.RunElapsedSecs); got != 12.5 {
		t.Errorf("elapsed: got %v, want 12.5", got)
	}
}

func TestNewPrometheusMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusMetrics(reg)

	defer func() {
		if recover() == nil {
			t.Error("expected panic registering the same metrics twice")
		}
	}()
	NewPrometheusMetrics(reg)
}
