package mcp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gateway-fm/dabench/pkg/types"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{float64(0), "0"},
		{float64(999), "999"},
		{float64(1000), "1,000"},
		{float64(123456), "123,456"},
		{float64(1234567), "1,234,567"},
		{float64(-1234), "-1,234"},
		{1.5, "1.5"},
		{uint64(42), "42"},
		{"x", "x"},
	}
	for _, tt := range tests {
		if got := formatNumber(tt.in); got != tt.want {
			t.Errorf("formatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{131072, "128.0 KiB"},
		{16 * 1024 * 1024, "16.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatMs(t *testing.T) {
	if got := formatMs(250); got != "250.0ms" {
		t.Errorf("got %q", got)
	}
	if got := formatMs(61500); got != "61.50s" {
		t.Errorf("got %q", got)
	}
}

func TestFormatStatus(t *testing.T) {
	snap := types.RunSnapshot{
		RunID:       "run-1",
		Mode:        types.ModeStore,
		Status:      types.StatusError,
		BlockSize:   131072,
		PayloadHash: "0xabc",
		Rounds:      4,
		Succeeded:   3,
		Failed:      1,
		ElapsedMs:   90000,
		RunForSecs:  4294967295,
		Error:       "round 4: verification failed",
		Latency:     &types.LatencyStats{Count: 4, Min: 800, Avg: 1200, P50: 1100, P95: 1900, P99: 1990, Max: 2000},
		LastRound: &types.RoundEvent{
			Round:    4,
			Mode:     types.ModeStore,
			Outcome:  types.OutcomeMismatch,
			Mismatch: &types.MismatchInfo{Index: 9, Expected: 9, Actual: 99},
		},
	}
	raw, _ := json.Marshal(snap)

	out := formatStatus(raw)
	for _, want := range []string{
		"## dabench: error",
		"128.0 KiB",
		"unbounded",
		"75.0%",
		"round 4: verification failed",
		"## Round Latency",
		"mismatch at index 9: expected 9, got 99",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestFormatRounds(t *testing.T) {
	resp := types.RoundsResponse{
		Total: 2,
		Rounds: []types.RoundEvent{
			{Round: 2, Mode: types.ModeDisperse, Outcome: types.OutcomeTransportFailure, ElapsedMs: 30, Error: "eigenda disperse blob: unavailable", Timestamp: time.Now()},
			{Round: 1, Mode: types.ModeDisperse, Outcome: types.OutcomeSuccess, ElapsedMs: 1500, RequestID: "0xabcd", Timestamp: time.Now()},
		},
	}
	raw, _ := json.Marshal(resp)

	out := formatRounds(raw)
	for _, want := range []string{"#2", "transport_failure", "unavailable", "#1", "0xabcd", "1.50s"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	empty, _ := json.Marshal(types.RoundsResponse{Rounds: []types.RoundEvent{}})
	if out := formatRounds(empty); !strings.Contains(out, "No rounds recorded yet.") {
		t.Errorf("unexpected empty output:\n%s", out)
	}
}

func TestFormatHealth(t *testing.T) {
	raw := json.RawMessage(`{"status":"not_ready","runStatus":"error","checks":[{"name":"run","status":"failed","error":"boom"}]}`)
	out := formatHealth(raw)
	if !strings.Contains(out, "NOT READY") || !strings.Contains(out, "failed - boom") {
		t.Errorf("unexpected health output:\n%s", out)
	}
}

func TestClientGet(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/status":
			w.Write([]byte(`{"status":"running"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"not found"}`))
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL + "/")

	raw, err := c.Get("/v1/status")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(raw) != `{"status":"running"}` {
		t.Errorf("unexpected body %s", raw)
	}

	if _, err := c.Get("/missing"); err == nil || !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("expected HTTP 404 error, got %v", err)
	}
}
