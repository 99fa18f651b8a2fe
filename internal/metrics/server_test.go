package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStartServer_ServesAndStopsOnCancel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)
	m.SetPayloadBytes(64)

	ctx, cancel := context.WithCancel(context.Background())
	srv, err := StartServer(ctx, "127.0.0.1:0", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), testLogger())
	if err != nil {
		t.Fatalf("StartServer: %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "dabench_payload_bytes 64") {
		t.Errorf("expected payload gauge in scrape, got:\n%s", body)
	}

	cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Join() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Join returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Join did not return after cancel")
	}

	if _, err := http.Get("http://" + srv.Addr() + "/metrics"); err == nil {
		t.Error("expected connection failure after shutdown")
	}
}

func TestStartServer_BindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	_, err = StartServer(context.Background(), ln.Addr().String(), http.NotFoundHandler(), testLogger())
	if err == nil {
		t.Fatal("expected bind error for an address already in use")
	}

	var bindErr *BindError
	if !errors.As(err, &bindErr) {
		t.Fatalf("expected *BindError, got %T: %v", err, err)
	}
	if bindErr.Addr != ln.Addr().String() {
		t.Errorf("expected addr %s, got %s", ln.Addr(), bindErr.Addr)
	}
	if !strings.Contains(err.Error(), "failed to bind metrics server") {
		t.Errorf("unexpected message: %v", err)
	}
}
