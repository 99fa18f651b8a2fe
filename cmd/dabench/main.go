// dabench repeatedly disperses or stores a fixed payload on EigenDA, verifies it
// and exports round metrics for Prometheus.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gateway-fm/dabench/internal/config"
	"github.com/gateway-fm/dabench/internal/eigenda"
	"github.com/gateway-fm/dabench/internal/metrics"
	"github.com/gateway-fm/dabench/internal/payload"
	"github.com/gateway-fm/dabench/internal/round"
	"github.com/gateway-fm/dabench/internal/runner"
	"github.com/gateway-fm/dabench/internal/transport"
)

// Process exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitConfig    = 2
	exitBind      = 3
	exitTransport = 4
	exitMismatch  = 5
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Resolve(args, stderr)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitCode(err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	harnessMetrics := metrics.NewPrometheusMetrics(reg)

	data := payload.Generate(cfg.EigenDA.BlockSize)
	payloadHash := payload.Fingerprint(data).Hex()
	runID := uuid.NewString()
	logger.Info("payload generated",
		"runId", runID,
		"bytes", len(data),
		"keccak256", payloadHash,
	)

	client, err := eigenda.NewGRPCClient(cfg.EigenDA, reg, logger)
	if err != nil {
		logger.Error("failed to create EigenDA client", "error", err)
		return exitCode(err)
	}
	defer client.Close()

	exec := round.New(cfg.Mode, client, data, harnessMetrics, logger)
	ctrl := runner.New(cfg, exec, logger,
		runner.WithMetrics(harnessMetrics),
		runner.WithRunID(runID),
		runner.WithPayloadHash(payloadHash),
	)

	api := transport.NewServer(ctrl, reg, logger)
	defer api.Close()
	ctrl.OnRound(api.PublishRound)

	// The metrics server outlives signal cancellation so the final scrape of a
	// stopping run still succeeds; the controller stops it explicitly.
	serverCtx, stopServer := context.WithCancel(context.WithoutCancel(ctx))
	defer stopServer()

	srv, err := metrics.StartServer(serverCtx, cfg.MetricsAddr(), api.Handler(), logger)
	if err != nil {
		logger.Error("failed to start metrics server", "error", err)
		return exitCode(err)
	}

	if err := ctrl.Run(ctx, srv, stopServer); err != nil {
		logger.Error("dabench stopped", "error", err, "exitCode", exitCode(err))
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	var (
		cfgErr       *config.ConfigurationError
		bindErr      *metrics.BindError
		transportErr *eigenda.TransportError
		mismatchErr  *payload.MismatchError
		lengthErr    *payload.LengthError
	)

	switch {
	case err == nil, errors.Is(err, config.ErrHelp):
		return exitOK
	case errors.As(err, &cfgErr):
		return exitConfig
	case errors.As(err, &bindErr):
		return exitBind
	case errors.As(err, &mismatchErr), errors.As(err, &lengthErr):
		return exitMismatch
	case errors.As(err, &transportErr):
		return exitTransport
	default:
		return exitFailure
	}
}
