// Package round executes a single disperse or store-and-verify round against
// the DA client.
package round

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gateway-fm/dabench/internal/eigenda"
	"github.com/gateway-fm/dabench/internal/payload"
	"github.com/gateway-fm/dabench/pkg/types"
)

// Recorder receives one observation per completed round.
type Recorder interface {
	RecordRound(mode types.Mode, outcome types.RoundOutcome, seconds float64, submittedBytes int)
}

// Result is the outcome of one round.
type Result struct {
	Round     int
	Mode      types.Mode
	Elapsed   time.Duration
	Outcome   types.RoundOutcome
	RequestID string

	// Mismatch is set when a store round read back a differing byte.
	Mismatch *payload.MismatchError

	// Cause is the underlying error for any non-success outcome.
	Cause error
}

// Err returns nil for a successful round and a fatal error otherwise.
func (r Result) Err() error {
	switch r.Outcome {
	case types.OutcomeSuccess:
		return nil
	case types.OutcomeMismatch:
		return fmt.Errorf("round %d: verification failed: %w", r.Round, r.Cause)
	default:
		return fmt.Errorf("round %d: %w", r.Round, r.Cause)
	}
}

// Event converts the result to its API representation.
func (r Result) Event(runID string, at time.Time) types.RoundEvent {
	ev := types.RoundEvent{
		RunID:     runID,
		Round:     r.Round,
		Mode:      r.Mode,
		Outcome:   r.Outcome,
		ElapsedMs: float64(r.Elapsed.Microseconds()) / 1000,
		RequestID: r.RequestID,
		Timestamp: at,
	}
	if r.Cause != nil {
		ev.Error = r.Cause.Error()
	}

	var lenErr *payload.LengthError
	switch {
	case r.Mismatch != nil:
		ev.Mismatch = &types.MismatchInfo{
			Index:    r.Mismatch.Index,
			Expected: int(r.Mismatch.Expected),
			Actual:   int(r.Mismatch.Actual),
		}
	case errors.As(r.Cause, &lenErr):
		ev.Mismatch = &types.MismatchInfo{
			Index:          min(lenErr.Expected, lenErr.Actual),
			Expected:       -1,
			Actual:         -1,
			ExpectedLength: lenErr.Expected,
			ActualLength:   lenErr.Actual,
		}
	}
	return ev
}

// Executor runs rounds for one mode against a fixed payload.
type Executor struct {
	mode     types.Mode
	client   eigenda.Client
	payload  []byte
	recorder Recorder
	logger   *slog.Logger
}

// New creates an Executor. recorder may be nil.
func New(mode types.Mode, client eigenda.Client, data []byte, recorder Recorder, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		mode:     mode,
		client:   client,
		payload:  data,
		recorder: recorder,
		logger:   logger,
	}
}

// Mode returns the mode every round runs in.
func (e *Executor) Mode() types.Mode {
	return e.mode
}

// Execute runs round n to completion. It never panics or exits on failure; the
// outcome is carried in the Result.
func (e *Executor) Execute(ctx context.Context, n int) Result {
	e.logger.Info("starting round",
		slog.Int("round", n),
		slog.String("mode", e.mode.String()),
		slog.Int("bytes", len(e.payload)),
	)

	start := time.Now()
	var res Result
	switch e.mode {
	case types.ModeStore:
		res = e.store(ctx)
	default:
		res = e.disperse(ctx)
	}
	res.Round = n
	res.Mode = e.mode
	res.Elapsed = time.Since(start)

	submitted := len(e.payload)
	if res.Outcome == types.OutcomeTransportFailure {
		submitted = 0
	}
	if e.recorder != nil {
		e.recorder.RecordRound(e.mode, res.Outcome, res.Elapsed.Seconds(), submitted)
	}

	attrs := []any{
		slog.Int("round", n),
		slog.String("mode", e.mode.String()),
		slog.String("outcome", string(res.Outcome)),
		slog.Duration("took", res.Elapsed),
	}
	if res.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", res.RequestID))
	}
	if res.Cause != nil {
		attrs = append(attrs, slog.String("error", res.Cause.Error()))
		e.logger.Error("round failed", attrs...)
	} else {
		e.logger.Info("round completed", attrs...)
	}
	return res
}

func (e *Executor) disperse(ctx context.Context) Result {
	id, err := e.client.DisperseBlob(ctx, e.payload)
	if err != nil {
		return Result{Outcome: types.OutcomeTransportFailure, Cause: err}
	}
	return Result{Outcome: types.OutcomeSuccess, RequestID: id.String()}
}

func (e *Executor) store(ctx context.Context) Result {
	proof, err := e.client.StoreBlob(ctx, e.payload)
	if err != nil {
		return Result{Outcome: types.OutcomeTransportFailure, Cause: err}
	}
	requestID := proof.RequestID.String()

	got, err := e.client.RetrieveBlob(ctx, proof)
	if err != nil {
		return Result{Outcome: types.OutcomeTransportFailure, RequestID: requestID, Cause: err}
	}

	if err := payload.Verify(e.payload, got); err != nil {
		res := Result{Outcome: types.OutcomeMismatch, RequestID: requestID, Cause: err}
		var mismatch *payload.MismatchError
		if errors.As(err, &mismatch) {
			res.Mismatch = mismatch
		}
		return res
	}
	return Result{Outcome: types.OutcomeSuccess, RequestID: requestID}
}
