// Package runner drives rounds until a stop condition is met and keeps the run
// state served by the HTTP surface.
package runner

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gateway-fm/dabench/internal/config"
	"github.com/gateway-fm/dabench/internal/metrics"
	"github.com/gateway-fm/dabench/internal/round"
	"github.com/gateway-fm/dabench/pkg/types"
)

// RecentRoundsCapacity is the number of round events kept for /v1/rounds.
const RecentRoundsCapacity = 100

// Executor runs a single round.
type Executor interface {
	Execute(ctx context.Context, n int) round.Result
}

// Joiner is a background server that can be waited on after it was told to stop.
type Joiner interface {
	Join() error
}

// Option configures a Controller.
type Option func(*Controller)

// WithMetrics publishes run status and elapsed time to m.
func WithMetrics(m *metrics.PrometheusMetrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithRunID sets the identifier reported in snapshots and round events.
func WithRunID(id string) Option {
	return func(c *Controller) { c.runID = id }
}

// WithPayloadHash sets the payload fingerprint reported in snapshots.
func WithPayloadHash(hash string) Option {
	return func(c *Controller) { c.payloadHash = hash }
}

// WithClock replaces time.Now for elapsed-time checks.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns the round loop.
type Controller struct {
	cfg         *config.Config
	exec        Executor
	logger      *slog.Logger
	metrics     *metrics.PrometheusMetrics
	runID       string
	payloadHash string
	now         func() time.Time

	rounds    metrics.UCounter
	succeeded metrics.UCounter
	failed    metrics.UCounter
	latency   *metrics.StreamingLatencyStats

	mu         sync.RWMutex
	status     types.RunStatus
	startedAt  time.Time
	finishedAt time.Time
	runErr     error
	recent     []types.RoundEvent

	subMu       sync.RWMutex
	subscribers []func(types.RoundEvent)
}

// New creates a Controller for cfg.
func New(cfg *config.Config, exec Executor, logger *slog.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		cfg:     cfg,
		exec:    exec,
		logger:  logger,
		now:     time.Now,
		latency: metrics.NewStreamingLatencyStats(),
		status:  types.StatusIdle,
		recent:  make([]types.RoundEvent, 0, RecentRoundsCapacity),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnRound registers fn to be called after every completed round.
func (c *Controller) OnRound(fn func(types.RoundEvent)) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Run executes rounds until a round fails, the stop flag or the run-for budget
// ends the run, or ctx is cancelled. Cancellation is observed between rounds
// and while sleeping; a round in flight always completes.
//
// Once the loop ends, stopServer is called and server is joined. A round
// failure takes precedence over a join error.
func (c *Controller) Run(ctx context.Context, server Joiner, stopServer func()) error {
	c.begin()

	runErr := c.loop(ctx)
	c.finish(runErr)

	if stopServer != nil {
		stopServer()
	}
	var joinErr error
	if server != nil {
		joinErr = server.Join()
	}

	if runErr != nil {
		return runErr
	}
	return joinErr
}

func (c *Controller) loop(ctx context.Context) error {
	roundCtx := context.WithoutCancel(ctx)

	for n := 1; ; n++ {
		if ctx.Err() != nil {
			c.logger.Info("run interrupted", "rounds", n-1)
			return nil
		}

		res := c.exec.Execute(roundCtx, n)
		c.record(res)

		if err := res.Err(); err != nil {
			return err
		}

		if c.cfg.StopAfterOne {
			c.logger.Info("stopping after a single round")
			return nil
		}

		if !c.cfg.Unbounded() {
			if elapsed := c.elapsed(); elapsed >= c.cfg.RunFor() {
				c.logger.Info("run duration reached",
					"elapsed", elapsed.Round(time.Millisecond).String(),
					"runFor", c.cfg.RunFor().String())
				return nil
			}
		}

		if sleep := c.cfg.SleepBetweenRounds(); sleep > 0 {
			c.setStatus(types.StatusSleeping)
			c.logger.Debug("sleeping before next round", "duration", sleep.String())

			timer := time.NewTimer(sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				c.logger.Info("run interrupted while sleeping", "rounds", n)
				return nil
			case <-timer.C:
			}
			c.setStatus(types.StatusRunning)
		}
	}
}

func (c *Controller) begin() {
	c.mu.Lock()
	c.startedAt = c.now()
	c.status = types.StatusRunning
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetPayloadBytes(c.cfg.EigenDA.BlockSize)
		c.metrics.SetRunStatus(types.StatusRunning)
	}

	attrs := []any{
		"runId", c.runID,
		"mode", c.cfg.Mode.String(),
		"blockSize", c.cfg.EigenDA.BlockSize,
		"stopAfterOne", c.cfg.StopAfterOne,
		"sleepForSecs", c.cfg.SleepForSecs,
	}
	if c.cfg.Unbounded() {
		attrs = append(attrs, "runFor", "unbounded")
	} else {
		attrs = append(attrs, "runFor", c.cfg.RunFor().String())
	}
	c.logger.Info("run started", attrs...)
}

func (c *Controller) finish(runErr error) {
	status := types.StatusCompleted
	if runErr != nil {
		status = types.StatusError
	}

	c.mu.Lock()
	c.finishedAt = c.now()
	c.status = status
	c.runErr = runErr
	elapsed := c.finishedAt.Sub(c.startedAt)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetRunStatus(status)
		c.metrics.SetRunElapsed(elapsed.Seconds())
	}

	attrs := []any{
		"runId", c.runID,
		"status", string(status),
		"rounds", c.rounds.Load(),
		"succeeded", c.succeeded.Load(),
		"failed", c.failed.Load(),
		"elapsed", elapsed.Round(time.Millisecond).String(),
	}
	if stats := c.latency.GetStats(); stats != nil {
		attrs = append(attrs,
			"avgMs", stats.Avg,
			"p50Ms", stats.P50,
			"p99Ms", stats.P99,
		)
	}
	if runErr != nil {
		attrs = append(attrs, "error", runErr.Error())
		c.logger.Error("run failed", attrs...)
		return
	}
	c.logger.Info("run completed", attrs...)
}

func (c *Controller) record(res round.Result) {
	c.rounds.Inc()
	if res.Outcome == types.OutcomeSuccess {
		c.succeeded.Inc()
	} else {
		c.failed.Inc()
	}
	c.latency.Add(float64(res.Elapsed.Microseconds()) / 1000)

	ev := res.Event(c.runID, c.now())

	c.mu.Lock()
	if len(c.recent) == RecentRoundsCapacity {
		copy(c.recent, c.recent[1:])
		c.recent = c.recent[:RecentRoundsCapacity-1]
	}
	c.recent = append(c.recent, ev)
	elapsed := c.now().Sub(c.startedAt)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetRunElapsed(elapsed.Seconds())
	}

	c.subMu.RLock()
	subs := c.subscribers
	c.subMu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

func (c *Controller) setStatus(status types.RunStatus) {
	c.mu.Lock()
	c.status = status
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetRunStatus(status)
	}
}

func (c *Controller) elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now().Sub(c.startedAt)
}

// Status returns the current run status.
func (c *Controller) Status() types.RunStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Snapshot returns a point-in-time view of the run.
func (c *Controller) Snapshot() types.RunSnapshot {
	c.mu.RLock()
	snap := types.RunSnapshot{
		RunID:        c.runID,
		Mode:         c.cfg.Mode,
		Status:       c.status,
		BlockSize:    c.cfg.EigenDA.BlockSize,
		PayloadHash:  c.payloadHash,
		StartedAt:    c.startedAt,
		RunForSecs:   c.cfg.RunForSecs,
		SleepForSecs: c.cfg.SleepForSecs,
		StopAfterOne: c.cfg.StopAfterOne,
	}
	switch {
	case !c.finishedAt.IsZero():
		snap.ElapsedMs = c.finishedAt.Sub(c.startedAt).Milliseconds()
	case !c.startedAt.IsZero():
		snap.ElapsedMs = c.now().Sub(c.startedAt).Milliseconds()
	}
	if c.runErr != nil {
		snap.Error = c.runErr.Error()
	}
	if n := len(c.recent); n > 0 {
		last := c.recent[n-1]
		snap.LastRound = &last
	}
	c.mu.RUnlock()

	snap.Rounds = c.rounds.Load()
	snap.Succeeded = c.succeeded.Load()
	snap.Failed = c.failed.Load()
	snap.Latency = c.latency.GetStats()
	return snap
}

// RecentRounds returns up to limit of the most recent round events, newest first.
// A non-positive limit returns everything retained.
func (c *Controller) RecentRounds(limit int) []types.RoundEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := len(c.recent)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]types.RoundEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, c.recent[i])
	}
	return out
}

// TotalRounds returns the number of rounds executed so far.
func (c *Controller) TotalRounds() uint64 {
	return c.rounds.Load()
}
