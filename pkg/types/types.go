// Package types contains public API types for the DA benchmark harness.
// These types form the external interface (status endpoint, websocket feed, MCP tools)
// and must remain backwards-compatible.
package types

import "time"

// Mode is the operation a round performs against the DA network.
type Mode string

const (
	ModeDisperse Mode = "disperse" // fire-and-forget dispersal
	ModeStore    Mode = "store"    // store, retrieve and verify
)

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeDisperse || m == ModeStore
}

// RunStatus represents the current run state.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusRunning   RunStatus = "running"
	StatusSleeping  RunStatus = "sleeping" // Between rounds
	StatusCompleted RunStatus = "completed"
	StatusError     RunStatus = "error"
)

// AllStatuses lists every run status, in lifecycle order.
var AllStatuses = []RunStatus{StatusIdle, StatusRunning, StatusSleeping, StatusCompleted, StatusError}

// Terminal reports whether the run has stopped.
func (s RunStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// RoundOutcome classifies the result of a single round.
type RoundOutcome string

const (
	OutcomeSuccess          RoundOutcome = "success"
	OutcomeMismatch         RoundOutcome = "mismatch"
	OutcomeTransportFailure RoundOutcome = "transport_failure"
)

// MismatchInfo describes the first byte that differed during verification.
// Index is the shorter length when the retrieved blob has the wrong size.
type MismatchInfo struct {
	Index          int `json:"index"`
	Expected       int `json:"expected"` // -1 when past the end of the expected payload
	Actual         int `json:"actual"`   // -1 when past the end of the retrieved data
	ExpectedLength int `json:"expectedLength,omitempty"`
	ActualLength   int `json:"actualLength,omitempty"`
}

// RoundEvent is the externally visible record of a completed round.
type RoundEvent struct {
	RunID     string        `json:"runId"`
	Round     int           `json:"round"`
	Mode      Mode          `json:"mode"`
	Outcome   RoundOutcome  `json:"outcome"`
	ElapsedMs float64       `json:"elapsedMs"`
	RequestID string        `json:"requestId,omitempty"`
	Error     string        `json:"error,omitempty"`
	Mismatch  *MismatchInfo `json:"mismatch,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// LatencyStats contains round latency statistics in milliseconds.
type LatencyStats struct {
	Count   int             `json:"count"`
	Min     float64         `json:"min"`
	Max     float64         `json:"max"`
	Avg     float64         `json:"avg"`
	P50     float64         `json:"p50"`
	P75     float64         `json:"p75"`
	P90     float64         `json:"p90"`
	P95     float64         `json:"p95"`
	P99     float64         `json:"p99"`
	Buckets []LatencyBucket `json:"buckets,omitempty"`
}

// RunSnapshot is a point-in-time view of the run, served by /v1/status.
type RunSnapshot struct {
	RunID        string        `json:"runId"`
	Mode         Mode          `json:"mode"`
	Status       RunStatus     `json:"status"`
	BlockSize    int           `json:"blockSize"`
	PayloadHash  string        `json:"payloadHash"`
	Rounds       uint64        `json:"rounds"`
	Succeeded    uint64        `json:"succeeded"`
	Failed       uint64        `json:"failed"`
	StartedAt    time.Time     `json:"startedAt"`
	ElapsedMs    int64         `json:"elapsedMs"`
	RunForSecs   uint32        `json:"runForSecs"`
	SleepForSecs uint32        `json:"sleepForSecs"`
	StopAfterOne bool          `json:"stopAfterOne"`
	Error        string        `json:"error,omitempty"`
	Latency      *LatencyStats `json:"latency,omitempty"`
	LastRound    *RoundEvent   `json:"lastRound,omitempty"`
}

// RoundsResponse is the body of /v1/rounds.
type RoundsResponse struct {
	Total  uint64       `json:"total"`
	Rounds []RoundEvent `json:"rounds"`
}
