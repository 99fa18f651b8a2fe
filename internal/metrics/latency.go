// Package metrics provides the harness metrics, the metrics server lifecycle and
// round latency statistics.
package metrics

import (
	"math"
	"sort"
	"sync"

	"github.com/gateway-fm/dabench/pkg/types"
)

// StreamingLatencyStats provides efficient streaming percentile calculation.
// Uses reservoir sampling for percentile estimation without storing all samples.
type StreamingLatencyStats struct {
	mu sync.RWMutex

	// Running statistics (O(1) memory)
	count int64
	sum   float64
	min   float64
	max   float64

	// Reservoir for percentile estimation
	// Uses Algorithm R (Vitter) - O(reservoirSize) memory
	reservoir     []float64
	reservoirSize int
	seen          int64

	// Histogram buckets (round latency: 0-1s, 1-5s, 5-30s, 30s-2m, 2m+)
	buckets      []int64
	bucketBounds []float64

	// Per-instance random state for reservoir sampling (xorshift64*)
	randState uint64
}

const (
	// DefaultReservoirSize is the number of samples to keep for percentile estimation.
	// Runs rarely exceed a few thousand rounds, so this usually holds every sample.
	DefaultReservoirSize = 4096

	// Round latency bucket bounds in milliseconds
	bucket0 = 1000.0
	bucket1 = 5000.0
	bucket2 = 30000.0
	bucket3 = 120000.0
)

var bucketLabels = []string{"0-1s", "1-5s", "5-30s", "30s-2m", "2m+"}

// NewStreamingLatencyStats creates a new streaming latency calculator.
func NewStreamingLatencyStats() *StreamingLatencyStats {
	return &StreamingLatencyStats{
		min:           math.MaxFloat64,
		max:           0,
		reservoir:     make([]float64, 0, DefaultReservoirSize),
		reservoirSize: DefaultReservoirSize,
		buckets:       make([]int64, len(bucketLabels)),
		bucketBounds:  []float64{bucket0, bucket1, bucket2, bucket3},
		randState:     1,
	}
}

// Add records a latency sample in milliseconds.
// This is O(1) amortized and safe for concurrent use.
func (s *StreamingLatencyStats) Add(latencyMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.sum += latencyMs
	s.seen++

	if latencyMs < s.min {
		s.min = latencyMs
	}
	if latencyMs > s.max {
		s.max = latencyMs
	}

	s.buckets[s.getBucketIndex(latencyMs)]++

	// Reservoir sampling (Algorithm R)
	if len(s.reservoir) < s.reservoirSize {
		s.reservoir = append(s.reservoir, latencyMs)
	} else {
		// Replace with probability reservoirSize/seen
		j := s.fastRand() % uint64(s.seen)
		if j < uint64(s.reservoirSize) {
			s.reservoir[j] = latencyMs
		}
	}
}

func (s *StreamingLatencyStats) getBucketIndex(latencyMs float64) int {
	for i, bound := range s.bucketBounds {
		if latencyMs < bound {
			return i
		}
	}
	return len(s.bucketBounds)
}

// fastRand returns a pseudo-random uint64 using xorshift64*.
func (s *StreamingLatencyStats) fastRand() uint64 {
	s.randState ^= s.randState >> 12
	s.randState ^= s.randState << 25
	s.randState ^= s.randState >> 27
	return s.randState * 0x2545F4914F6CDD1D
}

// GetStats returns the current latency statistics, or nil if nothing was recorded.
func (s *StreamingLatencyStats) GetStats() *types.LatencyStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.count == 0 {
		return nil
	}

	// Copy reservoir for sorting (don't modify original)
	sorted := make([]float64, len(s.reservoir))
	copy(sorted, s.reservoir)
	sort.Float64s(sorted)

	buckets := make([]types.LatencyBucket, len(bucketLabels))
	for i, label := range bucketLabels {
		buckets[i] = types.LatencyBucket{Label: label, Count: int(s.buckets[i])}
	}

	return &types.LatencyStats{
		Count:   int(s.count),
		Min:     s.min,
		Max:     s.max,
		Avg:     s.sum / float64(s.count),
		P50:     percentile(sorted, 0.50),
		P75:     percentile(sorted, 0.75),
		P90:     percentile(sorted, 0.90),
		P95:     percentile(sorted, 0.95),
		P99:     percentile(sorted, 0.99),
		Buckets: buckets,
	}
}

// percentile calculates the p-th percentile from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	// Linear interpolation
	idx := p * float64(len(sorted)-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// Count returns the number of samples recorded.
func (s *StreamingLatencyStats) Count() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
