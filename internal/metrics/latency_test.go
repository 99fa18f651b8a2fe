package metrics

import (
	"math"
	"sync"
	"testing"
)

func TestStreamingLatencyStats_Basic(t *testing.T) {
	s := NewStreamingLatencyStats()

	for i := 0; i < 100; i++ {
		s.Add(float64(i))
	}

	stats := s.GetStats()
	if stats == nil {
		t.Fatal("expected non-nil stats")
	}

	if stats.Count != 100 {
		t.Errorf("expected count 100, got %d", stats.Count)
	}

	if stats.Min != 0 {
		t.Errorf("expected min 0, got %f", stats.Min)
	}

	if stats.Max != 99 {
		t.Errorf("expected max 99, got %f", stats.Max)
	}

	if math.Abs(stats.Avg-49.5) > 0.1 {
		t.Errorf("expected avg ~49.5, got %f", stats.Avg)
	}

	// All samples fit in the reservoir so the percentile is exact
	if math.Abs(stats.P50-49.5) > 0.01 {
		t.Errorf("expected p50 49.5, got %f", stats.P50)
	}
}

func TestStreamingLatencyStats_Empty(t *testing.T) {
	s := NewStreamingLatencyStats()

	stats := s.GetStats()
	if stats != nil {
		t.Error("expected nil stats for empty collector")
	}
}

func TestStreamingLatencyStats_Buckets(t *testing.T) {
	s := NewStreamingLatencyStats()

	samples := []struct {
		ms    float64
		count int
	}{
		{500, 4},    // 0-1s
		{2000, 3},   // 1-5s
		{15000, 2},  // 5-30s
		{60000, 1},  // 30s-2m
		{300000, 5}, // 2m+
		{1000, 1},   // boundary goes to the upper bucket
		{119999, 1}, // just below 2m
	}
	for _, sample := range samples {
		for i := 0; i < sample.count; i++ {
			s.Add(sample.ms)
		}
	}

	stats := s.GetStats()
	if stats == nil {
		t.Fatal("expected non-nil stats")
	}

	want := []struct {
		label string
		count int
	}{
		{"0-1s", 4},
		{"1-5s", 4},
		{"5-30s", 2},
		{"30s-2m", 2},
		{"2m+", 5},
	}

	if len(stats.Buckets) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(stats.Buckets))
	}

	for i, w := range want {
		if stats.Buckets[i].Label != w.label {
			t.Errorf("bucket %d: expected label %q, got %q", i, w.label, stats.Buckets[i].Label)
		}
		if stats.Buckets[i].Count != w.count {
			t.Errorf("bucket %s: expected count %d, got %d", w.label, w.count, stats.Buckets[i].Count)
		}
	}
}

func TestStreamingLatencyStats_ReservoirOverflow(t *testing.T) {
	s := NewStreamingLatencyStats()

	n := DefaultReservoirSize * 3
	for i := 0; i < n; i++ {
		s.Add(float64(i % 1000))
	}

	stats := s.GetStats()
	if stats.Count != n {
		t.Errorf("expected count %d, got %d", n, stats.Count)
	}
	if stats.Max != 999 {
		t.Errorf("expected max 999, got %f", stats.Max)
	}
	if stats.P50 < 300 || stats.P50 > 700 {
		t.Errorf("expected p50 near 500, got %f", stats.P50)
	}
}

func TestStreamingLatencyStats_Concurrent(t *testing.T) {
	s := NewStreamingLatencyStats()

	var wg sync.WaitGroup
	numGoroutines := 10
	samplesPerGoroutine := 1000

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < samplesPerGoroutine; j++ {
				s.Add(float64(id*100 + j%100))
			}
		}(i)
	}

	wg.Wait()

	stats := s.GetStats()
	if stats == nil {
		t.Fatal("expected non-nil stats")
	}

	expectedCount := numGoroutines * samplesPerGoroutine
	if stats.Count != expectedCount {
		t.Errorf("expected count %d, got %d", expectedCount, stats.Count)
	}
	if s.Count() != int64(expectedCount) {
		t.Errorf("expected Count() %d, got %d", expectedCount, s.Count())
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 0.5, 0},
		{"single", []float64{7}, 0.99, 7},
		{"median of two", []float64{10, 20}, 0.5, 15},
		{"max", []float64{1, 2, 3}, 1.0, 3},
		{"min", []float64{1, 2, 3}, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func BenchmarkStreamingLatencyStats_Add(b *testing.B) {
	s := NewStreamingLatencyStats()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.Add(float64(i % 1000))
	}
}

func BenchmarkStreamingLatencyStats_GetStats(b *testing.B) {
	s := NewStreamingLatencyStats()

	for i := 0; i < 10000; i++ {
		s.Add(float64(i % 1000))
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = s.GetStats()
	}
}
