// Package metrics provides latency tracking with percentile calculations.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps the most recent samples and reports percentiles over them.
type LatencyTracker struct {
	mu         sync.Mutex
	samples    []time.Duration
	next       int
	full       bool
	maxSamples int
	count      int64
}

func NewLatencyTracker(windowSize int) *LatencyTracker {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &LatencyTracker{
		samples:    make([]time.Duration, windowSize),
		maxSamples: windowSize,
	}
}

// Record adds one measurement, overwriting the oldest when the window is full.
func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.samples[lt.next] = d
	lt.next++
	if lt.next == lt.maxSamples {
		lt.next = 0
		lt.full = true
	}
	lt.count++
}

// Stats summarizes the samples currently in the window. Count is the total
// number of measurements ever recorded.
func (lt *LatencyTracker) Stats() LatencyStats {
	lt.mu.Lock()
	n := lt.next
	if lt.full {
		n = lt.maxSamples
	}
	window := make([]time.Duration, n)
	copy(window, lt.samples[:n])
	count := lt.count
	lt.mu.Unlock()

	if n == 0 {
		return LatencyStats{}
	}
	sort.Slice(window, func(i, j int) bool { return window[i] < window[j] })

	var sum time.Duration
	for _, v := range window {
		sum += v
	}
	return LatencyStats{
		Count:   count,
		Samples: n,
		MinMs:   millis(window[0]),
		MaxMs:   millis(window[n-1]),
		AvgMs:   millis(sum / time.Duration(n)),
		P50Ms:   millis(percentile(window, 0.50)),
		P95Ms:   millis(percentile(window, 0.95)),
		P99Ms:   millis(percentile(window, 0.99)),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	return sorted[int(float64(len(sorted)-1)*p)]
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// LatencyStats is reported in milliseconds.
type LatencyStats struct {
	Count   int64   `json:"count"`
	Samples int     `json:"samples"`
	MinMs   float64 `json:"min_ms"`
	MaxMs   float64 `json:"max_ms"`
	AvgMs   float64 `json:"avg_ms"`
	P50Ms   float64 `json:"p50_ms"`
	P95Ms   float64 `json:"p95_ms"`
	P99Ms   float64 `json:"p99_ms"`
}
