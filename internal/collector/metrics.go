package collector

import (
	"sort"
	"time"
)

// Metrics summarizes every frame attempted across all runs.
type Metrics struct {
	Runs         int
	Attempted    int
	Sent         int
	Failed       int
	BytesSent    int64
	SuccessRate  float64
	FramesPerSec float64
	TestDuration time.Duration
	Write        DurationMetrics
	Steps        map[string]*StepMetrics
}

// DurationMetrics contains write-latency statistics.
type DurationMetrics struct {
	Min time.Duration
	Max time.Duration
	Avg time.Duration
	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
}

// StepMetrics contains per-step statistics.
type StepMetrics struct {
	Index     int // script position, for stable ordering
	Attempted int
	Sent      int
	Failed    int
	Write     DurationMetrics
}

// ComputePercentile returns the nearest-rank percentile of an ascending slice.
// p is between 0 and 1 (0.95 for p95).
func ComputePercentile(sorted []time.Duration, p float64) time.Duration {
	switch {
	case len(sorted) == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[len(sorted)-1]
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

// ComputeDurationMetrics calculates all duration statistics. The input is not modified.
func ComputeDurationMetrics(durations []time.Duration) DurationMetrics {
	if len(durations) == 0 {
		return DurationMetrics{}
	}

	sorted := append([]time.Duration(nil), durations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return DurationMetrics{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: total / time.Duration(len(sorted)),
		P50: ComputePercentile(sorted, 0.50),
		P90: ComputePercentile(sorted, 0.90),
		P95: ComputePercentile(sorted, 0.95),
		P99: ComputePercentile(sorted, 0.99),
	}
}
