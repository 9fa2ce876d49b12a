package collector

import (
	"time"

	"wsprobe/internal/core"
)

// ComputeMetrics computes metrics from events. Pure function, no side effects.
// Write latencies only include frames that were actually sent.
func ComputeMetrics(events []core.Event, testDuration time.Duration) *Metrics {
	m := &Metrics{
		Steps:        make(map[string]*StepMetrics),
		TestDuration: testDuration,
	}
	if len(events) == 0 {
		return m
	}

	runs := make(map[string]struct{})
	var writes []time.Duration
	stepWrites := make(map[string][]time.Duration)

	for _, e := range events {
		runs[e.RunID] = struct{}{}
		m.Attempted++

		step, ok := m.Steps[e.Step]
		if !ok {
			step = &StepMetrics{Index: e.Index}
			m.Steps[e.Step] = step
		}
		step.Attempted++

		if !e.Success {
			m.Failed++
			step.Failed++
			continue
		}
		m.Sent++
		step.Sent++
		m.BytesSent += e.BytesSent
		writes = append(writes, e.Duration)
		stepWrites[e.Step] = append(stepWrites[e.Step], e.Duration)
	}

	m.Runs = len(runs)
	m.SuccessRate = float64(m.Sent) / float64(m.Attempted) * 100
	if testDuration > 0 {
		m.FramesPerSec = float64(m.Sent) / testDuration.Seconds()
	}

	m.Write = ComputeDurationMetrics(writes)
	for name, d := range stepWrites {
		m.Steps[name].Write = ComputeDurationMetrics(d)
	}
	return m
}
