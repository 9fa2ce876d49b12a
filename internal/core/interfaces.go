// Package core defines the fundamental interfaces and types shared by wsprobe components.
package core

import (
	"context"
	"time"
)

// Event represents a single attempted frame in an exerciser run.
type Event struct {
	ConnID    int
	RunID     string
	Timestamp time.Time
	Step      string
	Index     int           // 0-based position in the script
	Offset    time.Duration // time since run start when the send was attempted
	Duration  time.Duration // write latency
	Success   bool
	Error     string
	BytesSent int64
}

// Job is one independent unit of work started by the coordinator.
// Each call to Run owns its resources; nothing is shared between calls.
type Job interface {
	Run(ctx context.Context, connID int, rep Reporter) error
}

// Reporter is the interface runs use to send events to the Collector.
type Reporter interface {
	Report(Event)
}

// NullReporter discards all events.
var NullReporter Reporter = nullReporter{}

type nullReporter struct{}

func (nullReporter) Report(Event) {}
