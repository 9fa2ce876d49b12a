package exerciser

import (
	"context"
	"sync"
	"time"

	"wsprobe/internal/core"
)

// Job adapts an Exerciser to core.Job so the coordinator can start several
// independent runs. Each Run call dials its own connection.
type Job struct {
	Exerciser *Exerciser
	Endpoint  string
	Script    Script
	Timeout   time.Duration

	mu      sync.Mutex
	reports []*Report
}

func (j *Job) Run(ctx context.Context, connID int, rep core.Reporter) error {
	ctx = core.ContextWithConnID(ctx, connID)

	e := *j.Exerciser
	e.Reporter = rep

	report, err := e.Run(ctx, j.Endpoint, j.Script, j.Timeout)
	if err != nil {
		return err
	}

	j.mu.Lock()
	j.reports = append(j.reports, report)
	j.mu.Unlock()
	return nil
}

// Reports returns the reports of completed runs in completion order.
func (j *Job) Reports() []*Report {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]*Report(nil), j.reports...)
}
