// Package coordinator starts independent exerciser runs and waits for them.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"wsprobe/internal/core"
	"wsprobe/internal/logging"
)

type Coordinator struct {
	nextID      atomic.Int64
	wg          sync.WaitGroup
	reporter    core.Reporter
	logger      *slog.Logger
	activeCount atomic.Int32

	errMu sync.Mutex
	errs  []error
}

func NewCoordinator(reporter core.Reporter) *Coordinator {
	if reporter == nil {
		reporter = core.NullReporter
	}
	return &Coordinator{
		reporter: reporter,
		logger:   logging.Nop(),
	}
}

// WithLogger sets the logger used for run failures and recovered panics.
func (c *Coordinator) WithLogger(logger *slog.Logger) *Coordinator {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Spawn starts count runs of job, each on its own goroutine with its own
// connection ID. Each run executes exactly once.
func (c *Coordinator) Spawn(ctx context.Context, count int, job core.Job) {
	for i := 0; i < count; i++ {
		connID := int(c.nextID.Add(1))
		c.activeCount.Add(1)
		c.wg.Add(1)
		go func(id int) {
			defer func() {
				c.activeCount.Add(-1)
				c.wg.Done()
			}()
			defer c.recoverPanic(id)

			if ctx.Err() != nil {
				return
			}
			if err := job.Run(ctx, id, c.reporter); err != nil {
				c.recordError(fmt.Errorf("conn %d: %w", id, err))
			}
		}(connID)
	}
}

// Wait blocks until every spawned run has returned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// ActiveRuns returns the number of runs still executing.
func (c *Coordinator) ActiveRuns() int {
	return int(c.activeCount.Load())
}

// Err returns the errors returned by runs, joined, or nil.
func (c *Coordinator) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return errors.Join(c.errs...)
}

func (c *Coordinator) recordError(err error) {
	c.logger.Error("run failed", "error", err)
	c.errMu.Lock()
	c.errs = append(c.errs, err)
	c.errMu.Unlock()
}

// recoverPanic recovers from panics in run goroutines and reports them as failed events.
func (c *Coordinator) recoverPanic(connID int) {
	if r := recover(); r != nil {
		err := fmt.Errorf("panic: %v", r)
		c.reporter.Report(core.Event{
			ConnID:  connID,
			Step:    "panic",
			Success: false,
			Error:   err.Error(),
		})
		c.recordError(fmt.Errorf("conn %d: %w", connID, err))
	}
}
