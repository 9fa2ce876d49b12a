// Package exerciser drives a single WebSocket connection through a scripted
// send sequence and reports its lifecycle.
//
// A run dials the endpoint, waits each step's delay on a timer, sends the
// step's payload as one text frame, and force-closes the connection when the
// overall timeout elapses, whether or not the script has finished. The
// timeout preempts a pending delay: steps whose delay has not elapsed by the
// deadline are never sent and are counted as skipped.
//
// Transport errors are logged and recorded but never retried, and they do not
// stop the script; later sends on a broken connection simply fail and are
// logged in turn.
package exerciser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"wsprobe/internal/config"
	"wsprobe/internal/core"
	"wsprobe/internal/logging"
	"wsprobe/internal/ratelimit"
	"wsprobe/internal/template"
)

// Exerciser holds the collaborators for runs. Its fields are read-only during
// Run, so one Exerciser may serve concurrent runs; each run has its own connection.
type Exerciser struct {
	Dialer   Dialer
	Logger   *slog.Logger  // nil discards
	Clock    core.Clock    // nil uses RealClock
	Reporter core.Reporter // nil discards
	// SendRate caps frames per second within a run, 0 = unlimited.
	SendRate int
	// HandshakeTimeout bounds the dial, 0 = bounded by the overall timeout only.
	HandshakeTimeout time.Duration
}

// Frame is a payload that was written successfully.
type Frame struct {
	Index   int
	Step    string
	Payload string
	Offset  time.Duration // since run start
}

// Report is the outcome of one run.
type Report struct {
	RunID         string
	ConnID        int
	Endpoint      string
	Transitions   []State
	Sent          []Frame
	Failed        int // steps attempted but not written
	Skipped       int // steps never attempted because the connection closed first
	Errors        []error
	ErrorObserved bool
	Elapsed       time.Duration
}

// run is the per-call state. Only the goroutine executing Run touches conn.
type run struct {
	id       string
	connID   int
	endpoint string
	log      *slog.Logger
	clock    core.Clock
	rep      core.Reporter
	start    time.Time
	life     *lifecycle
	vars     *core.MapVariables

	errObserved atomic.Bool
	mu          sync.Mutex
	errs        []error
	sent        []Frame
	failed      int
}

// Run exercises endpoint with script and force-closes after timeout.
// The returned error is non-nil only for invalid arguments; connection and
// send failures are logged and recorded in the Report.
func (e *Exerciser) Run(ctx context.Context, endpoint string, script Script, timeout time.Duration) (*Report, error) {
	if err := config.ValidateEndpoint(endpoint); err != nil {
		return nil, err
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0, got %v", timeout)
	}
	if e.Dialer == nil {
		return nil, errors.New("exerciser: no dialer configured")
	}

	r := e.newRun(ctx, endpoint)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, ok := r.dial(ctx, e.Dialer, e.HandshakeTimeout)
	if !ok {
		return r.report(len(script)), nil
	}

	defer func() {
		if p := recover(); p != nil {
			if r.life.state() == StateOpen {
				r.close(conn, "panic")
			}
			panic(p)
		}
	}()

	skipped := r.execute(ctx, conn, script, ratelimit.NewPacer(e.SendRate))

	<-ctx.Done()
	reason := "timeout"
	if errors.Is(ctx.Err(), context.Canceled) {
		reason = "cancelled"
	}
	r.close(conn, reason)

	return r.report(skipped), nil
}

func (e *Exerciser) newRun(ctx context.Context, endpoint string) *run {
	logger := e.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	clock := e.Clock
	if clock == nil {
		clock = core.RealClock{}
	}
	rep := e.Reporter
	if rep == nil {
		rep = core.NullReporter
	}

	r := &run{
		id:       uuid.NewString(),
		connID:   core.ConnIDFromContext(ctx),
		endpoint: endpoint,
		clock:    clock,
		rep:      rep,
		start:    clock.Now(),
		life:     newLifecycle(),
		vars:     core.NewVariables(),
	}
	r.log = logger.With("conn", r.connID, "run_id", r.id, "endpoint", endpoint)
	r.vars.Set("run_id", r.id)
	r.vars.Set("conn_id", r.connID)
	return r
}

func (r *run) dial(ctx context.Context, d Dialer, handshakeTimeout time.Duration) (Conn, bool) {
	dialCtx := ctx
	if handshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, handshakeTimeout)
		defer cancel()
	}

	r.log.Debug("connecting")
	conn, err := d.Dial(dialCtx, r.endpoint, func(err error) {
		r.observe(&ConnectionError{Endpoint: r.endpoint, Op: "read", Err: err})
	})
	if err != nil {
		r.observe(&ConnectionError{Endpoint: r.endpoint, Op: "dial", Err: err})
		r.mustTransition(StateClosed)
		r.log.Info("connection closed", "reason", "dial failed")
		return nil, false
	}

	r.mustTransition(StateOpen)
	r.log.Info("connection established")
	return conn, true
}

// execute sends the script in order and returns how many steps were never attempted.
func (r *run) execute(ctx context.Context, conn Conn, script Script, pacer *ratelimit.Pacer) int {
	for i, step := range script {
		if !sleep(ctx, step.Delay) {
			return len(script) - i
		}
		if err := pacer.Wait(ctx); err != nil {
			return len(script) - i
		}
		r.send(ctx, conn, i, step)
	}
	r.log.Debug("script complete, holding connection until timeout", "steps", len(script))
	return 0
}

func (r *run) send(ctx context.Context, conn Conn, index int, step Step) {
	r.vars.Set("step", step.Name)
	r.vars.Set("index", index)

	ev := core.Event{
		ConnID:    r.connID,
		RunID:     r.id,
		Timestamp: r.clock.Now(),
		Step:      step.Name,
		Index:     index,
		Offset:    r.clock.Since(r.start),
	}
	defer func() { r.rep.Report(ev) }()

	payload := step.Payload
	if step.Template {
		var err error
		if payload, err = template.Substitute(step.Payload, r.vars); err != nil {
			err = fmt.Errorf("step %s: payload substitution: %w", step.Name, err)
			r.recordFailure(&ev, err)
			r.recordError(err)
			r.log.Warn("payload substitution failed", "step", step.Name, "error", err)
			return
		}
	}

	var werr error
	if st := r.life.state(); st != StateOpen {
		werr = fmt.Errorf("%w (state %s)", ErrSendOnClosed, st)
	} else {
		werr = conn.WriteText(ctx, payload)
	}
	ev.Duration = r.clock.Since(ev.Timestamp)

	if werr != nil {
		if !errors.Is(werr, ErrSendOnClosed) {
			werr = &ConnectionError{Endpoint: r.endpoint, Op: "write", Err: werr}
		}
		r.recordFailure(&ev, werr)
		r.observe(werr)
		return
	}

	ev.Success = true
	ev.BytesSent = int64(len(payload))
	r.mu.Lock()
	r.sent = append(r.sent, Frame{Index: index, Step: step.Name, Payload: payload, Offset: ev.Offset})
	r.mu.Unlock()
	r.log.Debug("frame sent", "step", step.Name, "index", index, "bytes", len(payload))
}

func (r *run) close(conn Conn, reason string) {
	r.mustTransition(StateClosing)
	if err := conn.Close(); err != nil {
		r.log.Debug("close returned error", "error", err)
	}
	r.mustTransition(StateClosed)
	r.log.Info("connection closed", "reason", reason, "elapsed", r.clock.Since(r.start).Round(time.Millisecond))
}

// observe logs an error and marks the run as having seen one. Safe for concurrent use.
func (r *run) observe(err error) {
	r.recordError(err)
	if errors.Is(err, ErrSendOnClosed) {
		r.log.Warn("send on closed connection", "error", err)
		return
	}
	r.log.Error("websocket error", "error", err)
}

func (r *run) recordError(err error) {
	r.errObserved.Store(true)
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *run) recordFailure(ev *core.Event, err error) {
	ev.Success = false
	ev.Error = err.Error()
	r.mu.Lock()
	r.failed++
	r.mu.Unlock()
}

func (r *run) mustTransition(to State) {
	if err := r.life.transition(to); err != nil {
		panic(err)
	}
}

func (r *run) report(skipped int) *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Report{
		RunID:         r.id,
		ConnID:        r.connID,
		Endpoint:      r.endpoint,
		Transitions:   r.life.states(),
		Sent:          append([]Frame(nil), r.sent...),
		Failed:        r.failed,
		Skipped:       skipped,
		Errors:        append([]error(nil), r.errs...),
		ErrorObserved: r.errObserved.Load(),
		Elapsed:       r.clock.Since(r.start),
	}
}

// sleep waits d on a timer and reports whether it elapsed before ctx was done.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
