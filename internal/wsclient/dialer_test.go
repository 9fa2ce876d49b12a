package wsclient

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wsprobe/internal/exerciser"
	"wsprobe/testserver"
)

func startServer(t *testing.T) (*testserver.Server, string) {
	t.Helper()
	server := testserver.NewServer()
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return server, "ws" + strings.TrimPrefix(ts.URL, "http")
}

// errorSink collects onError callbacks.
type errorSink struct {
	mu   sync.Mutex
	errs []error
	ch   chan struct{}
}

func newErrorSink() *errorSink {
	return &errorSink{ch: make(chan struct{}, 16)}
}

func (s *errorSink) observe(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
	s.ch <- struct{}{}
}

func (s *errorSink) Errors() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

func dialCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestDial_WriteAndClose(t *testing.T) {
	server, base := startServer(t)
	sink := newErrorSink()

	conn, err := (&Dialer{}).Dial(dialCtx(t), base+"/ws", sink.observe)
	require.NoError(t, err)

	ctx := dialCtx(t)
	require.NoError(t, conn.WriteText(ctx, "Hello, Server!"))
	require.NoError(t, conn.WriteText(ctx, "howdy"))
	require.True(t, server.WaitForMessages(2, 2*time.Second))
	assert.Equal(t, []string{"Hello, Server!", "howdy"}, server.Payloads())

	require.NoError(t, conn.Close())
	assert.Empty(t, sink.Errors(), "a local close must not be reported as an error")

	err = conn.WriteText(ctx, "late")
	assert.ErrorIs(t, err, exerciser.ErrSendOnClosed)

	// Close is idempotent
	assert.NoError(t, conn.Close())
}

func TestDial_DrainsEchoedFrames(t *testing.T) {
	server, base := startServer(t)
	sink := newErrorSink()

	conn, err := (&Dialer{}).Dial(dialCtx(t), base+"/ws?echo=true", sink.observe)
	require.NoError(t, err)

	ctx := dialCtx(t)
	for i := 0; i < 20; i++ {
		require.NoError(t, conn.WriteText(ctx, "ping"))
	}
	require.True(t, server.WaitForMessages(20, 2*time.Second))
	require.NoError(t, conn.Close())
	assert.Empty(t, sink.Errors())
}

func TestDial_RefusedConnection(t *testing.T) {
	// Bind and release a port so nothing is listening on it
	ts := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	ts.Close()

	_, err := (&Dialer{}).Dial(dialCtx(t), url, nil)
	require.Error(t, err)
}

func TestDial_RejectedHandshake(t *testing.T) {
	_, base := startServer(t)

	_, err := (&Dialer{}).Dial(dialCtx(t), base+"/ws/reject", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestDial_PeerCloseReportedOnce(t *testing.T) {
	_, base := startServer(t)
	sink := newErrorSink()

	conn, err := (&Dialer{}).Dial(dialCtx(t), base+"/ws/close?after=10", sink.observe)
	require.NoError(t, err)

	select {
	case <-sink.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected peer close to be reported")
	}
	errs := sink.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "closed by peer")

	err = conn.WriteText(dialCtx(t), "after peer close")
	assert.Error(t, err)
	_ = conn.Close()
	assert.Len(t, sink.Errors(), 1)
}

func TestDial_ContextDeadline(t *testing.T) {
	_, base := startServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := (&Dialer{}).Dial(ctx, base+"/ws/slow?ms=1000", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline"), "unexpected error: %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

// The tests below run the exerciser end to end against the recording server.

func TestExerciser_SendsScriptInOrder(t *testing.T) {
	server, base := startServer(t)
	e := &exerciser.Exerciser{Dialer: &Dialer{}}
	script := exerciser.Script{
		{Name: "a", Payload: "a", Delay: 10 * time.Millisecond},
		{Name: "b", Payload: "b", Delay: 10 * time.Millisecond},
		{Name: "c", Payload: "c"},
	}

	report, err := e.Run(context.Background(), base+"/ws", script, 200*time.Millisecond)
	require.NoError(t, err)

	require.True(t, server.WaitForMessages(3, 2*time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, server.Payloads())
	assert.Len(t, report.Sent, 3)
	assert.False(t, report.ErrorObserved, "errors: %v", report.Errors)
	assert.Equal(t, []exerciser.State{
		exerciser.StateConnecting, exerciser.StateOpen, exerciser.StateClosing, exerciser.StateClosed,
	}, report.Transitions)
	assert.GreaterOrEqual(t, report.Elapsed, 200*time.Millisecond)
}

func TestExerciser_TimeoutSkipsRemainingSteps(t *testing.T) {
	server, base := startServer(t)
	e := &exerciser.Exerciser{Dialer: &Dialer{}}
	script := exerciser.Script{
		{Name: "a", Payload: "a", Delay: 50 * time.Millisecond},
		{Name: "b", Payload: "b", Delay: 50 * time.Millisecond},
	}

	report, err := e.Run(context.Background(), base+"/ws", script, 70*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)

	// Give a stray "b" every chance to arrive before asserting it never did
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []string{"a"}, server.Payloads())
}

func TestExerciser_RefusedEndpoint(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	ts.Close()

	e := &exerciser.Exerciser{Dialer: &Dialer{}}
	report, err := e.Run(context.Background(), url, exerciser.Script{{Payload: "x"}}, time.Second)
	require.NoError(t, err)

	assert.True(t, report.ErrorObserved)
	require.Len(t, report.Errors, 1)
	assert.ErrorIs(t, report.Errors[0], exerciser.ErrConnection)
	assert.Empty(t, report.Sent)
	assert.Less(t, report.Elapsed, time.Second)
}

func TestExerciser_PeerCloseThenSendFails(t *testing.T) {
	_, base := startServer(t)
	e := &exerciser.Exerciser{Dialer: &Dialer{}}
	script := exerciser.Script{{Payload: "late", Delay: 100 * time.Millisecond}}

	report, err := e.Run(context.Background(), base+"/ws/close?after=0", script, 300*time.Millisecond)
	require.NoError(t, err)

	assert.True(t, report.ErrorObserved)
	assert.Empty(t, report.Sent)
	assert.Equal(t, 1, report.Failed)
	assert.GreaterOrEqual(t, len(report.Errors), 2, "expected the peer close and the failed send, got %v", report.Errors)
}

func TestExerciser_IndependentEndpoints(t *testing.T) {
	s1, base1 := startServer(t)
	s2, base2 := startServer(t)
	e := &exerciser.Exerciser{Dialer: &Dialer{}}

	var wg sync.WaitGroup
	for _, target := range []struct{ url, payload string }{{base1 + "/ws", "one"}, {base2 + "/ws", "two"}} {
		wg.Add(1)
		go func(url, payload string) {
			defer wg.Done()
			_, err := e.Run(context.Background(), url, exerciser.Script{{Payload: payload}}, 50*time.Millisecond)
			assert.NoError(t, err)
		}(target.url, target.payload)
	}
	wg.Wait()

	assert.Equal(t, []string{"one"}, s1.Payloads())
	assert.Equal(t, []string{"two"}, s2.Payloads())
	assert.Equal(t, int64(1), s1.Connections())
	assert.Equal(t, int64(1), s2.Connections())
}
