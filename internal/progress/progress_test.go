package progress

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// lockedBuffer is written by the redraw goroutine and read by the test.
type lockedBuffer struct {
	mu sync.Mutex
	sb strings.Builder
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sb.String()
}

func TestRender(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		counts  Counts
		want    string
	}{
		{0, Counts{}, "[00:00] Open: 0 | Sent: 0 | Failed: 0"},
		{65 * time.Second, Counts{Open: 3, Sent: 12, Failed: 1}, "[01:05] Open: 3 | Sent: 12 | Failed: 1"},
		{1499 * time.Millisecond, Counts{Open: 1}, "[00:01] Open: 1 | Sent: 0 | Failed: 0"},
	}
	for _, tt := range tests {
		if got := Render(tt.elapsed, tt.counts); got != tt.want {
			t.Errorf("Render(%v, %+v) = %q, want %q", tt.elapsed, tt.counts, got, tt.want)
		}
	}
}

func TestLine_RedrawsCounts(t *testing.T) {
	var buf lockedBuffer
	l := New(&buf, func() Counts { return Counts{Open: 2, Sent: 5, Failed: 1} })
	l.interval = 5 * time.Millisecond

	l.Start()
	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(buf.String(), "Open: 2 | Sent: 5 | Failed: 1") && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	l.Stop()

	out := buf.String()
	if !strings.Contains(out, "Open: 2 | Sent: 5 | Failed: 1\r") {
		t.Errorf("expected status line, got %q", out)
	}
	if !strings.HasSuffix(out, "\033[K") {
		t.Errorf("expected line cleared on Stop, got %q", out)
	}
}

func TestLine_StopIsIdempotent(t *testing.T) {
	l := New(&lockedBuffer{}, func() Counts { return Counts{} })
	l.Start()
	l.Stop()
	l.Stop()
}

func TestLine_NoOutputAfterStop(t *testing.T) {
	var buf lockedBuffer
	l := New(&buf, func() Counts { return Counts{} })
	l.interval = time.Millisecond

	l.Start()
	time.Sleep(10 * time.Millisecond)
	l.Stop()
	after := buf.String()
	time.Sleep(10 * time.Millisecond)

	if buf.String() != after {
		t.Error("expected no writes after Stop returned")
	}
}

func TestLine_NilAndUnstarted(t *testing.T) {
	var nilLine *Line
	nilLine.Start()
	nilLine.Stop()

	New(&lockedBuffer{}, nil).Stop()
}
