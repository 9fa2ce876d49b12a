// Package progress redraws a one-line run status on stderr while connections are open.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const defaultInterval = time.Second

// Counts is a snapshot of the runs in flight.
type Counts struct {
	Open   int
	Sent   int
	Failed int
}

// Line periodically writes Render output, overwriting itself with \r.
// A nil *Line is valid and does nothing.
type Line struct {
	out      io.Writer
	counts   func() Counts
	interval time.Duration

	start    time.Time
	stop     chan struct{}
	finished chan struct{}
	once     sync.Once
}

func New(out io.Writer, counts func() Counts) *Line {
	return &Line{out: out, counts: counts, interval: defaultInterval}
}

// Start begins redrawing. Call it at most once.
func (l *Line) Start() {
	if l == nil {
		return
	}
	l.start = time.Now()
	l.stop = make(chan struct{})
	l.finished = make(chan struct{})
	go l.loop()
}

func (l *Line) loop() {
	defer close(l.finished)
	tick := time.NewTicker(l.interval)
	defer tick.Stop()
	for {
		select {
		case <-l.stop:
			fmt.Fprint(l.out, "\033[K")
			return
		case <-tick.C:
			fmt.Fprint(l.out, "\033[K"+Render(time.Since(l.start), l.counts())+"\r")
		}
	}
}

// Stop clears the line and returns once nothing more will be written. Idempotent.
func (l *Line) Stop() {
	if l == nil || l.stop == nil {
		return
	}
	l.once.Do(func() { close(l.stop) })
	<-l.finished
}

// Render formats one status line, e.g. "[01:05] Open: 3 | Sent: 12 | Failed: 0".
func Render(elapsed time.Duration, c Counts) string {
	elapsed = elapsed.Round(time.Second)
	return fmt.Sprintf("[%02d:%02d] Open: %d | Sent: %d | Failed: %d",
		int(elapsed.Minutes()), int(elapsed.Seconds())%60, c.Open, c.Sent, c.Failed)
}
