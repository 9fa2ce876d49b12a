package exerciser

import (
	"fmt"
	"sync"
)

// State is a connection lifecycle state.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// allowed lists legal next states. connecting -> closed covers a failed handshake.
var allowed = map[State][]State{
	StateConnecting: {StateOpen, StateClosed},
	StateOpen:       {StateClosing},
	StateClosing:    {StateClosed},
}

// lifecycle tracks one connection's state and every state it has entered.
type lifecycle struct {
	mu      sync.Mutex
	current State
	history []State
}

func newLifecycle() *lifecycle {
	return &lifecycle{current: StateConnecting, history: []State{StateConnecting}}
}

func (l *lifecycle) transition(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, next := range allowed[l.current] {
		if next == to {
			l.current = to
			l.history = append(l.history, to)
			return nil
		}
	}
	return fmt.Errorf("illegal state transition %s -> %s", l.current, to)
}

func (l *lifecycle) state() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

func (l *lifecycle) states() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.history...)
}
