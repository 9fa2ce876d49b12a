package exerciser

import "testing"

func TestLifecycle_LegalPath(t *testing.T) {
	l := newLifecycle()
	if l.state() != StateConnecting {
		t.Fatalf("expected initial state connecting, got %s", l.state())
	}

	for _, to := range []State{StateOpen, StateClosing, StateClosed} {
		if err := l.transition(to); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}

	got := l.states()
	want := []State{StateConnecting, StateOpen, StateClosing, StateClosed}
	if len(got) != len(want) {
		t.Fatalf("expected history %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestLifecycle_DialFailurePath(t *testing.T) {
	l := newLifecycle()
	if err := l.transition(StateClosed); err != nil {
		t.Fatalf("connecting -> closed should be legal: %v", err)
	}
}

func TestLifecycle_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []State
		bad  State
	}{
		{"connecting to closing", nil, StateClosing},
		{"open skipped to closed", []State{StateOpen}, StateClosed},
		{"reopen after close", []State{StateOpen, StateClosing, StateClosed}, StateOpen},
		{"closed is terminal", []State{StateClosed}, StateConnecting},
		{"open twice", []State{StateOpen}, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLifecycle()
			for _, s := range tt.path {
				if err := l.transition(s); err != nil {
					t.Fatalf("setup transition to %s: %v", s, err)
				}
			}
			before := l.state()
			if err := l.transition(tt.bad); err == nil {
				t.Errorf("expected %s -> %s to be rejected", before, tt.bad)
			}
			if l.state() != before {
				t.Errorf("rejected transition changed state to %s", l.state())
			}
		})
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateConnecting: "connecting",
		StateOpen:       "open",
		StateClosing:    "closing",
		StateClosed:     "closed",
		State(42):       "State(42)",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("State(%d).String() = %q, want %q", int32(s), s.String(), want)
		}
	}
}
