package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseStep parses a command-line step of the form "payload@delay".
// The delay accepts a Go duration ("1500ms", "2s") or a bare millisecond count.
// Without an "@" the delay is zero. The last "@" separates the delay, so
// payloads may themselves contain "@". When the text after the last "@" does
// not start with a digit or sign it is not a delay, and the whole string is
// the payload: "user@example.com" sends as-is.
func ParseStep(s string) (StepConfig, error) {
	idx := strings.LastIndex(s, "@")
	if idx == -1 {
		return StepConfig{Payload: s}, nil
	}

	payload, raw := s[:idx], strings.TrimSpace(s[idx+1:])
	if raw != "" && !looksLikeDelay(raw) {
		return StepConfig{Payload: s}, nil
	}
	if raw == "" {
		return StepConfig{}, fmt.Errorf("step %q: empty delay after @", s)
	}

	ms, err := strconv.Atoi(raw)
	if err != nil {
		d, derr := time.ParseDuration(raw)
		if derr != nil {
			return StepConfig{}, fmt.Errorf("step %q: invalid delay %q", s, raw)
		}
		ms = int(d / time.Millisecond)
	}
	if ms < 0 {
		return StepConfig{}, fmt.Errorf("step %q: delay must be >= 0", s)
	}

	return StepConfig{Payload: payload, DelayMs: ms}, nil
}

func looksLikeDelay(s string) bool {
	c := s[0]
	return (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.'
}
