package exerciser

import (
	"errors"
	"fmt"
	"time"

	"wsprobe/internal/config"
)

// Step is one scripted frame: wait Delay, then send Payload.
// Payload goes out unchanged unless Template is set.
type Step struct {
	Name     string
	Payload  string
	Delay    time.Duration
	Template bool
}

// Script is an ordered, immutable list of steps.
type Script []Step

// ScriptFromConfig converts configured steps, naming unnamed ones step-<n> (1-indexed).
func ScriptFromConfig(steps []config.StepConfig) Script {
	s := make(Script, len(steps))
	for i, sc := range steps {
		s[i] = Step{Name: sc.StepName(i), Payload: sc.Payload, Delay: sc.Delay(), Template: sc.Template}
	}
	return s
}

// Validate requires at least one step, no negative delays and unique
// non-empty names, since step names key the summary.
func (s Script) Validate() error {
	if len(s) == 0 {
		return errors.New("script is empty")
	}
	seen := make(map[string]bool, len(s))
	for i, step := range s {
		if step.Delay < 0 {
			return fmt.Errorf("step %d (%s): negative delay %v", i, step.Name, step.Delay)
		}
		if step.Name == "" {
			continue
		}
		if seen[step.Name] {
			return fmt.Errorf("step %d: duplicate name %q", i, step.Name)
		}
		seen[step.Name] = true
	}
	return nil
}

// TotalDelay is the minimum time needed to send every step.
func (s Script) TotalDelay() time.Duration {
	var total time.Duration
	for _, step := range s {
		total += step.Delay
	}
	return total
}
