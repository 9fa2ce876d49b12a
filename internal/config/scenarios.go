package config

import (
	"fmt"
	"sort"
	"strings"
)

// longFrame is the oversized first frame of the "burst" scenario.
var longFrame = strings.Repeat("h", 252)

var scenarios = map[string]Config{
	"hello": {
		Endpoint:  DefaultEndpoint,
		TimeoutMs: 5000,
		Script: []StepConfig{
			{Name: "greeting", Payload: "Hello, Server!"},
		},
	},
	"burst": {
		Endpoint:  DefaultEndpoint,
		TimeoutMs: 5000,
		Script: []StepConfig{
			{Name: "long", Payload: longFrame, DelayMs: 1500},
			{Name: "howdy", Payload: "howdy", DelayMs: 2500},
			{Name: "wazz", Payload: "wazz good g", DelayMs: 1000},
		},
	},
}

// Scenario returns a copy of a built-in named scenario with defaults applied.
func Scenario(name string) (*Config, error) {
	sc, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q (available: %s)", name, strings.Join(ScenarioNames(), ", "))
	}
	cfg := sc
	cfg.Script = append([]StepConfig(nil), sc.Script...)
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ScenarioNames lists the built-in scenarios in sorted order.
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
