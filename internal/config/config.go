// Package config handles YAML configuration parsing and built-in scenarios.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEndpoint is the local test server address.
const DefaultEndpoint = "ws://127.0.0.1:8000"

// Config is the root configuration structure.
type Config struct {
	Endpoint  string          `yaml:"endpoint"`
	TimeoutMs int             `yaml:"timeout-ms"`
	Script    []StepConfig    `yaml:"script"`
	Execution ExecutionConfig `yaml:"execution,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// StepConfig defines a single scripted frame.
// The payload is sent byte-for-byte unless Template is set.
type StepConfig struct {
	Name     string `yaml:"name,omitempty"`
	Payload  string `yaml:"payload"`
	DelayMs  int    `yaml:"delay-ms"`
	Template bool   `yaml:"template,omitempty"`
}

// ExecutionConfig controls how many runs are started and how they send.
type ExecutionConfig struct {
	Connections        int `yaml:"connections"`
	SendRate           int `yaml:"send-rate"`            // frames/sec per run, 0 = unlimited
	HandshakeTimeoutMs int `yaml:"handshake-timeout-ms"` // 0 = bounded by timeout-ms only
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Timeout returns the forced-close deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// HandshakeTimeout returns the dial timeout, or 0 when unset.
func (c *Config) HandshakeTimeout() time.Duration {
	return time.Duration(c.Execution.HandshakeTimeoutMs) * time.Millisecond
}

// TotalDelay returns the sum of all step delays.
func (c *Config) TotalDelay() time.Duration {
	var total time.Duration
	for _, s := range c.Script {
		total += s.Delay()
	}
	return total
}

// Delay returns the wait before this step's frame is sent.
func (s StepConfig) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

// StepName returns the step's name, or step-<n> (1-indexed) when unnamed.
func (s StepConfig) StepName(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step-%d", index+1)
}

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Execution.Connections == 0 {
		c.Execution.Connections = 1
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate reports every problem in the configuration, joined.
func (c *Config) Validate() error {
	var errs []error

	if err := ValidateEndpoint(c.Endpoint); err != nil {
		errs = append(errs, err)
	}
	if c.TimeoutMs <= 0 {
		errs = append(errs, fmt.Errorf("timeout-ms must be > 0, got %d", c.TimeoutMs))
	}
	if len(c.Script) == 0 {
		errs = append(errs, errors.New("script must contain at least one step"))
	}
	seen := make(map[string]int, len(c.Script))
	for i, s := range c.Script {
		if s.DelayMs < 0 {
			errs = append(errs, fmt.Errorf("script[%d]: delay-ms must be >= 0, got %d", i, s.DelayMs))
		}
		name := s.StepName(i)
		if first, dup := seen[name]; dup {
			errs = append(errs, fmt.Errorf("script[%d]: duplicate step name %q (also script[%d])", i, name, first))
			continue
		}
		seen[name] = i
	}
	if c.Execution.Connections < 1 {
		errs = append(errs, fmt.Errorf("execution.connections must be >= 1, got %d", c.Execution.Connections))
	}
	if c.Execution.SendRate < 0 {
		errs = append(errs, fmt.Errorf("execution.send-rate must be >= 0, got %d", c.Execution.SendRate))
	}
	if c.Execution.HandshakeTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("execution.handshake-timeout-ms must be >= 0, got %d", c.Execution.HandshakeTimeoutMs))
	}

	return errors.Join(errs...)
}

// ValidateEndpoint checks that endpoint is an absolute ws:// or wss:// URI with a host.
func ValidateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid endpoint %q: scheme must be ws or wss", endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	return nil
}

// LoadConfig reads and parses a YAML configuration file.
// Defaults are applied; validation is left to the caller so CLI overrides can run first.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.ApplyDefaults()

	return &cfg, nil
}
