package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"wsprobe/internal/collector"
	"wsprobe/internal/config"
	"wsprobe/internal/coordinator"
	"wsprobe/internal/exerciser"
	"wsprobe/internal/logging"
	"wsprobe/internal/progress"
	"wsprobe/internal/wsclient"
)

const defaultScenario = "hello"

type options struct {
	configPath  string
	scenario    string
	endpoint    string
	timeout     time.Duration
	steps       []string
	connections int
	sendRate    int
	logLevel    string
	logFormat   string
	output      string
	progress    bool
	template    bool
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "wsprobe",
		Short: "Scripted WebSocket connection exerciser",
		Long: `wsprobe opens a WebSocket connection, sends an ordered script of text
frames separated by delays, logs the connection lifecycle and force-closes
the connection when the overall timeout elapses.

The script comes from --step flags, a YAML file (--config) or a built-in
scenario (--scenario: ` + fmt.Sprint(config.ScenarioNames()) + `). Flags override file values.
Connection errors are logged and do not change the exit code.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	f.StringVarP(&opts.scenario, "scenario", "s", "", "built-in scenario name")
	f.StringVarP(&opts.endpoint, "endpoint", "e", "", "WebSocket endpoint (ws:// or wss://)")
	f.DurationVarP(&opts.timeout, "timeout", "t", 0, "overall timeout before the connection is force-closed")
	f.StringArrayVar(&opts.steps, "step", nil, `script step "payload@delay" (repeatable, replaces the script)`)
	f.IntVarP(&opts.connections, "connections", "n", 0, "number of independent concurrent runs")
	f.IntVar(&opts.sendRate, "send-rate", 0, "frames/sec ceiling per run (0 = unlimited)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "", "log format: text, json")
	f.StringVarP(&opts.output, "output", "o", "text", "summary format: text, json")
	f.BoolVar(&opts.template, "template", false, "expand ${...} placeholders in every step's payload")
	f.BoolVar(&opts.progress, "progress", false, "print a live status line to stderr while runs are open")

	cmd.MarkFlagsMutuallyExclusive("config", "scenario")

	return cmd
}

// resolveConfig builds the effective configuration: file or scenario first,
// then flag overrides, then validation.
func resolveConfig(cmd *cobra.Command, opts *options) (*config.Config, error) {
	if opts.output != "text" && opts.output != "json" {
		return nil, fmt.Errorf("--output must be 'text' or 'json', got %q", opts.output)
	}

	var cfg *config.Config
	var err error
	switch {
	case opts.configPath != "":
		cfg, err = config.LoadConfig(opts.configPath)
	case opts.scenario != "":
		cfg, err = config.Scenario(opts.scenario)
	case len(opts.steps) > 0:
		cfg = &config.Config{TimeoutMs: 5000}
		cfg.ApplyDefaults()
	default:
		cfg, err = config.Scenario(defaultScenario)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Endpoint = opts.endpoint
	}
	if flags.Changed("timeout") {
		cfg.TimeoutMs = int(opts.timeout / time.Millisecond)
	}
	if len(opts.steps) > 0 {
		cfg.Script = nil
		for _, s := range opts.steps {
			step, err := config.ParseStep(s)
			if err != nil {
				return nil, err
			}
			cfg.Script = append(cfg.Script, step)
		}
	}
	if opts.template {
		for i := range cfg.Script {
			cfg.Script[i].Template = true
		}
	}
	if flags.Changed("connections") {
		cfg.Execution.Connections = opts.connections
	}
	if flags.Changed("send-rate") {
		cfg.Execution.SendRate = opts.sendRate
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return nil, err
	}
	if _, err := logging.ParseFormat(cfg.Logging.Format); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, opts *options, stdout, stderr io.Writer) error {
	level, _ := logging.ParseLevel(cfg.Logging.Level)
	format, _ := logging.ParseFormat(cfg.Logging.Format)
	logger := logging.New(logging.Config{Level: level, Format: format, Output: stderr})

	coll := collector.NewCollector()
	coord := coordinator.NewCoordinator(coll).WithLogger(logger)

	job := &exerciser.Job{
		Exerciser: &exerciser.Exerciser{
			Dialer:           &wsclient.Dialer{Logger: logger},
			Logger:           logger,
			SendRate:         cfg.Execution.SendRate,
			HandshakeTimeout: cfg.HandshakeTimeout(),
		},
		Endpoint: cfg.Endpoint,
		Script:   exerciser.ScriptFromConfig(cfg.Script),
		Timeout:  cfg.Timeout(),
	}

	logger.Info("wsprobe starting",
		"endpoint", cfg.Endpoint,
		"connections", cfg.Execution.Connections,
		"steps", len(cfg.Script),
		"timeout", cfg.Timeout())
	if cfg.TotalDelay() > cfg.Timeout() {
		logger.Warn("script is longer than the timeout, trailing steps will be skipped",
			"script", cfg.TotalDelay(), "timeout", cfg.Timeout())
	}

	var prog *progress.Line
	if opts.progress {
		prog = progress.New(stderr, func() progress.Counts {
			m := coll.Compute()
			return progress.Counts{Open: coord.ActiveRuns(), Sent: m.Sent, Failed: m.Failed}
		})
	}

	prog.Start()
	coord.Spawn(ctx, cfg.Execution.Connections, job)
	coord.Wait()
	prog.Stop()
	coll.Close()

	if errors.Is(ctx.Err(), context.Canceled) {
		fmt.Fprintln(stderr, "\nReceived interrupt signal, connections closed")
	}
	if err := coord.Err(); err != nil {
		return err
	}

	var skipped int
	for _, r := range job.Reports() {
		skipped += r.Skipped
	}
	if skipped > 0 {
		logger.Info("steps skipped", "count", skipped)
	}
	if n := coll.Dropped(); n > 0 {
		logger.Warn("events dropped from summary", "count", n)
	}

	metrics := coll.Compute()
	if opts.output == "json" {
		return collector.FormatJSON(stdout, metrics)
	}
	collector.FormatText(stdout, metrics)
	return nil
}
