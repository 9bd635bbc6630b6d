package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/lrpmprobe/internal/cli"
	"github.com/rbright/lrpmprobe/internal/config"
	"github.com/rbright/lrpmprobe/internal/doctor"
	"github.com/rbright/lrpmprobe/internal/ipc"
	"github.com/rbright/lrpmprobe/internal/logging"
	"github.com/rbright/lrpmprobe/internal/probe"
	"github.com/rbright/lrpmprobe/internal/version"
)

const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitUnavailable = 69 // sysexits EX_UNAVAILABLE
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("lrpmprobe"))
		return ExitUsage
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("lrpmprobe"))
		return ExitOK
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return ExitOK
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ExitFailure
	}
	cfgLoaded.Config = cfgLoaded.Config.Apply(parsed.Overrides)
	validateWarnings, err := config.Validate(cfgLoaded.Config)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ExitUsage
	}
	cfgLoaded.Warnings = append(cfgLoaded.Warnings, validateWarnings...)

	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return ExitFailure
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}
	logger = logger.With("run_id", uuid.NewString())

	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"config_exists", cfgLoaded.Exists,
		"endpoint", cfgLoaded.Config.Probe.Endpoint().String(),
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return ExitOK
		}
		return ExitFailure
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config.Probe, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return ExitUsage
	}
}

func (r Runner) commandRun(ctx context.Context, cfg config.ProbeConfig, logger *slog.Logger) int {
	opts := probe.Options{
		Endpoint:   cfg.Endpoint(),
		Command:    []byte(cfg.Command),
		Iterations: cfg.Iterations,
		BufferSize: cfg.BufferSize,
		Timeout:    cfg.Timeout,
	}

	summary, err := probe.Run(ctx, opts, r.Stdout, logger)
	logRunSummary(logger, opts, summary, err)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		if ipc.IsUnavailable(err) {
			return ExitUnavailable
		}
		return ExitFailure
	}
	return ExitOK
}

func logRunSummary(logger *slog.Logger, opts probe.Options, summary probe.Summary, err error) {
	fields := []any{
		"endpoint", opts.Endpoint.String(),
		"planned", opts.Iterations,
		"completed", summary.Iterations,
		"bytes_received", summary.BytesReceived,
		"duration_ms", summary.Elapsed.Milliseconds(),
	}
	if summary.Iterations > 0 {
		fields = append(fields, "avg_iteration_us", (summary.Elapsed / time.Duration(summary.Iterations)).Microseconds())
	}

	var iterErr *probe.IterationError
	if errors.As(err, &iterErr) {
		logger.Error("probe run aborted", append(fields, "failed_iteration", iterErr.Iteration, "error", iterErr.Err.Error())...)
		return
	}
	if err != nil {
		logger.Error("probe run failed", append(fields, "error", err.Error())...)
		return
	}
	logger.Info("probe run complete", fields...)
}
