// Package probe runs the sequential connect/send/receive/close loop against
// the php-lrpm control endpoint.
package probe

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rbright/lrpmprobe/internal/ipc"
)

// Options fixes everything one run needs; it is not mutated during the run.
type Options struct {
	Endpoint   ipc.Endpoint
	Command    []byte
	Iterations int
	BufferSize int
	Timeout    time.Duration
}

// Summary describes a finished (or aborted) run.
type Summary struct {
	Iterations    int
	BytesReceived int
	Elapsed       time.Duration
}

// IterationError identifies the iteration that aborted a run.
type IterationError struct {
	Iteration int
	Err       error
}

func (e *IterationError) Error() string {
	return fmt.Sprintf("iteration %d: %v", e.Iteration, e.Err)
}

func (e *IterationError) Unwrap() error {
	return e.Err
}

// exchangeFunc is swapped in tests that need to observe the transport.
type exchangeFunc func(ctx context.Context, ep ipc.Endpoint, payload []byte, bufSize int, timeout time.Duration) ([]byte, error)

// Run probes the endpoint opts.Iterations times, one iteration after another,
// writing one report line to out per completed iteration. The first failure
// stops the run; Summary still counts the iterations that completed.
func Run(ctx context.Context, opts Options, out io.Writer, logger *slog.Logger) (Summary, error) {
	return run(ctx, opts, out, logger, ipc.Exchange)
}

func run(ctx context.Context, opts Options, out io.Writer, logger *slog.Logger, exchange exchangeFunc) (Summary, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := opts.validate(); err != nil {
		return Summary{}, err
	}

	var summary Summary
	start := time.Now()

	for i := 1; i <= opts.Iterations; i++ {
		iterStart := time.Now()
		resp, err := exchange(ctx, opts.Endpoint, opts.Command, opts.BufferSize, opts.Timeout)
		if err != nil {
			logger.Error("probe iteration failed", "iteration", i, "error", err.Error())
			summary.Elapsed = time.Since(start)
			return summary, &IterationError{Iteration: i, Err: err}
		}

		if _, err := fmt.Fprintln(out, Line(resp)); err != nil {
			summary.Elapsed = time.Since(start)
			return summary, &IterationError{Iteration: i, Err: fmt.Errorf("write report: %w", err)}
		}

		summary.Iterations++
		summary.BytesReceived += len(resp)
		logger.Debug("probe iteration",
			"iteration", i,
			"bytes", len(resp),
			"duration_us", time.Since(iterStart).Microseconds(),
		)
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}

func (o Options) validate() error {
	if err := o.Endpoint.Validate(); err != nil {
		return err
	}
	if len(o.Command) == 0 {
		return fmt.Errorf("command must not be empty")
	}
	if o.Iterations <= 0 {
		return fmt.Errorf("iterations must be > 0")
	}
	if o.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be > 0")
	}
	return nil
}
