// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

// Package runner executes one child process under a set of perf counters
// and assembles its exit status, captured output and final counter values
// into a single result.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"time"

	"k8s.io/utils/clock"

	"github.com/perfrun/perfrun/internal/perf"
)

// ErrTimeout marks a run that did not finish within its deadline. Match it
// with errors.Is; the concrete error is a *TimeoutError.
var ErrTimeout = errors.New("run timed out")

// TimeoutError reports the child that outlived its deadline. The runner does
// not kill it: counters are frozen and released, and reaping the child is
// the caller's obligation. The background wait reaps it whenever it exits.
type TimeoutError struct {
	Pid     int
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("child %d still running after %s", e.Pid, e.Timeout)
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Request describes one measured run.
type Request struct {
	// Command is the program and its arguments. Must be non-empty.
	Command []string

	// Attrs selects the counters, in result order. The runner forces
	// Disabled, Inherit and EnableOnExec onto each so that counting starts
	// exactly when the child's program image takes over. May be empty.
	Attrs []perf.Attr

	// Env is the child environment in "KEY=value" form; nil inherits the
	// runner's environment.
	Env []string

	// Timeout bounds the wait for the child. Nil means wait forever. A zero
	// timeout still gives the child one completion check before the run is
	// declared timed out.
	Timeout *time.Duration
}

// Runner runs child processes under measurement. A Runner is cheap and
// stateless between runs; the counters and sinks of one Run are owned by
// that invocation alone.
type Runner struct {
	logger *slog.Logger
	clock  clock.Clock
}

type Opts struct {
	logger *slog.Logger
	clock  clock.Clock
}

// DefaultOpts returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger: slog.Default(),
		clock:  clock.RealClock{},
	}
}

// OptionFn is a function sets one more more options in Opts struct
type OptionFn func(*Opts)

// WithLogger sets the logger for the Runner
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithClock sets the clock the Runner arms its deadline with
func WithClock(c clock.Clock) OptionFn {
	return func(o *Opts) {
		o.clock = c
	}
}

// New creates a Runner.
func New(applyOpts ...OptionFn) *Runner {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}
	return &Runner{
		logger: opts.logger.With("service", "runner"),
		clock:  opts.clock,
	}
}

// Run executes the request and blocks until the child terminates, the
// deadline fires, or ctx is cancelled. It returns exactly one of: a fully
// assembled Execution, a *TimeoutError, or an error naming the phase that
// failed. Counters are released on every path.
func (r *Runner) Run(ctx context.Context, req Request) (*Execution, error) {
	if len(req.Command) == 0 {
		return nil, errors.New("empty command")
	}

	var counters counterSet
	defer counters.closeAll(r.logger)

	// The counters must be opened by the same OS thread that forks the
	// child: pid 0 binds them to this thread, and only its children inherit
	// them. They open disabled and the kernel flips them on at the child's
	// exec, so the fork machinery itself is never counted.
	runtime.LockOSThread()
	var leader *perf.Counter
	for _, attr := range req.Attrs {
		attr.Flags = attr.Flags.With(perf.Disabled, perf.Inherit, perf.EnableOnExec)
		c, err := perf.Open(attr, 0, -1, leader)
		if err != nil {
			runtime.UnlockOSThread()
			return nil, fmt.Errorf("opening counters: %w", err)
		}
		if leader == nil {
			leader = c
		}
		counters = append(counters, c)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(req.Command[0], req.Command[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = req.Env

	start := r.clock.Now()
	err := cmd.Start()
	runtime.UnlockOSThread()
	if err != nil {
		return nil, fmt.Errorf("spawning %s: %w", req.Command[0], err)
	}
	r.logger.Debug("child started", "pid", cmd.Process.Pid, "command", req.Command[0])

	// Wait in its own goroutine so the deadline can interrupt the select,
	// not the wait itself. The runtime retries EINTR inside Wait, so no
	// other signal class can masquerade as the deadline here.
	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var deadline <-chan time.Time
	if req.Timeout != nil {
		timer := r.clock.NewTimer(*req.Timeout)
		defer timer.Stop()
		deadline = timer.C()
	}

	select {
	case waitErr := <-waitCh:
		return r.finish(cmd, waitErr, counters, &stdout, &stderr, r.clock.Since(start))

	case <-deadline:
		// The child may have finished while the timer fired; give the wait
		// one last look before declaring the run dead. This is also what
		// keeps a zero timeout from expiring unchecked.
		select {
		case waitErr := <-waitCh:
			return r.finish(cmd, waitErr, counters, &stdout, &stderr, r.clock.Since(start))
		default:
		}
		if err := perf.DisableAll(); err != nil {
			r.logger.Warn("disabling counters after timeout", "error", err)
		}
		r.logger.Warn("run timed out; child left for the caller to reap",
			"pid", cmd.Process.Pid, "timeout", *req.Timeout)
		return nil, &TimeoutError{Pid: cmd.Process.Pid, Timeout: *req.Timeout}

	case <-ctx.Done():
		if err := perf.DisableAll(); err != nil {
			r.logger.Warn("disabling counters after cancellation", "error", err)
		}
		if err := cmd.Process.Kill(); err != nil {
			r.logger.Warn("killing child after cancellation", "pid", cmd.Process.Pid, "error", err)
		}
		<-waitCh
		return nil, ctx.Err()
	}
}

// finish freezes and reads the counters and assembles the Execution. Only a
// child that was actually waited on reaches here.
func (r *Runner) finish(cmd *exec.Cmd, waitErr error, counters counterSet, stdout, stderr *bytes.Buffer, wall time.Duration) (*Execution, error) {
	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return nil, fmt.Errorf("waiting for child: %w", waitErr)
	}

	if err := counters.disable(); err != nil {
		return nil, fmt.Errorf("disabling counters: %w", err)
	}
	counts, err := counters.read()
	if err != nil {
		return nil, fmt.Errorf("reading counters: %w", err)
	}

	return newExecution(cmd.ProcessState, stdout.Bytes(), stderr.Bytes(), counts, wall), nil
}

// counterSet owns the counters of one run, in request order. The first
// entry, when present, is the group leader.
type counterSet []*perf.Counter

// disable freezes the whole set: the leader group-atomically, then each
// member for backends that ignore the group flag. Disable is idempotent so
// the overlap is harmless.
func (cs counterSet) disable() error {
	if len(cs) == 0 {
		return nil
	}
	if err := cs[0].DisableGroup(); err != nil {
		return err
	}
	for _, c := range cs[1:] {
		if err := c.Disable(); err != nil {
			return err
		}
	}
	return nil
}

func (cs counterSet) read() ([]Count, error) {
	counts := make([]Count, 0, len(cs))
	for _, c := range cs {
		v, err := c.Read()
		if err != nil {
			return nil, err
		}
		counts = append(counts, Count{Event: c.Event(), Value: v})
	}
	return counts, nil
}

// closeAll releases every counter. Deferred by Run so no exit path can leak
// a descriptor.
func (cs counterSet) closeAll(logger *slog.Logger) {
	for _, c := range cs {
		if err := c.Close(); err != nil {
			logger.Warn("closing counter", "event", c.Event(), "error", err)
		}
	}
}
