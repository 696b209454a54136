// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package runner

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/perfrun/perfrun/internal/perf"
)

// State says how the child left the scene.
type State int

const (
	Exited State = iota
	Signaled
	Stopped
)

func (s State) String() string {
	switch s {
	case Exited:
		return "exited"
	case Signaled:
		return "signaled"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Status is the decoded wait status of the child.
type Status struct {
	State State

	// ExitCode is meaningful when State is Exited.
	ExitCode int

	// Signal is meaningful when State is Signaled or Stopped.
	Signal syscall.Signal
}

func (s Status) String() string {
	switch s.State {
	case Exited:
		return fmt.Sprintf("exited(%d)", s.ExitCode)
	case Signaled:
		return fmt.Sprintf("signaled(%s)", s.Signal)
	case Stopped:
		return fmt.Sprintf("stopped(%s)", s.Signal)
	}
	return s.State.String()
}

// Success reports a clean zero exit.
func (s Status) Success() bool {
	return s.State == Exited && s.ExitCode == 0
}

// Count is one counter's final value, labeled by its event.
type Count struct {
	Event perf.Event
	Value uint64
}

// Usage is what the run cost, from the wait rusage.
type Usage struct {
	Wall     time.Duration
	CPU      time.Duration
	MaxRSSKB int64
}

// Execution is the complete result of one measured run. It is assembled in
// one shot after all counters are frozen and read; callers never see a
// partially filled one.
type Execution struct {
	Status Status
	Stdout []byte
	Stderr []byte

	// Counts holds one entry per requested attr, in request order.
	Counts []Count

	Usage Usage
}

// newExecution zips the frozen counter values with the child's status,
// output and resource usage. Pure assembly; no I/O.
func newExecution(ps *os.ProcessState, stdout, stderr []byte, counts []Count, wall time.Duration) *Execution {
	usage := Usage{
		Wall: wall,
		CPU:  ps.UserTime() + ps.SystemTime(),
	}
	if rusage, ok := ps.SysUsage().(*syscall.Rusage); ok {
		usage.MaxRSSKB = int64(rusage.Maxrss)
	}

	return &Execution{
		Status: decodeStatus(ps),
		Stdout: stdout,
		Stderr: stderr,
		Counts: counts,
		Usage:  usage,
	}
}

func decodeStatus(ps *os.ProcessState) Status {
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok {
		return Status{State: Exited, ExitCode: ps.ExitCode()}
	}
	switch {
	case ws.Signaled():
		return Status{State: Signaled, Signal: ws.Signal()}
	case ws.Stopped():
		return Status{State: Stopped, Signal: ws.StopSignal()}
	default:
		return Status{State: Exited, ExitCode: ws.ExitStatus()}
	}
}
