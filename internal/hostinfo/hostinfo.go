// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostinfo answers, before any counter is opened, whether this host
// will let us open one, and describes the hardware the numbers came from.
package hostinfo

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/procfs"
)

const paranoidSysctl = "kernel.perf_event_paranoid"

// Info is a snapshot of the host facts relevant to a measured run.
type Info struct {
	CPUs     int
	CPUModel string

	// Paranoid is the kernel.perf_event_paranoid level. Above 2 an
	// unprivileged process cannot open counters at all; at 2 kernel-mode
	// counting needs ExcludeKernel.
	Paranoid int
}

// Reader reads host facts from a proc filesystem.
type Reader struct {
	fs     procfs.FS
	logger *slog.Logger
}

// NewReader mounts procPath (normally /proc).
func NewReader(procPath string, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fs, err := procfs.NewFS(procPath)
	if err != nil {
		return nil, fmt.Errorf("mounting procfs at %s: %w", procPath, err)
	}
	return &Reader{fs: fs, logger: logger.With("service", "hostinfo")}, nil
}

// Read collects the snapshot. A missing paranoid sysctl (very old kernels)
// is reported as level 0, not an error.
func (r *Reader) Read() (*Info, error) {
	info := &Info{}

	cpus, err := r.fs.CPUInfo()
	if err != nil {
		return nil, fmt.Errorf("reading cpuinfo: %w", err)
	}
	info.CPUs = len(cpus)
	if len(cpus) > 0 {
		info.CPUModel = cpus[0].ModelName
	}

	levels, err := r.fs.SysctlInts(paranoidSysctl)
	if err != nil || len(levels) == 0 {
		r.logger.Debug("perf_event_paranoid not readable, assuming 0", "error", err)
	} else {
		info.Paranoid = levels[0]
	}

	return info, nil
}

// LogPreflight records the snapshot and warns when the paranoid level will
// bite.
func (i *Info) LogPreflight(logger *slog.Logger) {
	logger.Info("host", "cpus", i.CPUs, "model", i.CPUModel, "perf_event_paranoid", i.Paranoid)
	switch {
	case i.Paranoid > 2:
		logger.Warn("perf_event_paranoid > 2: opening counters will fail without CAP_PERFMON")
	case i.Paranoid == 2:
		logger.Debug("perf_event_paranoid = 2: kernel-mode counting needs ExcludeKernel or privileges")
	}
}
