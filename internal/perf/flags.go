// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package perf

import "golang.org/x/sys/unix"

// Flag is one bit of the perf_event_attr bitfield controlling how an event
// is counted. The values are the kernel's own bit positions, so a set of
// flags is just their bitwise OR.
type Flag uint64

const (
	// Disabled opens the counter stopped; it counts nothing until enabled.
	Disabled = Flag(unix.PerfBitDisabled)
	// Inherit makes children forked by the measured task inherit the counter.
	Inherit = Flag(unix.PerfBitInherit)
	// ExcludeUser drops user-mode events.
	ExcludeUser = Flag(unix.PerfBitExcludeUser)
	// ExcludeKernel drops kernel-mode events.
	ExcludeKernel = Flag(unix.PerfBitExcludeKernel)
	// ExcludeHV drops hypervisor events.
	ExcludeHV = Flag(unix.PerfBitExcludeHv)
	// ExcludeIdle drops events while the CPU is idle.
	ExcludeIdle = Flag(unix.PerfBitExcludeIdle)
	// EnableOnExec starts a Disabled counter when the task calls exec.
	EnableOnExec = Flag(unix.PerfBitEnableOnExec)
)

// FlagSet is the union of zero or more Flags. OR-ing is idempotent, so
// building a set is order-independent and duplicate-tolerant.
type FlagSet uint64

// Flags builds a FlagSet from its members.
func Flags(flags ...Flag) FlagSet {
	var s FlagSet
	for _, f := range flags {
		s |= FlagSet(f)
	}
	return s
}

// With returns the union of the set and the given flags.
func (s FlagSet) With(flags ...Flag) FlagSet {
	return s | Flags(flags...)
}

// Has reports whether every given flag is in the set.
func (s FlagSet) Has(f Flag) bool {
	return s&FlagSet(f) != 0
}

// OpenFlag is a flag to the perf_event_open syscall itself, as opposed to a
// bit of the attr struct.
type OpenFlag int

const (
	// FdCloexec closes the counter fd across exec of this process.
	FdCloexec OpenFlag = unix.PERF_FLAG_FD_CLOEXEC
	// FdNoGroup ignores the group fd argument.
	FdNoGroup OpenFlag = unix.PERF_FLAG_FD_NO_GROUP
	// FdOutput routes sampled output to the group leader's buffer.
	FdOutput OpenFlag = unix.PERF_FLAG_FD_OUTPUT
	// PidCgroup interprets the pid argument as a cgroup fd.
	PidCgroup OpenFlag = unix.PERF_FLAG_PID_CGROUP
)
