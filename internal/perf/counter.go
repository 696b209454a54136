// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package perf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrShortRead reports that the kernel returned fewer than the fixed eight
// bytes of a counter value.
var ErrShortRead = errors.New("short read of counter value")

// Counter owns one open perf event fd. It is created by Open and must be
// released exactly once with Close; operations on a closed Counter return
// os.ErrClosed.
type Counter struct {
	fd    int
	event Event
}

// Open opens a counter for attr on the given task and CPU. pid 0 means the
// calling thread, cpu -1 means any CPU. A nil group makes this counter a
// group leader; passing an existing Counter joins its group, so that
// enable/disable on the leader applies to the whole group atomically.
//
// The fd is always opened close-on-exec; inheritance of the event into
// children is the kernel's concern, not the fd's.
func Open(attr Attr, pid, cpu int, group *Counter, extra ...OpenFlag) (*Counter, error) {
	groupFd := -1
	if group != nil {
		if group.fd < 0 {
			return nil, fmt.Errorf("open %s: group leader: %w", attr.Event, os.ErrClosed)
		}
		groupFd = group.fd
	}

	openFlags := unix.PERF_FLAG_FD_CLOEXEC
	for _, f := range extra {
		openFlags |= int(f)
	}

	fd, err := unix.PerfEventOpen(attr.sysAttr(), pid, cpu, groupFd, openFlags)
	if err != nil {
		return nil, fmt.Errorf("perf_event_open %s: %w", attr.Event, err)
	}
	return &Counter{fd: fd, event: attr.Event}, nil
}

// Event returns the event this counter measures, for labeling results.
func (c *Counter) Event() Event {
	return c.event
}

// Read returns the counter's current value. The kernel hands back exactly
// eight bytes; anything less is surfaced as ErrShortRead.
func (c *Counter) Read() (uint64, error) {
	if c.fd < 0 {
		return 0, fmt.Errorf("read %s: %w", c.event, os.ErrClosed)
	}
	var buf [8]byte
	n, err := unix.Read(c.fd, buf[:])
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", c.event, err)
	}
	if n != len(buf) {
		return 0, fmt.Errorf("read %s: %w: got %d bytes", c.event, ErrShortRead, n)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Enable starts counting. Enabling an already-enabled counter is a no-op.
func (c *Counter) Enable() error {
	return c.ioctl(unix.PERF_EVENT_IOC_ENABLE, 0)
}

// Disable stops counting and freezes the value. Disabling an
// already-disabled counter is a no-op.
func (c *Counter) Disable() error {
	return c.ioctl(unix.PERF_EVENT_IOC_DISABLE, 0)
}

// DisableGroup stops this counter and, when it is a group leader, every
// member of its group in one atomic kernel operation.
func (c *Counter) DisableGroup() error {
	return c.ioctl(unix.PERF_EVENT_IOC_DISABLE, unix.PERF_IOC_FLAG_GROUP)
}

// Reset zeroes the counter value; it does not change the enabled state.
func (c *Counter) Reset() error {
	return c.ioctl(unix.PERF_EVENT_IOC_RESET, 0)
}

func (c *Counter) ioctl(req uint, arg int) error {
	if c.fd < 0 {
		return fmt.Errorf("%s: %w", c.event, os.ErrClosed)
	}
	if err := unix.IoctlSetInt(c.fd, req, arg); err != nil {
		return fmt.Errorf("ioctl %s: %w", c.event, err)
	}
	return nil
}

// Close releases the fd. The first call wins; any later call returns
// os.ErrClosed rather than touching a recycled descriptor.
func (c *Counter) Close() error {
	if c.fd < 0 {
		return fmt.Errorf("close %s: %w", c.event, os.ErrClosed)
	}
	fd := c.fd
	c.fd = -1
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("close %s: %w", c.event, err)
	}
	return nil
}

// EnableAll starts every counter attached to the current process, no matter
// which handle opened it. Process-wide state; use sparingly.
func EnableAll() error {
	if err := unix.Prctl(unix.PR_TASK_PERF_EVENTS_ENABLE, 0, 0, 0, 0); err != nil {
		return fmt.Errorf("prctl(PERF_EVENTS_ENABLE): %w", err)
	}
	return nil
}

// DisableAll stops every counter attached to the current process. The
// process-wide mirror of EnableAll.
func DisableAll() error {
	if err := unix.Prctl(unix.PR_TASK_PERF_EVENTS_DISABLE, 0, 0, 0, 0); err != nil {
		return fmt.Errorf("prctl(PERF_EVENTS_DISABLE): %w", err)
	}
	return nil
}
