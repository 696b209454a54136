// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package perf

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Attr describes one counter to open: what to count and how. It is a plain
// value; constructing it does no I/O and cannot fail.
type Attr struct {
	Event Event
	Flags FlagSet
}

// NewAttr builds an Attr for the event with the given flags.
func NewAttr(event Event, flags ...Flag) Attr {
	return Attr{Event: event, Flags: Flags(flags...)}
}

// sysAttr encodes the Attr as the struct the kernel expects.
func (a Attr) sysAttr() *unix.PerfEventAttr {
	sys := &unix.PerfEventAttr{
		Size: uint32(unsafe.Sizeof(unix.PerfEventAttr{})),
		Bits: uint64(a.Flags),
	}
	a.Event.setAttrs(sys)
	return sys
}
