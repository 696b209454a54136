// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

// Package perf wraps the kernel perf_event counter primitive: what to count
// (Event), how to count it (Flag, Attr) and the life of one open counter
// (Counter).
package perf

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Event identifies one thing the kernel PMU can count. The enumeration is
// closed: every Event has exactly one (type, config) encoding and no two
// events share one.
type Event int

const (
	// Hardware events
	Cycles Event = iota
	Instructions
	CacheReferences
	CacheMisses
	BranchInstructions
	BranchMisses
	BusCycles
	StalledCyclesFrontend
	StalledCyclesBackend
	RefCycles

	// Software events
	CPUClock
	TaskClock
	PageFaults
	ContextSwitches
	CPUMigrations
	MinorFaults
	MajorFaults
	AlignmentFaults
	EmulationFaults
	Dummy

	numEvents // must stay last
)

// eventCode is the pair the perf_event_open syscall understands.
type eventCode struct {
	Type   uint32
	Config uint64
}

var eventCodes = map[Event]eventCode{
	Cycles:                {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CPU_CYCLES},
	Instructions:          {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_INSTRUCTIONS},
	CacheReferences:       {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_REFERENCES},
	CacheMisses:           {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_CACHE_MISSES},
	BranchInstructions:    {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_INSTRUCTIONS},
	BranchMisses:          {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BRANCH_MISSES},
	BusCycles:             {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_BUS_CYCLES},
	StalledCyclesFrontend: {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_STALLED_CYCLES_FRONTEND},
	StalledCyclesBackend:  {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_STALLED_CYCLES_BACKEND},
	RefCycles:             {unix.PERF_TYPE_HARDWARE, unix.PERF_COUNT_HW_REF_CPU_CYCLES},

	CPUClock:        {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CPU_CLOCK},
	TaskClock:       {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_TASK_CLOCK},
	PageFaults:      {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_PAGE_FAULTS},
	ContextSwitches: {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CONTEXT_SWITCHES},
	CPUMigrations:   {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_CPU_MIGRATIONS},
	MinorFaults:     {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_PAGE_FAULTS_MIN},
	MajorFaults:     {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_PAGE_FAULTS_MAJ},
	AlignmentFaults: {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_ALIGNMENT_FAULTS},
	EmulationFaults: {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_EMULATION_FAULTS},
	Dummy:           {unix.PERF_TYPE_SOFTWARE, unix.PERF_COUNT_SW_DUMMY},
}

// eventNames uses the names "perf record -e" uses.
var eventNames = map[Event]string{
	Cycles:                "cycles",
	Instructions:          "instructions",
	CacheReferences:       "cache-references",
	CacheMisses:           "cache-misses",
	BranchInstructions:    "branches",
	BranchMisses:          "branch-misses",
	BusCycles:             "bus-cycles",
	StalledCyclesFrontend: "stalled-cycles-frontend",
	StalledCyclesBackend:  "stalled-cycles-backend",
	RefCycles:             "ref-cycles",

	CPUClock:        "cpu-clock",
	TaskClock:       "task-clock",
	PageFaults:      "page-faults",
	ContextSwitches: "context-switches",
	CPUMigrations:   "cpu-migrations",
	MinorFaults:     "minor-faults",
	MajorFaults:     "major-faults",
	AlignmentFaults: "alignment-faults",
	EmulationFaults: "emulation-faults",
	Dummy:           "dummy",
}

// Events returns every declared event in declaration order.
func Events() []Event {
	all := make([]Event, 0, numEvents)
	for ev := Event(0); ev < numEvents; ev++ {
		all = append(all, ev)
	}
	return all
}

// Hardware reports whether the event is counted by the hardware PMU rather
// than the kernel.
func (e Event) Hardware() bool {
	return eventCodes[e].Type == unix.PERF_TYPE_HARDWARE
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// setAttrs fills in the type and config of a perf_event_attr for this event.
func (e Event) setAttrs(a *unix.PerfEventAttr) {
	code := eventCodes[e]
	a.Type = code.Type
	a.Config = code.Config
}

// ParseEvent resolves a perf-style event name back to its Event.
func ParseEvent(name string) (Event, error) {
	for ev, n := range eventNames {
		if n == name {
			return ev, nil
		}
	}
	return 0, fmt.Errorf("unknown event %q", name)
}
