// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package perf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestEventTableIsTotal(t *testing.T) {
	for _, ev := range Events() {
		code, ok := eventCodes[ev]
		require.True(t, ok, "event %d has no code", int(ev))
		assert.Contains(t, []uint32{unix.PERF_TYPE_HARDWARE, unix.PERF_TYPE_SOFTWARE}, code.Type)

		name, ok := eventNames[ev]
		require.True(t, ok, "event %d has no name", int(ev))
		assert.NotEmpty(t, name)
	}
	assert.Len(t, Events(), len(eventCodes))
	assert.Len(t, Events(), len(eventNames))
}

func TestEventTableIsInjective(t *testing.T) {
	seen := map[eventCode]Event{}
	for _, ev := range Events() {
		code := eventCodes[ev]
		prev, dup := seen[code]
		require.False(t, dup, "%s and %s share code (%d, %d)", prev, ev, code.Type, code.Config)
		seen[code] = ev
	}
}

func TestEventDomains(t *testing.T) {
	hardware := []Event{
		Cycles, Instructions, CacheReferences, CacheMisses, BranchInstructions,
		BranchMisses, BusCycles, StalledCyclesFrontend, StalledCyclesBackend, RefCycles,
	}
	software := []Event{
		CPUClock, TaskClock, PageFaults, ContextSwitches, CPUMigrations,
		MinorFaults, MajorFaults, AlignmentFaults, EmulationFaults, Dummy,
	}
	assert.Len(t, Events(), len(hardware)+len(software))

	for _, ev := range hardware {
		assert.True(t, ev.Hardware(), "%s should be a hardware event", ev)
		assert.Equal(t, uint32(unix.PERF_TYPE_HARDWARE), eventCodes[ev].Type)
	}
	for _, ev := range software {
		assert.False(t, ev.Hardware(), "%s should be a software event", ev)
		assert.Equal(t, uint32(unix.PERF_TYPE_SOFTWARE), eventCodes[ev].Type)
	}
}

func TestEventNameRoundTrip(t *testing.T) {
	for _, ev := range Events() {
		parsed, err := ParseEvent(ev.String())
		require.NoError(t, err)
		assert.Equal(t, ev, parsed)
	}
}

func TestParseEventUnknown(t *testing.T) {
	_, err := ParseEvent("tachyon-flux")
	assert.Error(t, err)

	_, err = ParseEvent("")
	assert.Error(t, err)
}

func TestEventSetAttrs(t *testing.T) {
	var attr unix.PerfEventAttr
	Instructions.setAttrs(&attr)
	assert.Equal(t, uint32(unix.PERF_TYPE_HARDWARE), attr.Type)
	assert.Equal(t, uint64(unix.PERF_COUNT_HW_INSTRUCTIONS), attr.Config)

	PageFaults.setAttrs(&attr)
	assert.Equal(t, uint32(unix.PERF_TYPE_SOFTWARE), attr.Type)
	assert.Equal(t, uint64(unix.PERF_COUNT_SW_PAGE_FAULTS), attr.Config)
}
