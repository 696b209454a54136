// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package runner

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Status{State: Exited, ExitCode: 0}, "exited(0)"},
		{Status{State: Exited, ExitCode: 42}, "exited(42)"},
		{Status{State: Signaled, Signal: syscall.SIGKILL}, "signaled(killed)"},
		{Status{State: Stopped, Signal: syscall.SIGSTOP}, "stopped(stopped (signal))"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}

func TestStatusSuccess(t *testing.T) {
	assert.True(t, Status{State: Exited, ExitCode: 0}.Success())
	assert.False(t, Status{State: Exited, ExitCode: 1}.Success())
	assert.False(t, Status{State: Signaled, Signal: syscall.SIGTERM}.Success())
}
