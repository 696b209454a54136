// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

package hostinfo

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cpuinfoFixture = `processor	: 0
vendor_id	: GenuineIntel
cpu family	: 6
model		: 142
model name	: Test CPU @ 2.00GHz
stepping	: 10
cpu MHz		: 2000.000

processor	: 1
vendor_id	: GenuineIntel
cpu family	: 6
model		: 142
model name	: Test CPU @ 2.00GHz
stepping	: 10
cpu MHz		: 2000.000
`

func writeFakeProc(t *testing.T, paranoid string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cpuinfo"), []byte(cpuinfoFixture), 0o644))
	if paranoid != "" {
		sysDir := filepath.Join(dir, "sys", "kernel")
		require.NoError(t, os.MkdirAll(sysDir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(sysDir, "perf_event_paranoid"), []byte(paranoid+"\n"), 0o644))
	}
	return dir
}

func TestReadFromFixture(t *testing.T) {
	if runtime.GOARCH != "amd64" && runtime.GOARCH != "386" {
		t.Skip("cpuinfo fixture is x86-flavored")
	}

	reader, err := NewReader(writeFakeProc(t, "2"), nil)
	require.NoError(t, err)

	info, err := reader.Read()
	require.NoError(t, err)

	assert.Equal(t, 2, info.CPUs)
	assert.Equal(t, "Test CPU @ 2.00GHz", info.CPUModel)
	assert.Equal(t, 2, info.Paranoid)
}

func TestReadMissingParanoid(t *testing.T) {
	if runtime.GOARCH != "amd64" && runtime.GOARCH != "386" {
		t.Skip("cpuinfo fixture is x86-flavored")
	}

	reader, err := NewReader(writeFakeProc(t, ""), nil)
	require.NoError(t, err)

	info, err := reader.Read()
	require.NoError(t, err)
	assert.Zero(t, info.Paranoid)
}

func TestNewReaderMissingDir(t *testing.T) {
	_, err := NewReader("/definitely/not/proc", nil)
	assert.Error(t, err)
}

func TestReadRealProc(t *testing.T) {
	if _, err := os.Stat("/proc/cpuinfo"); err != nil {
		t.Skip("no /proc on this system")
	}

	reader, err := NewReader("/proc", nil)
	require.NoError(t, err)

	info, err := reader.Read()
	require.NoError(t, err)
	assert.Positive(t, info.CPUs)
}
