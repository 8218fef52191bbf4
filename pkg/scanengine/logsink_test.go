// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package scanengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenLogSinkEmptyPathIsNoop(t *testing.T) {
	s, err := openLogSink("")
	require.NoError(t, err)
	assert.False(t, s.enabled())
	s.Write(1, 5, "Good", "")
	require.NoError(t, s.Close())
}

func TestLogSinkWritesAppendOnlyCsv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.csv")
	s, err := openLogSink(path)
	require.NoError(t, err)
	assert.True(t, s.enabled())

	s.Write(42, 12, "Good", "")
	s.Write(43, -1, "Damaged", "io error")
	require.NoError(t, s.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "sector_42")
	assert.Contains(t, string(content), "sector_43")
	assert.Contains(t, string(content), "-1")
	assert.Contains(t, string(content), "io error")
}

func TestLogSinkAppendsAcrossReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.csv")
	s1, err := openLogSink(path)
	require.NoError(t, err)
	s1.Write(1, 1, "Excellent", "")
	require.NoError(t, s1.Close())

	s2, err := openLogSink(path)
	require.NoError(t, err)
	s2.Write(2, 2, "Good", "")
	require.NoError(t, s2.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "sector_1")
	assert.Contains(t, string(content), "sector_2")
}

func TestOpenLogSinkErrorsOnUnwritablePath(t *testing.T) {
	_, err := openLogSink(filepath.Join(t.TempDir(), "nonexistent-dir", "scan.csv"))
	assert.Error(t, err)
}

func TestLogSinkDisablesAfterWriteFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.csv")
	s, err := openLogSink(path)
	require.NoError(t, err)
	require.NoError(t, s.f.Close())

	// A single small record may only land in the bufio.Writer's internal
	// buffer without touching the closed fd; write enough records to
	// force a flush and surface the write error.
	for i := 0; i < 1000 && !s.broken; i++ {
		s.Write(uint64(i), i, "Good", "padding-to-force-a-buffer-flush-eventually")
	}
	assert.True(t, s.broken)
	assert.False(t, s.enabled())
}
