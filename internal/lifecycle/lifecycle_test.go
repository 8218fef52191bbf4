// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package lifecycle

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSingleInstanceRejectsEmptyPath(t *testing.T) {
	assert.Error(t, EnsureSingleInstance(""))
}

func TestEnsureSingleInstanceWritesOwnPid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diskscan-watch.pid")
	require.NoError(t, EnsureSingleInstance(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(content))
}

func TestEnsureSingleInstanceRejectsWhenLiveProcessHoldsIt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diskscan-watch.pid")
	require.NoError(t, EnsureSingleInstance(path))

	err := EnsureSingleInstance(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestEnsureSingleInstanceReclaimsStaleEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diskscan-watch.pid")
	require.NoError(t, os.WriteFile(path, []byte("999999"), 0644))

	require.NoError(t, EnsureSingleInstance(path))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(content))
}

func TestEnsureSingleInstanceReclaimsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diskscan-watch.pid")
	require.NoError(t, os.WriteFile(path, []byte(""), 0644))

	require.NoError(t, EnsureSingleInstance(path))
}

func TestEnsureSingleInstanceRejectsMalformedPidContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diskscan-watch.pid")
	require.NoError(t, os.WriteFile(path, []byte("not-a-pid"), 0644))

	err := EnsureSingleInstance(path)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PID format")
}
