// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package sysexec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratastor/diskscan/pkg/scanerr"
)

func TestValidateCommandRejectsEmptyName(t *testing.T) {
	err := validateCommand("", nil)
	require.Error(t, err)
	code, ok := scanerr.GetCode(err)
	require.True(t, ok)
	assert.Equal(t, scanerr.SetupInvalidArgument, code)
}

func TestValidateCommandRejectsRelativePath(t *testing.T) {
	err := validateCommand("bin/smartctl", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relative paths")
}

func TestValidateCommandAllowsAbsolutePath(t *testing.T) {
	err := validateCommand("/usr/sbin/smartctl", []string{"-a"})
	assert.NoError(t, err)
}

func TestValidateCommandAllowsBareNameOnPath(t *testing.T) {
	err := validateCommand("smartctl", []string{"-a", "/dev/sda"})
	assert.NoError(t, err)
}

func TestValidateCommandRejectsDangerousCharsInName(t *testing.T) {
	for _, name := range []string{"smartctl;rm", "smartctl|cat", "smartctl`id`", "smartctl$(id)"} {
		err := validateCommand(name, nil)
		require.Error(t, err, "expected rejection for %q", name)
	}
}

func TestValidateCommandRejectsPathTraversalInArgs(t *testing.T) {
	err := validateCommand("smartctl", []string{"-a", "../../etc/passwd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path traversal not allowed")
}

func TestValidateCommandRejectsDangerousCharsInArgs(t *testing.T) {
	err := validateCommand("smartctl", []string{"-a", "/dev/sda; rm -rf /"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "argument contains invalid characters")
}

func TestValidateCommandRejectsTooManyArguments(t *testing.T) {
	args := make([]string, 65)
	for i := range args {
		args[i] = "-x"
	}
	err := validateCommand("smartctl", args)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many arguments")
}

func TestValidateCommandAllowsExactlyMaxArguments(t *testing.T) {
	args := make([]string, 64)
	for i := range args {
		args[i] = "-x"
	}
	assert.NoError(t, validateCommand("smartctl", args))
}

func TestExecuteRejectsInvalidCommandBeforeRunning(t *testing.T) {
	e := NewExecutor()
	_, err := e.Execute(context.Background(), "rm -rf /; echo")
	require.Error(t, err)
	code, ok := scanerr.GetCode(err)
	require.True(t, ok)
	assert.Equal(t, scanerr.SetupInvalidArgument, code)
}

func TestExecuteReturnsOutputOnSuccess(t *testing.T) {
	e := NewExecutor()
	out, err := e.Execute(context.Background(), "/bin/echo", "hello")
	require.NoError(t, err)
	assert.Contains(t, string(out), "hello")
}

func TestExecuteWrapsNonZeroExitAsCommandExecutionFailed(t *testing.T) {
	e := NewExecutor()
	_, err := e.Execute(context.Background(), "/bin/sh", "-c", "exit 3")
	require.Error(t, err)
	code, ok := scanerr.GetCode(err)
	require.True(t, ok)
	assert.Equal(t, scanerr.CommandExecutionFailed, code)
}
