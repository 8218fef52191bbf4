// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package sysexec wraps external command execution with the same
// injection-hardening and timeout discipline the scanner needs when
// shelling out to udevadm, smartctl, and nvme-cli.
package sysexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/stratastor/diskscan/pkg/scanerr"
)

// dangerousChars blocks shell metacharacters from reaching exec.Command
// even though we never invoke a shell — defense in depth against
// misconfigured tool-path overrides that embed them.
const dangerousChars = "&|><$`\\[];{}"

const defaultTimeout = 30 * time.Second

// Executor runs external commands on behalf of the device prober.
type Executor struct {
	Timeout time.Duration
}

// NewExecutor builds an Executor with the default timeout.
func NewExecutor() *Executor {
	return &Executor{Timeout: defaultTimeout}
}

// Execute validates name/args, runs the command with a bounded context,
// and returns combined stdout+stderr.
func (e *Executor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	if err := validateCommand(name, args); err != nil {
		return nil, err
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = []string{}

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out.Bytes(), scanerr.New(scanerr.CommandExecutionFailed, "command exited non-zero").
				WithMetadata("command", name+" "+strings.Join(args, " ")).
				WithMetadata("exit_code", fmt.Sprintf("%d", exitErr.ExitCode())).
				WithMetadata("output", out.String())
		}
		return out.Bytes(), fmt.Errorf("command execution failed: %w: %s", err, out.String())
	}

	return out.Bytes(), nil
}

func validateCommand(name string, args []string) error {
	if name == "" {
		return scanerr.New(scanerr.SetupInvalidArgument, "empty command")
	}
	if !strings.HasPrefix(name, "/") && strings.ContainsAny(name, "/\\") {
		return scanerr.New(scanerr.SetupInvalidArgument, "relative paths are not allowed for commands")
	}
	if strings.ContainsAny(name, dangerousChars) {
		return scanerr.New(scanerr.SetupInvalidArgument, "command contains invalid characters")
	}
	for _, arg := range args {
		if strings.ContainsAny(arg, dangerousChars) {
			return scanerr.New(scanerr.SetupInvalidArgument, "argument contains invalid characters")
		}
		if strings.Contains(arg, "..") {
			return scanerr.New(scanerr.SetupInvalidArgument, "path traversal not allowed")
		}
	}
	if len(args) > 64 {
		return scanerr.New(scanerr.SetupInvalidArgument, "too many arguments")
	}
	return nil
}
