/*
 * Copyright 2025 The StrataSTOR Authors and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package lifecycle provides the single-instance PID guard and signal
// handling the watch daemon uses, mirroring the server's own lifecycle
// management for its recurring-sweep process.
package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
)

var shutdownHooks []func()

// RegisterShutdownHook appends a function to run on graceful shutdown.
func RegisterShutdownHook(hook func()) {
	shutdownHooks = append(shutdownHooks, hook)
}

// HandleSignals blocks until SIGTERM/SIGINT triggers shutdown or ctx is
// cancelled. On a signal it calls cancel; shutdown hooks run in either
// case.
func HandleSignals(ctx context.Context, cancel context.CancelFunc) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(stop)

	select {
	case <-stop:
		cancel()
	case <-ctx.Done():
	}
	for _, hook := range shutdownHooks {
		hook()
	}
}

// EnsureSingleInstance writes pidPath with the current PID, refusing if
// another live process already holds it. It registers a shutdown hook
// to remove the file.
func EnsureSingleInstance(pidPath string) error {
	if pidPath == "" {
		return fmt.Errorf("invalid PID file path")
	}

	if _, err := os.Stat(pidPath); err == nil {
		pidBytes, err := os.ReadFile(pidPath)
		if err != nil {
			return fmt.Errorf("failed to read PID file: %w", err)
		}
		content := strings.TrimSpace(string(pidBytes))
		if content == "" {
			os.Remove(pidPath)
		} else {
			pid, err := strconv.Atoi(content)
			if err != nil {
				return fmt.Errorf("invalid PID format: %w", err)
			}
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("another instance is already running (PID: %d)", pid)
				}
			}
			os.Remove(pidPath)
		}
	}

	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	RegisterShutdownHook(func() { os.Remove(pidPath) })
	return nil
}
