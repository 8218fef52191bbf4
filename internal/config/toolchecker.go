// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/stratastor/logger"

	"github.com/stratastor/diskscan/internal/sysexec"
	"github.com/stratastor/diskscan/pkg/scanerr"
)

// ToolStatus is the cached availability and version of one external tool.
type ToolStatus struct {
	Name      string
	Path      string
	ExtraArgs []string
	Available bool
	Version   string
	Error     string
}

// ToolChecker discovers and caches availability of the external tools the
// device prober optionally shells out to: smartctl, nvme, udevadm, lsblk.
type ToolChecker struct {
	logger    logger.Logger
	executor  *sysexec.Executor
	toolPaths map[string]string
	cache     map[string]*ToolStatus
	mu        sync.RWMutex
}

// NewToolChecker builds a ToolChecker from the configured tool paths.
func NewToolChecker(l logger.Logger, cfg *Config) *ToolChecker {
	tc := &ToolChecker{
		logger:    l,
		executor:  &sysexec.Executor{Timeout: 5 * time.Second},
		toolPaths: make(map[string]string),
		cache:     make(map[string]*ToolStatus),
	}
	tc.toolPaths["smartctl"] = cfg.Tools.SmartctlPath
	tc.toolPaths["nvme"] = cfg.Tools.NvmePath
	tc.toolPaths["udevadm"] = cfg.Tools.UdevadmPath
	tc.toolPaths["lsblk"] = cfg.Tools.LsblkPath
	return tc
}

// CheckAll probes every configured tool and caches the result.
func (tc *ToolChecker) CheckAll() map[string]*ToolStatus {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	results := make(map[string]*ToolStatus)
	for tool, path := range tc.toolPaths {
		status := tc.checkTool(tool, path)
		tc.cache[tool] = status
		results[tool] = status
	}
	return results
}

func (tc *ToolChecker) checkTool(toolName, configuredPath string) *ToolStatus {
	status := &ToolStatus{Name: toolName, Path: configuredPath}

	if configuredPath != "" {
		// A configured tool path may carry fixed arguments, e.g.
		// "smartctl -d sat" for drives behind a SAT bridge.
		fields, err := shellquote.Split(configuredPath)
		if err != nil || len(fields) == 0 {
			status.Available = false
			status.Error = fmt.Sprintf("invalid configured tool command %q: %v", configuredPath, err)
			return status
		}
		execPath, extraArgs := fields[0], fields[1:]

		if version, err := tc.getToolVersion(execPath, toolName); err == nil {
			status.Available = true
			status.Version = version
			status.Path = execPath
			status.ExtraArgs = extraArgs
			return status
		}
	}

	path, err := exec.LookPath(toolName)
	if err != nil {
		status.Available = false
		status.Error = fmt.Sprintf("tool not found in PATH or configured location: %v", err)
		return status
	}

	version, err := tc.getToolVersion(path, toolName)
	if err != nil {
		// Some tools (smartctl in particular) exit non-zero on
		// --version; treat a found binary as available regardless.
		status.Available = true
		status.Version = "unknown"
		status.Path = path
		return status
	}

	status.Available = true
	status.Version = version
	status.Path = path
	return status
}

func (tc *ToolChecker) getToolVersion(path, toolName string) (string, error) {
	out, err := tc.executor.Execute(context.Background(), path, "--version")
	if err != nil && len(out) == 0 {
		return "", err
	}
	lines := strings.Split(string(out), "\n")
	if len(lines) == 0 {
		return "unknown", nil
	}
	first := strings.TrimSpace(lines[0])
	if len(first) > 50 {
		first = first[:50] + "..."
	}
	return first, nil
}

// IsAvailable reports whether tool was found available in the last
// CheckAll pass.
func (tc *ToolChecker) IsAvailable(tool string) bool {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	status, ok := tc.cache[tool]
	return ok && status.Available
}

// GetPath returns the resolved path to tool, or an error if it is not
// available.
func (tc *ToolChecker) GetPath(tool string) (string, error) {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	status, ok := tc.cache[tool]
	if !ok || !status.Available {
		return "", scanerr.New(scanerr.CommandExecutionFailed, "tool not available: "+tool)
	}
	return status.Path, nil
}

// GetArgs returns the fixed extra arguments parsed out of tool's
// configured command string (e.g. "-d sat" from "smartctl -d sat"),
// which callers should prepend before their own subcommand arguments.
func (tc *ToolChecker) GetArgs(tool string) []string {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	status, ok := tc.cache[tool]
	if !ok {
		return nil
	}
	return status.ExtraArgs
}
