// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckToolRejectsMalformedConfiguredCommand(t *testing.T) {
	tc := NewToolChecker(nil, &Config{})
	status := tc.checkTool("smartctl", `smartctl -d "sat`)
	assert.False(t, status.Available)
	assert.Contains(t, status.Error, "invalid configured tool command")
}

func TestCheckToolFallsBackToPathLookupWhenUnconfigured(t *testing.T) {
	tc := NewToolChecker(nil, &Config{})
	status := tc.checkTool("diskscan-nonexistent-tool-xyz", "")
	assert.False(t, status.Available)
	assert.Contains(t, status.Error, "tool not found")
}

func TestGetArgsReturnsParsedExtraArguments(t *testing.T) {
	tc := NewToolChecker(nil, &Config{})
	tc.cache["smartctl"] = &ToolStatus{Name: "smartctl", Available: true, Path: "/usr/sbin/smartctl", ExtraArgs: []string{"-d", "sat"}}

	assert.Equal(t, []string{"-d", "sat"}, tc.GetArgs("smartctl"))
	assert.Nil(t, tc.GetArgs("unregistered"))
}

func TestGetPathErrorsWhenToolUnavailable(t *testing.T) {
	tc := NewToolChecker(nil, &Config{})
	tc.cache["nvme"] = &ToolStatus{Name: "nvme", Available: false}

	_, err := tc.GetPath("nvme")
	assert.Error(t, err)
}

func TestIsAvailableReflectsCache(t *testing.T) {
	tc := NewToolChecker(nil, &Config{})
	tc.cache["udevadm"] = &ToolStatus{Name: "udevadm", Available: true}

	assert.True(t, tc.IsAvailable("udevadm"))
	assert.False(t, tc.IsAvailable("lsblk"))
}
