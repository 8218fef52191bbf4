// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package cliutil holds the small pieces of setup and argument parsing
// shared by the scan, probe, and watch commands.
package cliutil

import (
	"strconv"
	"strings"

	"github.com/stratastor/logger"

	"github.com/stratastor/diskscan/internal/config"
	"github.com/stratastor/diskscan/internal/sysexec"
	"github.com/stratastor/diskscan/pkg/probe"
	"github.com/stratastor/diskscan/pkg/scanerr"
)

// Bootstrap holds the ambient services every subcommand wires up before
// touching a device: config, logger, and prober.
type Bootstrap struct {
	Config *config.Config
	Logger logger.Logger
	Prober *probe.Prober
}

// NewBootstrap loads config from configPath (empty for the default
// precedence chain), builds a tagged logger, and wires the prober with
// a fresh tool-availability check.
func NewBootstrap(configPath, tag string) (*Bootstrap, error) {
	cfg := config.LoadConfig(configPath)

	l, err := logger.NewTag(config.NewLoggerConfig(cfg), tag)
	if err != nil {
		return nil, err
	}

	executor := sysexec.NewExecutor()
	toolChecker := config.NewToolChecker(l, cfg)
	toolChecker.CheckAll()

	prober := probe.New(l, executor, toolChecker)

	return &Bootstrap{Config: cfg, Logger: l, Prober: prober}, nil
}

// ParseSectorBound parses a positional start/end argument: either an
// absolute decimal sector index, or a percentage of totalSectors
// (e.g. "42%", "100%").
func ParseSectorBound(arg string, totalSectors uint64) (uint64, error) {
	if strings.HasSuffix(arg, "%") {
		pctStr := strings.TrimSuffix(arg, "%")
		pct, err := strconv.ParseFloat(pctStr, 64)
		if err != nil {
			return 0, scanerr.New(scanerr.SetupInvalidArgument, "invalid percentage: "+arg)
		}
		if pct < 0 || pct > 100 {
			return 0, scanerr.New(scanerr.SetupInvalidArgument, "percentage out of range [0,100]: "+arg)
		}
		return uint64(float64(totalSectors) * pct / 100.0), nil
	}

	v, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, scanerr.New(scanerr.SetupInvalidArgument, "invalid sector index: "+arg)
	}
	return v, nil
}
