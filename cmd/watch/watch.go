// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package watch implements the `diskscan watch` command: a recurring
// bounded sweep of a device on a cron schedule, optionally daemonized.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"

	"github.com/stratastor/diskscan/internal/cliutil"
	"github.com/stratastor/diskscan/internal/lifecycle"
	"github.com/stratastor/diskscan/pkg/report"
	"github.com/stratastor/diskscan/pkg/scanengine"
	"github.com/stratastor/diskscan/pkg/scanerr"
	"github.com/stratastor/diskscan/pkg/taxonomy"
	pkgwatch "github.com/stratastor/diskscan/pkg/watch"
)

// reportFatal prints a human-readable failure line and, since a
// daemonized watch has no interactive terminal, a one-line JSON status
// envelope a supervisor can parse off stderr.
func reportFatal(msg string, err error) {
	fmt.Fprintln(os.Stderr, msg+":", err)
	if b, jerr := json.Marshal(scanerr.NewEnvelope(err)); jerr == nil {
		fmt.Fprintln(os.Stderr, string(b))
	}
}

var opts struct {
	configPath string
	cron       string
	sampleRatio float64
	blockSize  int
	suspectMs  int
	daemonize  bool
	pidFile    string
	historySize int
}

// NewWatchCmd builds the `watch` subcommand.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <device>",
		Short: "Recurring bounded sweep of a device on a cron schedule",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "ambient application config path")
	f.StringVar(&opts.cron, "cron", "0 * * * *", "cron expression for sweep frequency")
	f.Float64VarP(&opts.sampleRatio, "sample", "s", 0.01, "sample ratio for each sweep")
	f.IntVarP(&opts.blockSize, "block-size", "b", 4096, "read block size in bytes")
	f.IntVarP(&opts.suspectMs, "suspect", "S", 0, "suspect threshold in ms (0 = recommended by class)")
	f.BoolVarP(&opts.daemonize, "detach", "d", false, "run as a background daemon")
	f.StringVar(&opts.pidFile, "pid-file", "/var/run/diskscan-watch.pid", "PID file path when daemonized")
	f.IntVar(&opts.historySize, "history", 20, "number of recent sweep reports retained in memory")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	devicePath := args[0]

	if err := lifecycle.EnsureSingleInstance(opts.pidFile); err != nil {
		reportFatal("failed to start", err)
		os.Exit(2)
		return nil
	}

	if opts.daemonize {
		dctx := &daemon.Context{
			PidFileName: opts.pidFile,
			PidFilePerm: 0644,
			LogFileName: "/var/log/diskscan-watch.log",
			LogFilePerm: 0640,
			WorkDir:     "/",
			Umask:       027,
			Args:        []string{"diskscan", "watch", devicePath},
		}
		d, err := dctx.Reborn()
		if err != nil {
			reportFatal("failed to daemonize", err)
			os.Exit(2)
			return nil
		}
		if d != nil {
			fmt.Println("diskscan watch is running as a daemon")
			return nil
		}
		defer dctx.Release()
	}

	bs, err := cliutil.NewBootstrap(opts.configPath, "watch")
	if err != nil {
		reportFatal("failed to initialize", err)
		os.Exit(2)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runFunc := func(sweepCtx context.Context) (*report.RunReport, error) {
		descriptor, err := bs.Prober.Probe(sweepCtx, devicePath)
		if err != nil {
			return nil, err
		}
		if err := descriptor.Validate(); err != nil {
			return nil, err
		}

		tax := taxonomy.New(descriptor)
		suspect := opts.suspectMs
		if suspect == 0 {
			suspect = taxonomy.Recommend(descriptor)
		}
		tax.Thresholds.SuspectThreshold = suspect
		if err := tax.Validate(); err != nil {
			return nil, err
		}

		totalSectors := descriptor.LogicalSectors()
		if totalSectors == 0 {
			totalSectors = descriptor.TotalSectors512
		}

		engineOpts := scanengine.Options{
			StartSector:       0,
			EndSector:         totalSectors,
			BlockSize:         opts.blockSize,
			SampleRatio:       opts.sampleRatio,
			RetestMaxAttempts: 10,
			RetestIntervalMs:  100,
		}
		eng := scanengine.New(bs.Logger, descriptor, tax, engineOpts)
		return eng.Run(sweepCtx)
	}

	sweepCfg := pkgwatch.DefaultConfig(opts.cron)
	sweepCfg.HistorySize = opts.historySize
	sweeper, err := pkgwatch.New(bs.Logger, runFunc, sweepCfg)
	if err != nil {
		reportFatal("failed to create sweeper", err)
		os.Exit(2)
		return nil
	}

	if err := sweeper.Start(ctx); err != nil {
		reportFatal("failed to start sweeper", err)
		os.Exit(2)
		return nil
	}

	lifecycle.HandleSignals(ctx, cancel)
	sweeper.Stop()
	return nil
}
