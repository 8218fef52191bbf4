// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package scan implements the `diskscan scan` command: probe a device,
// derive its taxonomy, run a timed-read scan over a sector range, and
// print the resulting RunReport.
package scan

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stratastor/diskscan/internal/cliutil"
	"github.com/stratastor/diskscan/pkg/report"
	"github.com/stratastor/diskscan/pkg/scanengine"
	"github.com/stratastor/diskscan/pkg/scanerr"
	"github.com/stratastor/diskscan/pkg/taxonomy"
)

const (
	exitOK                = 0
	exitCancelled         = 1
	exitInvalidOrSetup    = 2
	exitIOOpenFailure     = 3
)

var opts struct {
	blockSize      int
	logPath        string
	logThreshold   int
	configPath     string
	taxonomyConfig string
	sampleRatio    float64
	random         bool
	waitFactor     int
	suspectMs      int
	retries        int
	intervalMs     int
}

// NewScanCmd builds the `scan` subcommand.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <device> <start> <end>",
		Short: "Probe a device and scan a sector range for latency anomalies",
		Args:  cobra.ExactArgs(3),
		RunE:  runScan,
	}

	f := cmd.Flags()
	f.IntVarP(&opts.blockSize, "block-size", "b", 4096, "read block size in bytes")
	f.StringVarP(&opts.logPath, "log", "l", "", "CSV log file path")
	f.IntVarP(&opts.logThreshold, "log-threshold", "t", 0, "minimum latency in ms to log (0 = log all)")
	f.StringVarP(&opts.taxonomyConfig, "config", "c", "", "latency taxonomy overlay path")
	f.StringVar(&opts.configPath, "app-config", "", "ambient application config path")
	f.Float64VarP(&opts.sampleRatio, "sample", "s", 1.0, "sample ratio in (0.0, 1.0]")
	f.BoolVarP(&opts.random, "random", "r", false, "use randomized-within-stride sampling")
	f.IntVarP(&opts.waitFactor, "wait", "w", 0, "percent of previous latency to sleep before next read")
	f.IntVarP(&opts.suspectMs, "suspect", "S", 0, "suspect threshold in ms (0 = recommended by class)")
	f.IntVarP(&opts.retries, "retries", "R", 10, "retest attempts (3..10)")
	f.IntVarP(&opts.intervalMs, "interval", "I", 100, "retest inter-attempt pause in ms")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	devicePath, startArg, endArg := args[0], args[1], args[2]

	bs, err := cliutil.NewBootstrap(opts.configPath, "scan")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize:", err)
		os.Exit(exitInvalidOrSetup)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	descriptor, err := bs.Prober.Probe(ctx, devicePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "probe failed:", err)
		os.Exit(exitCodeFor(err, exitIOOpenFailure))
		return nil
	}
	if err := descriptor.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "device descriptor invalid:", err)
		os.Exit(exitInvalidOrSetup)
		return nil
	}

	tax := taxonomy.New(descriptor)
	suspect := opts.suspectMs
	if suspect == 0 {
		suspect = taxonomy.Recommend(descriptor)
	}
	tax.Thresholds.SuspectThreshold = suspect

	if opts.taxonomyConfig != "" {
		warn := func(key, value string) {
			bs.Logger.Warn("unrecognized taxonomy config key", "key", key, "value", value)
		}
		if err := tax.LoadOverlay(opts.taxonomyConfig, warn); err != nil {
			fmt.Fprintln(os.Stderr, "taxonomy config invalid:", err)
			os.Exit(exitInvalidOrSetup)
			return nil
		}
	} else if err := tax.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "taxonomy invalid:", err)
		os.Exit(exitInvalidOrSetup)
		return nil
	}

	totalSectors := descriptor.LogicalSectors()
	if totalSectors == 0 {
		totalSectors = descriptor.TotalSectors512
	}
	start, err := cliutil.ParseSectorBound(startArg, totalSectors)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitInvalidOrSetup)
		return nil
	}
	end, err := cliutil.ParseSectorBound(endArg, totalSectors)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitInvalidOrSetup)
		return nil
	}

	engineOpts := scanengine.Options{
		StartSector:       start,
		EndSector:         end,
		BlockSize:         opts.blockSize,
		LogPath:           opts.logPath,
		LogThresholdMs:    opts.logThreshold,
		SampleRatio:       opts.sampleRatio,
		Random:            opts.random,
		Seed:              uint64(os.Getpid()),
		WaitFactor:        opts.waitFactor,
		RetestMaxAttempts: opts.retries,
		RetestIntervalMs:  opts.intervalMs,
		ProgressWriter:    os.Stdout,
	}

	eng := scanengine.New(bs.Logger, descriptor, tax, engineOpts)
	rr, err := eng.Run(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "scan failed:", err)
		os.Exit(exitCodeFor(err, exitInvalidOrSetup))
		return nil
	}

	printReport(rr)

	if rr.Cancelled {
		os.Exit(exitCancelled)
	}
	os.Exit(exitOK)
	return nil
}

func printReport(rr *report.RunReport) {
	fmt.Printf("\nrun_id:        %s\n", rr.RunID)
	fmt.Printf("device:        %s\n", rr.DevicePath)
	fmt.Printf("total_reads:   %d / %d planned\n", rr.TotalReads, rr.PlannedCount)
	fmt.Printf("wall_clock:    %s\n", rr.WallClock)
	fmt.Printf("avg_throughput: %.0f B/s\n", rr.AvgThroughputBps)
	fmt.Printf("verdict:       %s\n", rr.Verdict)
	if rr.HardwareFaultWarning {
		fmt.Println("WARNING: hardware fault suspected (Damaged sectors observed)")
	}
	if rr.Cancelled {
		fmt.Println("scan was cancelled before completion")
	}
	if rr.Degraded {
		fmt.Println("note: ran in degraded (non-O_DIRECT) I/O mode")
	}
	fmt.Println("category breakdown:")
	for cat, count := range rr.CategoryCounts {
		fmt.Printf("  %-10s %8d (%5.1f%%)\n", cat, count, 100*rr.CategoryFractions[cat])
	}
}

func exitCodeFor(err error, fallback int) int {
	se, ok := err.(*scanerr.ScanError)
	if !ok {
		return fallback
	}
	if se.Domain == scanerr.DomainDevice {
		return exitIOOpenFailure
	}
	return fallback
}
