// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package scanengine drives the timed-read scan loop: setup, the main
// iteration over a SampleSchedule, classification and retest dispatch,
// progress reporting, log emission, and teardown.
package scanengine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/stratastor/logger"

	"github.com/stratastor/diskscan/internal/blockio"
	"github.com/stratastor/diskscan/pkg/device"
	"github.com/stratastor/diskscan/pkg/progress"
	"github.com/stratastor/diskscan/pkg/report"
	"github.com/stratastor/diskscan/pkg/retest"
	"github.com/stratastor/diskscan/pkg/scanerr"
	"github.com/stratastor/diskscan/pkg/schedule"
	"github.com/stratastor/diskscan/pkg/taxonomy"
)

// damagedSentinelMs is the latency recorded for min/max/total aggregation
// on a short read or I/O error — it is never fed to taxonomy.Classify.
const damagedSentinelMs = 30000

// Options parameterizes one scan run. The caller is responsible for
// resolving percentage-style sector bounds to absolute indices before
// constructing Options — that belongs to the out-of-scope CLI layer.
type Options struct {
	StartSector, EndSector uint64
	BlockSize              int

	LogPath        string
	LogThresholdMs int

	SampleRatio float64
	Random      bool
	Seed        uint64

	WaitFactor int // percent of previous latency to sleep before next read

	RetestMaxAttempts int
	RetestIntervalMs  int

	ProgressWriter interface {
		Write([]byte) (int, error)
	}
}

// scanDevice is the subset of *blockio.Device's behavior the scan loop
// depends on. Tests substitute a fixture-driven fake here instead of a
// real block device.
type scanDevice interface {
	Geometry() (blockio.Geometry, error)
	Close() error
	TimedRead(offset int64, buf []byte, skipSeek bool) blockio.ReadResult
}

// openFunc opens a device by path, mirroring blockio.Open's signature
// through the scanDevice interface.
type openFunc func(path string) (scanDevice, bool, error)

func defaultOpen(path string) (scanDevice, bool, error) {
	return blockio.Open(path)
}

// Engine drives one scan of a device, given its already-probed
// Descriptor and a validated Taxonomy.
type Engine struct {
	logger     logger.Logger
	descriptor *device.Descriptor
	tax        *taxonomy.Taxonomy
	opts       Options
	open       openFunc
}

// New builds an Engine.
func New(l logger.Logger, d *device.Descriptor, tax *taxonomy.Taxonomy, opts Options) *Engine {
	return &Engine{logger: l, descriptor: d, tax: tax, opts: opts, open: defaultOpen}
}

// deviceReader adapts a scanDevice into retest.Reader, borrowing the
// engine's own aligned buffer under the single-threaded discipline the
// concurrency model mandates.
type deviceReader struct {
	dev       scanDevice
	buf       []byte
	blockSize int
	logical   int
}

func (r *deviceReader) ReadSector(sector uint64) (int, error) {
	offset := int64(sector) * int64(r.logical)
	res := r.dev.TimedRead(offset, r.buf[:r.blockSize], false)
	if res.Err != nil {
		return 0, res.Err
	}
	return res.LatencyMs, nil
}

// Run executes the scan loop to completion, cancellation, or a setup
// failure. It always returns a RunReport unless setup itself fails.
func (e *Engine) Run(ctx context.Context) (*report.RunReport, error) {
	if e.opts.BlockSize%e.descriptor.LogicalBlockSize != 0 {
		return nil, scanerr.ErrBlockSizeNotAligned
	}
	if e.opts.EndSector <= e.opts.StartSector {
		return nil, scanerr.New(scanerr.SetupRangeInvalid, "end must be greater than start")
	}

	runID := uuid.NewString()

	dev, direct, err := e.open(e.descriptor.DevicePath)
	if err != nil {
		return nil, err
	}
	defer dev.Close()
	degraded := !direct
	if degraded {
		e.log("Warn", "O_DIRECT unavailable, degraded to buffered I/O", "device", e.descriptor.DevicePath)
	}

	// Device-geometry pre-check: re-derive geometry at open time and
	// fail Setup if it no longer matches what probing observed.
	geo, err := dev.Geometry()
	if err != nil {
		return nil, err
	}
	if geo.TotalSectors512 != e.descriptor.TotalSectors512 || geo.LogicalBlockSize != e.descriptor.LogicalBlockSize {
		return nil, scanerr.New(scanerr.DeviceGeometryMismatch,
			fmt.Sprintf("probed sectors=%d logical=%d, now sectors=%d logical=%d",
				e.descriptor.TotalSectors512, e.descriptor.LogicalBlockSize,
				geo.TotalSectors512, geo.LogicalBlockSize))
	}

	align := e.descriptor.LogicalBlockSize
	if pageSize := os.Getpagesize(); pageSize > align {
		align = pageSize
	}
	buf := blockio.AlignedBuffer(e.opts.BlockSize, align)

	sched, err := e.buildSchedule()
	if err != nil {
		return nil, err
	}

	sink, err := openLogSink(e.opts.LogPath)
	if err != nil {
		return nil, scanerr.New(scanerr.LogOpenFailed, err.Error())
	}
	defer sink.Close()

	e.logScanHeader(runID, sched.PlannedCount, direct)

	reader := &deviceReader{dev: dev, buf: buf, blockSize: e.opts.BlockSize, logical: e.descriptor.LogicalBlockSize}
	retestCfg := retest.Config{
		MaxAttempts: e.opts.RetestMaxAttempts,
		Interval:    time.Duration(e.opts.RetestIntervalMs) * time.Millisecond,
	}
	if err := retestCfg.Validate(); err != nil {
		return nil, err
	}

	var rep *progress.Reporter
	if e.opts.ProgressWriter != nil {
		rep = progress.New(e.opts.ProgressWriter, sched.PlannedCount)
	}

	startTime := time.Now()
	var bytesRead uint64
	var cancelled bool
	var prevLatencyMs int
	var expectedOffset int64 = -1

	for {
		select {
		case <-ctx.Done():
			cancelled = true
		default:
		}
		if cancelled {
			break
		}

		sector, ok := sched.Next()
		if !ok {
			break
		}

		if e.opts.WaitFactor > 0 && prevLatencyMs > 0 {
			time.Sleep(time.Duration(prevLatencyMs*e.opts.WaitFactor/100) * time.Millisecond)
		}

		offset := int64(sector) * int64(e.descriptor.LogicalBlockSize)
		skipSeek := sched.Mode == schedule.Dense && offset == expectedOffset

		res := dev.TimedRead(offset, buf, skipSeek)

		var initialCat taxonomy.Category
		var finalCat taxonomy.Category
		var latencyMs int
		var notes string

		if res.Err != nil {
			initialCat = taxonomy.Damaged
			finalCat = taxonomy.Damaged
			latencyMs = -1
			e.tax.RecordInitial(taxonomy.Damaged, damagedSentinelMs)
			sink.Write(sector, -1, string(taxonomy.Damaged), "")
		} else {
			latencyMs = res.LatencyMs
			prevLatencyMs = latencyMs
			bytesRead += uint64(e.opts.BlockSize)
			expectedOffset = offset + int64(e.opts.BlockSize)

			initialCat = e.tax.Classify(latencyMs)
			e.tax.RecordInitial(initialCat, latencyMs)

			if initialCat == taxonomy.Suspect {
				outcome := retest.Retest(reader, sector, retestCfg, e.tax, nil)
				finalCat = outcome.FinalCategory
				e.tax.RecordFinal(finalCat)
				if finalCat == taxonomy.Damaged && len(outcome.Attempts) == 0 {
					notes = "retest failed"
				} else if finalCat == taxonomy.Damaged {
					notes = fmt.Sprintf("retest confirmed damaged mean=%dms", outcome.TrimmedMeanMs)
				} else {
					notes = fmt.Sprintf("retest passed mean=%dms", outcome.TrimmedMeanMs)
				}
			} else {
				finalCat = initialCat
			}

			shouldLog := e.opts.LogThresholdMs == 0 ||
				latencyMs >= e.opts.LogThresholdMs ||
				isAtLeast(finalCat, taxonomy.Poor)
			if shouldLog {
				sink.Write(sector, latencyMs, string(finalCat), notes)
			}
		}

		if rep != nil {
			isFinal := sched.Remaining() == 0
			done := sched.PlannedCount - sched.Remaining()
			if rep.ShouldRedraw(done, finalCat, isFinal) {
				rep.Redraw(done, e.tax.Counters, uint64(e.opts.BlockSize), isFinal)
			}
		}
	}

	wallClock := time.Since(startTime)
	rr := report.Build(runID, e.descriptor.DevicePath, sched.PlannedCount, e.tax, wallClock, bytesRead, cancelled, degraded)
	return rr, nil
}

func (e *Engine) buildSchedule() (*schedule.Schedule, error) {
	if e.opts.SampleRatio <= 0 || e.opts.SampleRatio >= 1.0 {
		return schedule.New(e.opts.StartSector, e.opts.EndSector)
	}
	return schedule.NewSampled(e.opts.StartSector, e.opts.EndSector, e.opts.SampleRatio, e.opts.Random, e.opts.Seed)
}

func (e *Engine) logScanHeader(runID string, plannedCount uint64, direct bool) {
	e.log("Info", "starting scan",
		"run_id", runID,
		"device", e.descriptor.DevicePath,
		"start_sector", e.opts.StartSector,
		"end_sector", e.opts.EndSector,
		"block_size", e.opts.BlockSize,
		"sample_ratio", e.opts.SampleRatio,
		"random", e.opts.Random,
		"planned_count", plannedCount,
		"direct_io", direct,
		"wait_factor", e.opts.WaitFactor,
		"suspect_threshold_ms", e.tax.Thresholds.SuspectThreshold,
	)
}

func (e *Engine) log(level string, msg string, kv ...interface{}) {
	if e.logger == nil {
		return
	}
	switch level {
	case "Warn":
		e.logger.Warn(msg, kv...)
	default:
		e.logger.Info(msg, kv...)
	}
}

// isAtLeast reports whether cat is at least as severe as floor in the
// fixed category ordering Excellent..Damaged.
func isAtLeast(cat, floor taxonomy.Category) bool {
	rank := map[taxonomy.Category]int{
		taxonomy.Excellent: 0, taxonomy.Good: 1, taxonomy.Normal: 2, taxonomy.General: 3,
		taxonomy.Poor: 4, taxonomy.Severe: 5, taxonomy.Suspect: 6, taxonomy.Damaged: 7,
	}
	return rank[cat] >= rank[floor]
}
