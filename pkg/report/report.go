// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package report builds the end-of-scan RunReport: totals, throughput,
// per-category breakdown, and the derived health verdict.
package report

import (
	"time"

	"github.com/stratastor/diskscan/pkg/taxonomy"
)

// Verdict is the overall health judgement derived from category
// fractions.
type Verdict string

const (
	VerdictExcellent Verdict = "Excellent"
	VerdictGood      Verdict = "Good"
	VerdictNormal    Verdict = "Normal"
	VerdictPoor      Verdict = "Poor"
	VerdictBad       Verdict = "Bad"
	VerdictCritical  Verdict = "Critical"
)

// RunReport is the aggregate produced at end-of-range or on cancellation.
type RunReport struct {
	RunID string

	DevicePath  string
	TotalReads  uint64
	PlannedCount uint64

	WallClock          time.Duration
	AvgThroughputBps   float64

	CategoryCounts    map[taxonomy.Category]uint64
	CategoryFractions map[taxonomy.Category]float64

	Verdict         Verdict
	HardwareFaultWarning bool

	Cancelled bool
	Degraded  bool // O_DIRECT fell back to buffered I/O
}

// Build derives a RunReport from a taxonomy's final counters and the
// engine's run-level bookkeeping.
func Build(runID, devicePath string, plannedCount uint64, tax *taxonomy.Taxonomy, wallClock time.Duration, bytesRead uint64, cancelled, degraded bool) *RunReport {
	r := &RunReport{
		RunID:        runID,
		DevicePath:   devicePath,
		TotalReads:   tax.TotalReads,
		PlannedCount: plannedCount,
		WallClock:    wallClock,
		Cancelled:    cancelled,
		Degraded:     degraded,
	}

	if wallClock > 0 {
		r.AvgThroughputBps = float64(bytesRead) / wallClock.Seconds()
	}

	r.CategoryCounts = make(map[taxonomy.Category]uint64, len(tax.Counters))
	r.CategoryFractions = make(map[taxonomy.Category]float64, len(tax.Counters))
	for cat, count := range tax.Counters {
		r.CategoryCounts[cat] = count
		if r.TotalReads > 0 {
			r.CategoryFractions[cat] = float64(count) / float64(r.TotalReads)
		}
	}

	r.Verdict = deriveVerdict(r.CategoryFractions)
	r.HardwareFaultWarning = r.CategoryCounts[taxonomy.Damaged] > 0

	return r
}

func deriveVerdict(frac map[taxonomy.Category]float64) Verdict {
	excellent := frac[taxonomy.Excellent]
	good := frac[taxonomy.Good]
	normal := frac[taxonomy.Normal]
	bad := frac[taxonomy.Poor] + frac[taxonomy.Severe] + frac[taxonomy.Suspect] + frac[taxonomy.Damaged]

	switch {
	case excellent >= 0.8:
		return VerdictExcellent
	case excellent+good >= 0.7:
		return VerdictGood
	case excellent+good+normal >= 0.6:
		return VerdictNormal
	case bad <= 0.1:
		return VerdictPoor
	case bad <= 0.3:
		return VerdictBad
	default:
		return VerdictCritical
	}
}
