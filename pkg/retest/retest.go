// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package retest implements the suspect-sector re-test protocol: repeated
// timed reads of one sector with inter-attempt pauses, collapsed into a
// trimmed-mean latency and a confirmed category.
package retest

import (
	"sort"
	"time"

	"github.com/stratastor/diskscan/pkg/scanerr"
	"github.com/stratastor/diskscan/pkg/taxonomy"
)

// Config bounds and paces the retest protocol.
type Config struct {
	MaxAttempts int           // min 3, max 10, default 10
	Interval    time.Duration // default 100ms; 0 means no sleep
}

// DefaultConfig returns the protocol's default pacing.
func DefaultConfig() Config {
	return Config{MaxAttempts: 10, Interval: 100 * time.Millisecond}
}

// Validate checks the config against the protocol's bounds.
func (c Config) Validate() error {
	if c.MaxAttempts < 3 || c.MaxAttempts > 10 {
		return scanerr.New(scanerr.RetestInvalidConfig, "max_attempts must be in [3,10]")
	}
	if c.Interval < 0 {
		return scanerr.New(scanerr.RetestInvalidConfig, "interval must be >= 0")
	}
	return nil
}

// Reader performs one timed read of a single logical block at sector,
// returning latency in milliseconds or an error. Implementations are
// expected to reuse the scan engine's open device or a sibling descriptor
// in the same I/O mode.
type Reader interface {
	ReadSector(sector uint64) (latencyMs int, err error)
}

// Outcome is the result of retesting one suspect sector.
type Outcome struct {
	Attempts        []int
	TrimmedMeanMs   int
	FinalCategory   taxonomy.Category
}

// Retest re-reads sector up to cfg.MaxAttempts times, pausing cfg.Interval
// between attempts, and classifies the trimmed-mean latency against tax.
// An I/O error on any attempt short-circuits to Damaged immediately.
func Retest(r Reader, sector uint64, cfg Config, tax *taxonomy.Taxonomy, sleep func(time.Duration)) Outcome {
	if sleep == nil {
		sleep = time.Sleep
	}

	attempts := make([]int, 0, cfg.MaxAttempts)
	for i := 0; i < cfg.MaxAttempts; i++ {
		if i > 0 && cfg.Interval > 0 {
			sleep(cfg.Interval)
		}
		ms, err := r.ReadSector(sector)
		if err != nil {
			return Outcome{Attempts: attempts, FinalCategory: taxonomy.Damaged}
		}
		attempts = append(attempts, ms)
	}

	mean := trimmedMean(attempts)
	return Outcome{
		Attempts:      attempts,
		TrimmedMeanMs: mean,
		FinalCategory: classifyRetested(tax, mean),
	}
}

// trimmedMean discards exactly one minimum and one maximum when there are
// at least 3 samples; otherwise it averages all of them.
func trimmedMean(attempts []int) int {
	if len(attempts) == 0 {
		return 0
	}
	if len(attempts) < 3 {
		sum := 0
		for _, v := range attempts {
			sum += v
		}
		return sum / len(attempts)
	}

	sorted := make([]int, len(attempts))
	copy(sorted, attempts)
	sort.Ints(sorted)

	sum := 0
	for _, v := range sorted[1 : len(sorted)-1] {
		sum += v
	}
	return sum / (len(sorted) - 2)
}

// classifyRetested applies the six-bucket mapping to a trimmed-mean
// latency, promoting to Damaged only when the mean still exceeds
// 2 * severe_max — the spec's inherited-as-is damaged threshold.
func classifyRetested(tax *taxonomy.Taxonomy, meanMs int) taxonomy.Category {
	if meanMs > tax.Thresholds.SevereMax*2 {
		return taxonomy.Damaged
	}
	if meanMs < tax.Thresholds.SuspectThreshold {
		return tax.Classify(meanMs)
	}
	// Still at or above suspect_threshold but within the damaged cutoff:
	// map it against the six-bucket ceilings directly, since Classify
	// would otherwise route it straight back to Suspect.
	switch {
	case meanMs <= tax.Thresholds.ExcellentMax:
		return taxonomy.Excellent
	case meanMs <= tax.Thresholds.GoodMax:
		return taxonomy.Good
	case meanMs <= tax.Thresholds.NormalMax:
		return taxonomy.Normal
	case meanMs <= tax.Thresholds.GeneralMax:
		return taxonomy.General
	case meanMs <= tax.Thresholds.PoorMax:
		return taxonomy.Poor
	default:
		return taxonomy.Severe
	}
}
