// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package taxonomy implements the latency classification scheme: ordered
// millisecond thresholds per device class, a classify operation, running
// counters, and a simple key=value config overlay.
package taxonomy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/stratastor/diskscan/pkg/device"
	"github.com/stratastor/diskscan/pkg/scanerr"
)

// Category is one of the eight latency buckets.
type Category string

const (
	Excellent Category = "Excellent"
	Good      Category = "Good"
	Normal    Category = "Normal"
	General   Category = "General"
	Poor      Category = "Poor"
	Severe    Category = "Severe"
	Suspect   Category = "Suspect"
	Damaged   Category = "Damaged"
)

// orderedBuckets lists the six non-terminal categories low to high, the
// order classify() walks.
var orderedBuckets = []Category{Excellent, Good, Normal, General, Poor, Severe}

// Thresholds holds the six ordered millisecond ceilings plus the suspect
// threshold.
type Thresholds struct {
	ExcellentMax    int
	GoodMax         int
	NormalMax       int
	GeneralMax      int
	PoorMax         int
	SevereMax       int
	SuspectThreshold int
}

func (t Thresholds) ceilingFor(c Category) int {
	switch c {
	case Excellent:
		return t.ExcellentMax
	case Good:
		return t.GoodMax
	case Normal:
		return t.NormalMax
	case General:
		return t.GeneralMax
	case Poor:
		return t.PoorMax
	case Severe:
		return t.SevereMax
	}
	return 0
}

// defaultsByClass are the per-device-class default thresholds in
// milliseconds: excellent/good/normal/general/poor/severe/suspect.
var defaultsByClass = map[device.Class]Thresholds{
	device.ClassNvmeSsd:    {1, 3, 8, 20, 50, 200, 8},
	device.ClassSataSsd:    {2, 8, 20, 50, 150, 500, 20},
	device.ClassUnknownSsd: {2, 8, 20, 50, 150, 500, 20},
	device.ClassHDD:        {8, 20, 40, 80, 200, 1000, 40},
	device.ClassUsb:        {5, 15, 40, 100, 300, 1500, 40},
	device.ClassUnknown:    {5, 15, 35, 80, 200, 800, 35},
}

// Taxonomy maps latencies to categories and accumulates per-category
// counters across a scan. It is built once from a Descriptor and mutated
// by the engine for the rest of the run.
type Taxonomy struct {
	Thresholds Thresholds

	Counters map[Category]uint64

	TotalReads uint64
	TotalMs    uint64
	MinMs      uint64
	MaxMs      uint64
}

// New builds a Taxonomy from the device's default thresholds for its class.
func New(d *device.Descriptor) *Taxonomy {
	t, ok := defaultsByClass[d.Class]
	if !ok {
		t = defaultsByClass[device.ClassUnknown]
	}
	return newWithThresholds(t)
}

func newWithThresholds(t Thresholds) *Taxonomy {
	return &Taxonomy{
		Thresholds: t,
		Counters: map[Category]uint64{
			Excellent: 0, Good: 0, Normal: 0, General: 0,
			Poor: 0, Severe: 0, Suspect: 0, Damaged: 0,
		},
	}
}

// Validate enforces the ordering and range invariants a Taxonomy must hold
// before a scan may begin.
func (t *Taxonomy) Validate() error {
	th := t.Thresholds
	ordered := []int{th.ExcellentMax, th.GoodMax, th.NormalMax, th.GeneralMax, th.PoorMax, th.SevereMax}
	for i, v := range ordered {
		if v < 1 || v > 30000 {
			return scanerr.New(scanerr.TaxonomyConfigValueOutOfRange,
				fmt.Sprintf("threshold %d out of range [1,30000]: %d", i, v))
		}
		if i > 0 && v <= ordered[i-1] {
			return scanerr.New(scanerr.TaxonomyInvalidThresholds,
				"thresholds must be strictly increasing across excellent..severe")
		}
	}
	if th.SuspectThreshold < th.NormalMax {
		return scanerr.New(scanerr.TaxonomyInvalidThresholds,
			"suspect_threshold must be >= normal_max")
	}
	if th.SuspectThreshold < 1 || th.SuspectThreshold > 30000 {
		return scanerr.New(scanerr.TaxonomyConfigValueOutOfRange,
			fmt.Sprintf("suspect_threshold out of range [1,30000]: %d", th.SuspectThreshold))
	}
	return nil
}

// Classify maps a latency in milliseconds to a category. Damaged is never
// produced here; it is assigned only by I/O-error paths or RetestProtocol.
func (t *Taxonomy) Classify(ms int) Category {
	if ms >= t.Thresholds.SuspectThreshold {
		return Suspect
	}
	for _, c := range orderedBuckets {
		if ms <= t.Thresholds.ceilingFor(c) {
			return c
		}
	}
	// Reached when SuspectThreshold > SevereMax and ms lies between the
	// two: such a latency is reported as Severe, the highest non-suspect
	// bucket.
	return Severe
}

// RecordInitial increments the initial-category counter and updates the
// running aggregates for one sample's measured latency.
func (t *Taxonomy) RecordInitial(cat Category, ms int) {
	t.Counters[cat]++
	t.TotalReads++
	u := uint64(ms)
	t.TotalMs += u
	if t.TotalReads == 1 || u < t.MinMs {
		t.MinMs = u
	}
	if u > t.MaxMs {
		t.MaxMs = u
	}
}

// RecordFinal increments the final-category counter for a sector that was
// retested; it does not touch the running latency aggregates, which are
// driven by the initial measurement per sample.
func (t *Taxonomy) RecordFinal(cat Category) {
	t.Counters[cat]++
}

// Recommend returns a conservative suspect threshold by class, used when
// the caller passes 0 ("pick recommended by class").
func Recommend(d *device.Descriptor) int {
	switch d.Class {
	case device.ClassNvmeSsd:
		return 10
	case device.ClassSataSsd, device.ClassUnknownSsd:
		return 20
	case device.ClassHDD:
		if d.RotationRPM >= 10000 {
			return 60
		}
		if d.RotationRPM >= 7200 || d.RotationRPM == 0 {
			return 100
		}
		return 150
	case device.ClassUsb:
		return 200
	}
	return 200
}

// LoadOverlay parses a key=value taxonomy overlay file and applies
// recognized keys onto t, then re-validates. Unknown keys warn via the
// provided warn callback and are otherwise ignored.
func (t *Taxonomy) LoadOverlay(path string, warn func(key, value string)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return scanerr.New(scanerr.SetupConfigNotFound, path)
		}
		return scanerr.New(scanerr.SetupConfigInvalid, err.Error())
	}
	defer f.Close()
	return t.loadOverlayFrom(f, warn)
}

func (t *Taxonomy) loadOverlayFrom(r io.Reader, warn func(key, value string)) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return scanerr.New(scanerr.TaxonomyConfigParseError,
				fmt.Sprintf("malformed line: %q", line))
		}
		key := strings.TrimSpace(parts[0])
		valStr := strings.TrimSpace(parts[1])
		val, err := strconv.Atoi(valStr)
		if err != nil {
			return scanerr.New(scanerr.TaxonomyConfigParseError,
				fmt.Sprintf("non-integer value for %s: %q", key, valStr))
		}
		if val < 0 || val > 30000 {
			return scanerr.New(scanerr.TaxonomyConfigValueOutOfRange,
				fmt.Sprintf("%s=%d out of range [0,30000]", key, val))
		}
		switch key {
		case "excellent_max":
			t.Thresholds.ExcellentMax = val
		case "good_max":
			t.Thresholds.GoodMax = val
		case "normal_max":
			t.Thresholds.NormalMax = val
		case "general_max":
			t.Thresholds.GeneralMax = val
		case "poor_max":
			t.Thresholds.PoorMax = val
		case "severe_max":
			t.Thresholds.SevereMax = val
		case "suspect_threshold":
			t.Thresholds.SuspectThreshold = val
		default:
			if warn != nil {
				warn(key, valStr)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return scanerr.New(scanerr.TaxonomyConfigParseError, err.Error())
	}
	return t.Validate()
}

// Save writes the taxonomy's thresholds back out in the same key=value
// format LoadOverlay reads, satisfying save(load(cfg)) = cfg round-trips.
func (t *Taxonomy) Save(w io.Writer) error {
	th := t.Thresholds
	lines := []string{
		fmt.Sprintf("excellent_max=%d", th.ExcellentMax),
		fmt.Sprintf("good_max=%d", th.GoodMax),
		fmt.Sprintf("normal_max=%d", th.NormalMax),
		fmt.Sprintf("general_max=%d", th.GeneralMax),
		fmt.Sprintf("poor_max=%d", th.PoorMax),
		fmt.Sprintf("severe_max=%d", th.SevereMax),
		fmt.Sprintf("suspect_threshold=%d", th.SuspectThreshold),
	}
	for _, line := range lines {
		if _, err := io.WriteString(w, line+"\n"); err != nil {
			return err
		}
	}
	return nil
}
