// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package progress implements the rate-limited live status display the
// scan engine feeds on every sample.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/stratastor/diskscan/internal/humanize"
	"github.com/stratastor/diskscan/pkg/taxonomy"
)

const barWidth = 25

// categoryOrder fixes the display order of the eight counters.
var categoryOrder = []taxonomy.Category{
	taxonomy.Excellent, taxonomy.Good, taxonomy.Normal, taxonomy.General,
	taxonomy.Poor, taxonomy.Severe, taxonomy.Suspect, taxonomy.Damaged,
}

// blockHeight is the fixed number of terminal lines the status block
// occupies: bar/percent line, throughput/elapsed/ETA line, a blank
// separator line, and one line per category.
var blockHeight = 3 + len(categoryOrder)

// Reporter redraws a fixed-height status block to w, rate-limited per
// the redraw policy in the component design.
type Reporter struct {
	w io.Writer

	plannedCount uint64
	startTime    time.Time

	lastRedraw   time.Time
	lastPercent  float64
	drawnOnce    bool
}

// New builds a Reporter that will write up to plannedCount-many updates
// to w.
func New(w io.Writer, plannedCount uint64) *Reporter {
	return &Reporter{w: w, plannedCount: plannedCount, startTime: time.Now()}
}

// ShouldRedraw applies the redraw policy: time elapsed, category
// severity, progress delta, first/last sample.
func (r *Reporter) ShouldRedraw(done uint64, latestCategory taxonomy.Category, isFinal bool) bool {
	if !r.drawnOnce || isFinal {
		return true
	}
	if time.Since(r.lastRedraw) >= time.Second {
		return true
	}
	if severityRank(latestCategory) >= severityRank(taxonomy.Poor) {
		return true
	}
	percent := 100 * float64(done) / float64(r.plannedCount)
	if percent-r.lastPercent >= 1.0 {
		return true
	}
	return false
}

func severityRank(c taxonomy.Category) int {
	for i, cat := range categoryOrder {
		if cat == c {
			return i
		}
	}
	return 0
}

// Redraw writes the status block: progress bar, percent, throughput,
// elapsed, ETA, and the category table. It moves the cursor up and
// clears to the end of the screen first (never carriage-return
// overwriting, to avoid line-wrap artifacts on narrow terminals).
func (r *Reporter) Redraw(done uint64, counters map[taxonomy.Category]uint64, bytesPerSample uint64, isFinal bool) {
	if r.drawnOnce {
		fmt.Fprintf(r.w, "\033[%dA\033[J", blockHeight)
	}
	r.drawnOnce = true
	r.lastRedraw = time.Now()

	percent := 100 * float64(done) / float64(r.plannedCount)
	r.lastPercent = percent

	elapsed := time.Since(r.startTime)
	filled := int(float64(barWidth) * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	bar := "[" + repeat("#", filled) + repeat(" ", barWidth-filled) + "]"

	var throughput float64
	if elapsed > 0 {
		throughput = float64(done*bytesPerSample) / elapsed.Seconds()
	}
	eta := humanize.ETA(done, r.plannedCount, elapsed)

	fmt.Fprintf(r.w, "%s %5.1f%%\n", bar, percent)
	fmt.Fprintf(r.w, "rate=%s elapsed=%s eta=%s\n", humanize.ByteRate(throughput), humanize.Duration(elapsed), humanize.Duration(eta))
	fmt.Fprintf(r.w, "\n")

	total := done
	for _, cat := range categoryOrder {
		count := counters[cat]
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(count) / float64(total)
		}
		fmt.Fprintf(r.w, "%-10s %8d (%5.1f%%)\n", cat, count, pct)
	}
}

func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, len(s)*n)
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
