// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package humanize formats throughput, counts, and durations for the
// progress reporter.
package humanize

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// ByteRate renders a bytes-per-second rate in human units, scaling
// B/s → KB/s → MB/s → GB/s.
func ByteRate(bytesPerSec float64) string {
	units := []string{"B/s", "KB/s", "MB/s", "GB/s"}
	v := bytesPerSec
	i := 0
	for v >= 1024 && i < len(units)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", v, units[i])
}

// Count renders an integer count with locale thousands separators, e.g.
// "1,234,567".
func Count(n uint64) string {
	return printer.Sprintf("%d", n)
}

// Duration renders a duration as H:MM:SS, truncating sub-second
// precision — the scan can run for hours, never needs finer display.
func Duration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// ETA estimates remaining time from samples completed so far, total
// planned samples, and elapsed wall time.
func ETA(done, planned uint64, elapsed time.Duration) time.Duration {
	if done == 0 {
		return 0
	}
	perSample := elapsed / time.Duration(done)
	remaining := planned - done
	if planned < done {
		remaining = 0
	}
	return perSample * time.Duration(remaining)
}
