// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package scanengine

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// logSink is the append-only CSV record sink described in the external
// interfaces design: one record per logged read, flushed and closed on
// every exit path. A write failure disables further logging without
// stopping the scan.
type logSink struct {
	f       *os.File
	w       *csv.Writer
	broken  bool
}

func openLogSink(path string) (*logSink, error) {
	if path == "" {
		return &logSink{}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &logSink{f: f, w: csv.NewWriter(f)}, nil
}

func (s *logSink) enabled() bool {
	return s.w != nil && !s.broken
}

// Write appends one record. latencyMs is -1 for an I/O error, per the
// log record format.
func (s *logSink) Write(sector uint64, latencyMs int, category string, notes string) {
	if !s.enabled() {
		return
	}
	record := []string{
		time.Now().Local().Format(time.RFC3339),
		"sector_" + strconv.FormatUint(sector, 10),
		fmt.Sprintf("%d", latencyMs),
		category,
		notes,
	}
	if err := s.w.Write(record); err != nil {
		s.broken = true
	}
}

func (s *logSink) Close() error {
	if s.w != nil {
		s.w.Flush()
	}
	if s.f != nil {
		return s.f.Close()
	}
	return nil
}
