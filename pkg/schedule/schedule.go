// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package schedule implements the lazy sample sequence the scan engine
// drives: dense, uniform-strided, and randomized-within-stride sector
// iteration over a half-open sector range.
package schedule

import (
	"math"
	"math/rand/v2"

	"github.com/stratastor/diskscan/pkg/scanerr"
)

// Mode selects how sectors are sampled across the range.
type Mode int

const (
	Dense Mode = iota
	UniformStrided
	RandomizedWithinStride
)

// Schedule is a lazily-evaluated sequence of sector indices over
// [Start, End). Its parameters are fixed at construction via New or
// NewSampled; Next advances an internal cursor.
type Schedule struct {
	Start, End uint64
	Mode       Mode
	Step       float64
	MaxOffset  float64
	PlannedCount uint64

	rng *rand.Rand
	i    uint64
}

// New builds a Dense schedule over [start, end).
func New(start, end uint64) (*Schedule, error) {
	if end <= start {
		return nil, scanerr.New(scanerr.ScheduleInvalidRange, "end must be greater than start")
	}
	return &Schedule{
		Start: start, End: end, Mode: Dense,
		PlannedCount: end - start,
	}, nil
}

// NewSampled builds a UniformStrided or RandomizedWithinStride schedule
// over [start, end) at the given sample ratio. random selects the
// perturbed variant; seed parameterizes its PRNG for reproducibility.
func NewSampled(start, end uint64, ratio float64, random bool, seed uint64) (*Schedule, error) {
	if end <= start {
		return nil, scanerr.New(scanerr.ScheduleInvalidRange, "end must be greater than start")
	}
	if ratio <= 0.0 || ratio > 1.0 {
		return nil, scanerr.New(scanerr.ScheduleInvalidRatio, "sample ratio must be in (0.0, 1.0]")
	}
	rangeLen := end - start
	if ratio == 1.0 {
		return New(start, end)
	}

	planned := uint64(math.Floor(float64(rangeLen) * ratio))
	if planned < 1 {
		planned = 1
	}
	if planned > rangeLen {
		planned = rangeLen
	}

	step := float64(rangeLen) / float64(planned)

	s := &Schedule{
		Start: start, End: end,
		Step:         step,
		PlannedCount: planned,
	}
	if random {
		s.Mode = RandomizedWithinStride
		s.MaxOffset = step / 2 * 0.8
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	} else {
		s.Mode = UniformStrided
	}
	return s, nil
}

// Next returns the next sector index and true, or (0, false) once the
// schedule is exhausted.
func (s *Schedule) Next() (uint64, bool) {
	switch s.Mode {
	case Dense:
		if s.Start+s.i >= s.End {
			return 0, false
		}
		sec := s.Start + s.i
		s.i++
		return sec, true
	default:
		if s.i >= s.PlannedCount {
			return 0, false
		}
		base := float64(s.Start) + float64(s.i)*s.Step
		s.i++
		if s.Mode == RandomizedWithinStride {
			offset := (s.rng.Float64()*2 - 1) * s.MaxOffset
			base += offset
		}
		sec := uint64(math.Floor(base))
		if sec < s.Start {
			sec = s.Start
		}
		if sec >= s.End {
			sec = s.End - 1
		}
		return sec, true
	}
}

// Remaining returns the number of sectors not yet yielded.
func (s *Schedule) Remaining() uint64 {
	if s.i >= s.PlannedCount {
		return 0
	}
	return s.PlannedCount - s.i
}
