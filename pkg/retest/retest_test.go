// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package retest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratastor/diskscan/pkg/device"
	"github.com/stratastor/diskscan/pkg/taxonomy"
)

type scriptedReader struct {
	latencies []int
	errAt     int // -1 means never
	calls     int
}

func (r *scriptedReader) ReadSector(sector uint64) (int, error) {
	i := r.calls
	r.calls++
	if r.errAt >= 0 && i == r.errAt {
		return 0, errors.New("simulated read error")
	}
	if i < len(r.latencies) {
		return r.latencies[i], nil
	}
	return r.latencies[len(r.latencies)-1], nil
}

func nvmeTax() *taxonomy.Taxonomy {
	return taxonomy.New(&device.Descriptor{Class: device.ClassNvmeSsd})
}

func TestRetestResolvesToGoodOnLowLatency(t *testing.T) {
	r := &scriptedReader{latencies: []int{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}, errAt: -1}
	cfg := Config{MaxAttempts: 10, Interval: 0}
	outcome := Retest(r, 42, cfg, nvmeTax(), noSleep)

	assert.Equal(t, taxonomy.Good, outcome.FinalCategory)
	assert.Equal(t, 2, outcome.TrimmedMeanMs)
	assert.Len(t, outcome.Attempts, 10)
}

func TestRetestConfirmsDamagedOnHighLatency(t *testing.T) {
	r := &scriptedReader{latencies: []int{1000}, errAt: -1}
	cfg := Config{MaxAttempts: 5, Interval: 0}
	outcome := Retest(r, 7, cfg, nvmeTax(), noSleep)

	assert.Equal(t, taxonomy.Damaged, outcome.FinalCategory)
}

func TestRetestShortCircuitsToDamagedOnIOError(t *testing.T) {
	r := &scriptedReader{latencies: []int{2, 2}, errAt: 1}
	cfg := Config{MaxAttempts: 10, Interval: 0}
	outcome := Retest(r, 3, cfg, nvmeTax(), noSleep)

	assert.Equal(t, taxonomy.Damaged, outcome.FinalCategory)
	assert.Len(t, outcome.Attempts, 1)
}

func TestTrimmedMeanDropsOneMinAndMax(t *testing.T) {
	assert.Equal(t, 5, trimmedMean([]int{1, 5, 5, 5, 100}))
}

func TestTrimmedMeanAveragesWhenFewerThanThree(t *testing.T) {
	assert.Equal(t, 3, trimmedMean([]int{2, 4}))
}

func TestConfigValidateBounds(t *testing.T) {
	require.Error(t, Config{MaxAttempts: 2, Interval: 0}.Validate())
	require.Error(t, Config{MaxAttempts: 11, Interval: 0}.Validate())
	require.Error(t, Config{MaxAttempts: 5, Interval: -1}.Validate())
	require.NoError(t, DefaultConfig().Validate())
}

func noSleep(time.Duration) {}
