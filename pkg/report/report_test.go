// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/stratastor/diskscan/pkg/device"
	"github.com/stratastor/diskscan/pkg/taxonomy"
)

func nvmeTax() *taxonomy.Taxonomy {
	return taxonomy.New(&device.Descriptor{Class: device.ClassNvmeSsd})
}

func TestBuildExcellentVerdict(t *testing.T) {
	tax := nvmeTax()
	for i := 0; i < 95; i++ {
		tax.RecordInitial(taxonomy.Excellent, 1)
	}
	for i := 0; i < 5; i++ {
		tax.RecordInitial(taxonomy.Good, 2)
	}

	rr := Build("run-1", "/dev/sda", 100, tax, 10*time.Second, 100*4096, false, false)
	assert.Equal(t, VerdictExcellent, rr.Verdict)
	assert.False(t, rr.HardwareFaultWarning)
	assert.Equal(t, uint64(100), rr.TotalReads)
}

func TestBuildCriticalVerdictOnHeavyDamage(t *testing.T) {
	tax := nvmeTax()
	for i := 0; i < 10; i++ {
		tax.RecordInitial(taxonomy.Excellent, 1)
	}
	for i := 0; i < 90; i++ {
		tax.RecordInitial(taxonomy.Damaged, 1000)
	}

	rr := Build("run-2", "/dev/sda", 100, tax, time.Second, 100*4096, false, false)
	assert.Equal(t, VerdictCritical, rr.Verdict)
	assert.True(t, rr.HardwareFaultWarning)
}

func TestBuildThroughputZeroWallClock(t *testing.T) {
	tax := nvmeTax()
	tax.RecordInitial(taxonomy.Good, 2)
	rr := Build("run-3", "/dev/sda", 1, tax, 0, 4096, false, false)
	assert.Equal(t, float64(0), rr.AvgThroughputBps)
}

func TestBuildCancelledAndDegradedFlagsPassThrough(t *testing.T) {
	tax := nvmeTax()
	tax.RecordInitial(taxonomy.Good, 2)
	rr := Build("run-4", "/dev/sda", 1, tax, time.Second, 4096, true, true)
	assert.True(t, rr.Cancelled)
	assert.True(t, rr.Degraded)
}

func TestBuildPoorVerdictFromSmallBadFraction(t *testing.T) {
	tax := nvmeTax()
	for i := 0; i < 95; i++ {
		tax.RecordInitial(taxonomy.General, 15)
	}
	for i := 0; i < 5; i++ {
		tax.RecordInitial(taxonomy.Poor, 40)
	}
	rr := Build("run-5", "/dev/sda", 100, tax, time.Second, 4096, false, false)
	assert.Equal(t, VerdictPoor, rr.Verdict)
}
