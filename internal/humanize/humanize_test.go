// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package humanize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestByteRateScalesThroughUnits(t *testing.T) {
	assert.Equal(t, "512.00 B/s", ByteRate(512))
	assert.Equal(t, "1.00 KB/s", ByteRate(1024))
	assert.Equal(t, "1.00 MB/s", ByteRate(1024*1024))
	assert.Equal(t, "1.00 GB/s", ByteRate(1024*1024*1024))
}

func TestCountAddsThousandsSeparators(t *testing.T) {
	assert.Equal(t, "1,234,567", Count(1234567))
	assert.Equal(t, "42", Count(42))
}

func TestDurationFormatsHoursMinutesSeconds(t *testing.T) {
	assert.Equal(t, "1:02:03", Duration(time.Hour+2*time.Minute+3*time.Second))
	assert.Equal(t, "0:00:00", Duration(500*time.Millisecond))
}

func TestETAZeroWhenNothingDoneYet(t *testing.T) {
	assert.Equal(t, time.Duration(0), ETA(0, 100, time.Minute))
}

func TestETAEstimatesRemainingLinearly(t *testing.T) {
	eta := ETA(50, 100, 50*time.Second)
	assert.Equal(t, 50*time.Second, eta)
}

func TestETAZeroWhenDoneExceedsPlanned(t *testing.T) {
	eta := ETA(110, 100, time.Minute)
	assert.Equal(t, time.Duration(0), eta)
}
