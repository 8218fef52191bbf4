// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package blockio

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratastor/diskscan/pkg/scanerr"
)

func TestAlignedBufferIsAlignedAndRightSized(t *testing.T) {
	for _, align := range []int{512, 4096} {
		buf := AlignedBuffer(4096, align)
		assert.Len(t, buf, 4096)
		addr := uintptr(unsafe.Pointer(&buf[0]))
		assert.Equal(t, uintptr(0), addr%uintptr(align), "align=%d", align)
	}
}

func TestAlignedBufferCapMatchesLen(t *testing.T) {
	buf := AlignedBuffer(512, 512)
	assert.Equal(t, 512, cap(buf))
}

func TestOpenMissingPathReturnsDeviceNotFound(t *testing.T) {
	_, _, err := Open("/nonexistent/diskscan-test-device")
	require.Error(t, err)
	code, ok := scanerr.GetCode(err)
	require.True(t, ok)
	assert.Equal(t, scanerr.ErrorCode(scanerr.DeviceNotFound), code)
}
