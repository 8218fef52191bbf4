// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package blockio wraps the raw syscalls the scan engine needs against a
// Linux block device: geometry via ioctl, O_DIRECT open with a buffered
// fallback, aligned buffer allocation, and timed positioned reads.
package blockio

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/stratastor/diskscan/pkg/scanerr"
)

// Geometry is the raw geometry read straight from the kernel via ioctl,
// independent of anything the prober fused from sysfs/udev/SMART.
type Geometry struct {
	LogicalBlockSize  int
	PhysicalBlockSize int
	TotalSectors512   uint64
}

// ReadGeometry issues BLKSSZGET, BLKPBSZGET, and BLKGETSIZE against an
// already-open file descriptor.
func ReadGeometry(fd int) (Geometry, error) {
	var g Geometry

	lbs, err := unix.IoctlGetInt(fd, unix.BLKSSZGET)
	if err != nil {
		return g, scanerr.New(scanerr.DeviceOpenFailed, "BLKSSZGET: "+err.Error())
	}
	g.LogicalBlockSize = lbs

	pbs, err := unix.IoctlGetInt(fd, unix.BLKPBSZGET)
	if err != nil {
		// Not fatal: some drivers don't report a physical block size
		// distinct from the logical one.
		pbs = lbs
	}
	g.PhysicalBlockSize = pbs

	sectors, err := ioctlGetUlong(fd, unix.BLKGETSIZE)
	if err != nil {
		return g, scanerr.New(scanerr.DeviceOpenFailed, "BLKGETSIZE: "+err.Error())
	}
	g.TotalSectors512 = sectors

	return g, nil
}

// ioctlGetUlong issues an ioctl that fills an unsigned long — x/sys/unix
// only wraps the common int-sized ioctls directly, so BLKGETSIZE (whose
// kernel ABI returns an unsigned long, 8 bytes on amd64/arm64) goes
// through the raw syscall.
func ioctlGetUlong(fd int, req uint) (uint64, error) {
	var value uint64
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(&value)))
	if errno != 0 {
		return 0, errno
	}
	return value, nil
}

// Device is an open block device, read-only, ideally in O_DIRECT mode.
// It owns exactly one file descriptor and is not safe for concurrent use
// — the scan engine is single-threaded by design.
type Device struct {
	fd        int
	path      string
	direct    bool
	blockSize int
}

// Open opens path read-only with O_DIRECT|O_SYNC. On EINVAL (a common
// signal that the underlying filesystem or device doesn't support direct
// I/O) it retries once in buffered mode; callers should log the
// degradation using the returned direct flag.
func Open(path string) (*Device, bool, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECT|unix.O_SYNC, 0)
	if err == nil {
		return &Device{fd: fd, path: path, direct: true}, true, nil
	}
	if err != unix.EINVAL {
		return nil, false, classifyOpenError(err)
	}

	fd, err = unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, false, classifyOpenError(err)
	}
	return &Device{fd: fd, path: path, direct: false}, false, nil
}

func classifyOpenError(err error) error {
	switch err {
	case unix.ENOENT:
		return scanerr.New(scanerr.DeviceNotFound, err.Error())
	case unix.EACCES, unix.EPERM:
		return scanerr.New(scanerr.DevicePermissionDenied, err.Error())
	default:
		return scanerr.New(scanerr.DeviceOpenFailed, err.Error())
	}
}

// Direct reports whether the device is open in O_DIRECT mode.
func (d *Device) Direct() bool { return d.direct }

// Geometry re-reads geometry from the open descriptor.
func (d *Device) Geometry() (Geometry, error) {
	return ReadGeometry(d.fd)
}

// Close releases the file descriptor.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}

// AlignedBuffer allocates a buffer of exactly size bytes, whose start
// address is aligned to align (the greater of the logical block size and
// the system page size, as the caller determines).
func AlignedBuffer(size, align int) []byte {
	buf := make([]byte, size+align)
	addr := uintptr(unsafe.Pointer(&buf[0]))
	pad := 0
	if m := addr % uintptr(align); m != 0 {
		pad = align - int(m)
	}
	return buf[pad : pad+size : pad+size]
}

// ReadResult is the outcome of one timed read: either a latency in
// milliseconds, or an I/O error.
type ReadResult struct {
	LatencyMs int
	Err       error
}

// TimedRead seeks to the byte offset (unless skipSeek is set, which the
// caller does when the device is already positioned there) and issues one
// timed read of exactly len(buf) bytes, returning the elapsed time in
// milliseconds.
func (d *Device) TimedRead(offset int64, buf []byte, skipSeek bool) ReadResult {
	if !skipSeek {
		if _, err := unix.Seek(d.fd, offset, unix.SEEK_SET); err != nil {
			return ReadResult{Err: err}
		}
	}

	t0 := time.Now()
	n, err := unix.Read(d.fd, buf)
	elapsed := time.Since(t0)

	if err != nil {
		return ReadResult{Err: err}
	}
	if n != len(buf) {
		return ReadResult{Err: unix.EIO}
	}
	return ReadResult{LatencyMs: int(elapsed.Milliseconds())}
}
