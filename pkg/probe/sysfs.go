// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/stratastor/diskscan/pkg/scanerr"
)

// resolveMainDevice stats path for its (major, minor) device numbers, then
// follows /sys/dev/block/<M>:<m> to find the whole-disk name that owns it
// — the parent namespace for a partition input, or the name itself for a
// partitionless one.
func resolveMainDevice(path string) (name string, major, minor uint32, err error) {
	var st syscall.Stat_t
	if err := syscall.Stat(path, &st); err != nil {
		if os.IsNotExist(err) {
			return "", 0, 0, scanerr.New(scanerr.ProbeNotFound, path)
		}
		if os.IsPermission(err) {
			return "", 0, 0, scanerr.New(scanerr.ProbePermissionDenied, path)
		}
		return "", 0, 0, scanerr.New(scanerr.ProbeSysfsReadFailed, err.Error())
	}
	if st.Mode&syscall.S_IFMT != syscall.S_IFBLK {
		return "", 0, 0, scanerr.New(scanerr.ProbeNotABlockDevice, path)
	}

	major = uint32((st.Rdev >> 8) & 0xfff)
	minor = uint32((st.Rdev & 0xff) | ((st.Rdev >> 12) & 0xfff00))

	sysNode := fmt.Sprintf("/sys/dev/block/%d:%d", major, minor)
	target, err := os.Readlink(sysNode)
	if err != nil {
		return "", major, minor, scanerr.New(scanerr.ProbeMainDeviceResolutionFailed, err.Error())
	}

	// target looks like ../../devices/.../block/sda/sda1 (partition) or
	// ../../devices/.../block/sda (whole disk). Walk the path components
	// from the leaf up toward the sysfs "block" segment, checking each
	// against /sys/block for a whole-disk entry with the same name.
	clean := filepath.Clean(filepath.Join(filepath.Dir(sysNode), target))
	parts := strings.Split(clean, string(filepath.Separator))

	blockIdx := -1
	for i, p := range parts {
		if p == "block" {
			blockIdx = i
			break
		}
	}
	if blockIdx == -1 || blockIdx+1 >= len(parts) {
		return "", major, minor, scanerr.New(scanerr.ProbeMainDeviceResolutionFailed, "no block/ segment in "+clean)
	}

	for i := len(parts) - 1; i > blockIdx; i-- {
		candidate := parts[i]
		if _, err := os.Lstat(filepath.Join("/sys/block", candidate)); err == nil {
			return candidate, major, minor, nil
		}
	}
	return "", major, minor, scanerr.New(scanerr.ProbeMainDeviceResolutionFailed, "no whole-disk entry found for "+clean)
}

// sysfsGeometry is what §4.1's step 1 (sysfs geometry) fills.
type sysfsGeometry struct {
	totalSectors512   uint64
	logicalBlockSize  int
	physicalBlockSize int
	optimalIOSize     int
	rotational        *bool

	model, vendor, serial, rev string
}

func readSysfsGeometry(mainName string) sysfsGeometry {
	root := filepath.Join("/sys/block", mainName)
	g := sysfsGeometry{}

	if v, ok := readUintFile(filepath.Join(root, "size")); ok {
		g.totalSectors512 = v
	}
	if v, ok := readIntFile(filepath.Join(root, "queue", "logical_block_size")); ok {
		g.logicalBlockSize = v
	}
	if v, ok := readIntFile(filepath.Join(root, "queue", "physical_block_size")); ok {
		g.physicalBlockSize = v
	}
	if v, ok := readIntFile(filepath.Join(root, "queue", "optimal_io_size")); ok {
		g.optimalIOSize = v
	}
	if v, ok := readIntFile(filepath.Join(root, "queue", "rotational")); ok {
		b := v != 0
		g.rotational = &b
	}

	g.model = readStringFile(filepath.Join(root, "device", "model"))
	g.vendor = readStringFile(filepath.Join(root, "device", "vendor"))
	g.serial = readStringFile(filepath.Join(root, "device", "serial"))
	g.rev = readStringFile(filepath.Join(root, "device", "rev"))

	// NVMe exposes identity under /sys/class/nvme instead of
	// device/{model,vendor,serial,rev}.
	if g.model == "" {
		ctrl := mainName
		if i := strings.LastIndex(mainName, "n"); i > 0 {
			ctrl = mainName[:i] // "nvme0n1" -> "nvme0"
		}
		nvmeRoot := filepath.Join("/sys/class/nvme", ctrl)
		if g.model == "" {
			g.model = readStringFile(filepath.Join(nvmeRoot, "model"))
		}
		if g.serial == "" {
			g.serial = readStringFile(filepath.Join(nvmeRoot, "serial"))
		}
		if g.rev == "" {
			g.rev = readStringFile(filepath.Join(nvmeRoot, "firmware_rev"))
		}
	}

	return g
}

func readUintFile(path string) (uint64, bool) {
	s := readStringFile(path)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func readIntFile(path string) (int, bool) {
	s := readStringFile(path)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

func readStringFile(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
