// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package probe implements DeviceProber: the multi-source aggregation
// pipeline that fuses sysfs, udev, SMART, and NVMe identify data into a
// single device.Descriptor.
package probe

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/stratastor/logger"

	"github.com/stratastor/diskscan/internal/sysexec"
	"github.com/stratastor/diskscan/pkg/device"
	"github.com/stratastor/diskscan/pkg/scanerr"
)

// ToolChecker is the narrow view of internal/config's tool-discovery type
// that Prober depends on, so tests can supply a fake without wiring the
// whole ambient config stack.
type ToolChecker interface {
	IsAvailable(tool string) bool
	GetPath(tool string) (string, error)
	GetArgs(tool string) []string
}

// Prober implements DeviceProber.
type Prober struct {
	logger      logger.Logger
	executor    *sysexec.Executor
	toolChecker ToolChecker
}

// New builds a Prober.
func New(l logger.Logger, executor *sysexec.Executor, toolChecker ToolChecker) *Prober {
	return &Prober{logger: l, executor: executor, toolChecker: toolChecker}
}

// Probe produces a device.Descriptor for path, fusing sysfs, udev, SMART,
// and NVMe identify information in that order. Only NotABlockDevice,
// NotFound, and PermissionDenied are hard errors, plus a path that cannot
// be stat'ed for another reason; every other source failing (including
// whole-disk name resolution) soft-degrades completeness.
func (p *Prober) Probe(ctx context.Context, path string) (*device.Descriptor, error) {
	mainName, _, _, err := resolveMainDevice(path)
	if err != nil {
		if code, _ := scanerr.GetCode(err); code != scanerr.ProbeMainDeviceResolutionFailed {
			return nil, err
		}
		p.logWarn("whole-disk resolution failed, using the path's base name: " + err.Error())
		mainName = filepath.Base(path)
	}

	d := &device.Descriptor{
		DevicePath: path,
		MainName:   mainName,
		Bus:        device.BusUnknown,
		Class:      device.ClassUnknown,
	}

	sys := readSysfsGeometry(mainName)
	d.TotalSectors512 = sys.totalSectors512
	d.LogicalBlockSize = sys.logicalBlockSize
	d.PhysicalBlockSize = sys.physicalBlockSize
	d.OptimalIOSize = sys.optimalIOSize
	if sys.rotational != nil {
		if *sys.rotational {
			d.IsRotational = device.Yes
		} else {
			d.IsRotational = device.No
		}
	} else {
		d.IsRotational = device.Unknown
	}
	d.Model = sys.model
	d.Vendor = sys.vendor
	d.Serial = sys.serial
	d.Firmware = sys.rev

	if p.toolChecker != nil && p.toolChecker.IsAvailable("udevadm") {
		p.enrichWithUdev(ctx, d, path)
	} else {
		p.logWarn("udevadm not available, skipping udev enrichment")
	}

	if p.toolChecker != nil && p.toolChecker.IsAvailable("smartctl") {
		p.enrichWithSmart(ctx, d, path)
	} else {
		p.logWarn("smartctl not available, skipping SMART enrichment")
	}

	if d.Bus == device.BusNvme && p.toolChecker != nil && p.toolChecker.IsAvailable("nvme") {
		p.enrichWithNvme(ctx, d, path)
	}

	classify(d)
	fillDefaults(d)
	d.CapacityBytes = d.TotalSectors512 * 512
	d.Completeness = computeCompleteness(d)

	return d, nil
}

func (p *Prober) logWarn(msg string) {
	if p.logger != nil {
		p.logger.Warn(msg)
	}
}

func (p *Prober) enrichWithUdev(ctx context.Context, d *device.Descriptor, path string) {
	udevadmPath, err := p.toolChecker.GetPath("udevadm")
	if err != nil {
		p.logWarn("udevadm path unavailable: " + err.Error())
		return
	}
	args := append(append([]string{}, p.toolChecker.GetArgs("udevadm")...), "info", "--query=property", "--name="+path)
	out, err := p.executor.Execute(ctx, udevadmPath, args...)
	if err != nil {
		p.logWarn("udevadm query failed: " + err.Error())
		return
	}

	props := parseUdevProperties(string(out))
	if props.bus != device.BusUnknown {
		d.Bus = props.bus
	}
	if d.Model == "" {
		d.Model = props.model
	}
	if d.Serial == "" {
		d.Serial = props.serial
	}
	if d.Firmware == "" {
		d.Firmware = props.revision
	}
	if d.Vendor == "" {
		d.Vendor = props.vendor
	}
}

func (p *Prober) enrichWithSmart(ctx context.Context, d *device.Descriptor, path string) {
	smartctlPath, err := p.toolChecker.GetPath("smartctl")
	if err != nil {
		p.logWarn("smartctl path unavailable: " + err.Error())
		return
	}
	args := append(append([]string{}, p.toolChecker.GetArgs("smartctl")...), "-a", path)
	out, _ := p.executor.Execute(ctx, smartctlPath, args...)
	// smartctl frequently exits non-zero on drives with pending SMART
	// warnings while still printing useful output; parse regardless.
	facts := parseSmartOutput(string(out))

	if facts.rotationRPM > 0 {
		d.RotationRPM = facts.rotationRPM
	}
	if d.Serial == "" {
		d.Serial = facts.serial
	}
	if d.Model == "" {
		d.Model = facts.model
	}
	if d.Firmware == "" {
		d.Firmware = facts.fw
	}
	if facts.nominalCapacityStr != "" {
		d.NominalCapacityStr = facts.nominalCapacityStr
	}
	if d.Bus == device.BusUnknown && facts.bus != device.BusUnknown {
		d.Bus = facts.bus
	}
}

func (p *Prober) enrichWithNvme(ctx context.Context, d *device.Descriptor, path string) {
	nvmePath, err := p.toolChecker.GetPath("nvme")
	if err != nil {
		return
	}
	extra := p.toolChecker.GetArgs("nvme")
	ctrlArgs := append(append([]string{}, extra...), "id-ctrl", path)
	ctrlOut, err := p.executor.Execute(ctx, nvmePath, ctrlArgs...)
	if err != nil {
		p.logWarn("nvme id-ctrl failed: " + err.Error())
		return
	}
	nsArgs := append(append([]string{}, extra...), "id-ns", path)
	nsOut, _ := p.executor.Execute(ctx, nvmePath, nsArgs...)

	facts := parseNvmeIdentify(string(ctrlOut) + "\n" + string(nsOut))
	if facts.logicalBlockSize > 0 {
		d.LogicalBlockSize = facts.logicalBlockSize
	}
	if facts.capacityBytes > 0 {
		d.TotalSectors512 = facts.capacityBytes / 512
	}
	if d.Model == "" {
		d.Model = facts.model
	}
	if d.Serial == "" {
		d.Serial = facts.serial
	}
	if d.Firmware == "" {
		d.Firmware = facts.fw
	}
	if d.Vendor == "" {
		d.Vendor = facts.vendor
	}
}

// classify applies §4.1's classification rule after fusion completes.
func classify(d *device.Descriptor) {
	switch {
	case d.Bus == device.BusNvme:
		d.Class = device.ClassNvmeSsd
		d.IsRotational = device.No
		return
	case d.Bus == device.BusUsb:
		d.Class = device.ClassUsb
		return
	case d.IsRotational == device.No && (d.Bus == device.BusAta || d.Bus == device.BusSata):
		d.Class = device.ClassSataSsd
		return
	case d.IsRotational == device.No:
		d.Class = device.ClassUnknownSsd
		return
	case d.IsRotational == device.Yes:
		d.Class = device.ClassHDD
		return
	}

	model := strings.ToLower(d.Model)
	switch {
	case strings.Contains(model, "ssd"), strings.Contains(model, "flash"), strings.Contains(model, "nvme"):
		d.Class = device.ClassUnknownSsd
	case strings.Contains(model, "hdd"), strings.Contains(model, "disk"):
		d.Class = device.ClassHDD
	default:
		if d.Bus == device.BusUsb {
			d.Class = device.ClassUsb
		}
	}
}

// fillDefaults fills geometry fields per §4.1's default table when
// sources left them empty.
func fillDefaults(d *device.Descriptor) {
	if d.LogicalBlockSize == 0 {
		d.LogicalBlockSize = 512
	}
	const fiveHundredGB = 500 * 1000 * 1000 * 1000 / 512
	if d.PhysicalBlockSize == 0 {
		if d.Class == device.ClassHDD && d.TotalSectors512 >= fiveHundredGB {
			d.PhysicalBlockSize = 4096
		} else {
			d.PhysicalBlockSize = d.LogicalBlockSize
		}
	}
	if d.OptimalIOSize == 0 {
		switch d.Class {
		case device.ClassSataSsd, device.ClassNvmeSsd, device.ClassUnknownSsd, device.ClassUsb:
			d.OptimalIOSize = 4096
		default:
			d.OptimalIOSize = d.PhysicalBlockSize
		}
	}
}

// computeCompleteness grades how many of the identity/geometry fields
// were populated.
func computeCompleteness(d *device.Descriptor) device.Completeness {
	total := 6
	filled := 0
	if d.Model != "" {
		filled++
	}
	if d.Vendor != "" {
		filled++
	}
	if d.CapacityBytes > 0 {
		filled++
	}
	if d.TotalSectors512 > 0 {
		filled++
	}
	if d.LogicalBlockSize > 0 {
		filled++
	}
	if d.Class != device.ClassUnknown {
		filled++
	}

	ratio := float64(filled) / float64(total)
	switch {
	case ratio >= 0.8:
		return device.CompletenessFull
	case ratio >= 0.5:
		return device.CompletenessPartial
	default:
		return device.CompletenessMinimal
	}
}
