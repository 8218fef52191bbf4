// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package device defines the normalized device descriptor the rest of the
// scanner is built around: geometry, class, bus, and the identifying
// strings fused from sysfs, udev, SMART, and NVMe identify data.
package device

import "fmt"

// Class is the device's inferred storage class.
type Class string

const (
	ClassUnknown   Class = "Unknown"
	ClassHDD       Class = "HDD"
	ClassSataSsd   Class = "SataSsd"
	ClassNvmeSsd   Class = "NvmeSsd"
	ClassUsb       Class = "UsbStorage"
	ClassUnknownSsd Class = "UnknownSsd"
)

// Bus is the transport the device is attached through.
type Bus string

const (
	BusUnknown Bus = "Unknown"
	BusAta     Bus = "Ata"
	BusSata    Bus = "Sata"
	BusPata    Bus = "Pata"
	BusScsi    Bus = "Scsi"
	BusUsb     Bus = "Usb"
	BusNvme    Bus = "Nvme"
	BusMmc     Bus = "Mmc"
	BusVirtio  Bus = "Virtio"
)

// Tristate models a fact that may be unknown rather than merely false.
type Tristate string

const (
	Yes     Tristate = "Yes"
	No      Tristate = "No"
	Unknown Tristate = "Unknown"
)

// Completeness grades how much of a Descriptor's fields were populated
// during probing.
type Completeness string

const (
	CompletenessFull    Completeness = "Full"
	CompletenessPartial Completeness = "Partial"
	CompletenessMinimal Completeness = "Minimal"
)

// Descriptor is the normalized, read-only-after-probing set of device
// facts the rest of the scanner consumes. One Descriptor is built per
// scan and never mutated afterward.
type Descriptor struct {
	DevicePath string `json:"device_path"`
	MainName   string `json:"main_name"`

	Class        Class    `json:"class"`
	Bus          Bus      `json:"bus"`
	IsRotational Tristate `json:"is_rotational"`
	RotationRPM  int      `json:"rotation_rpm"`

	LogicalBlockSize  int `json:"logical_block_size"`
	PhysicalBlockSize int `json:"physical_block_size"`
	OptimalIOSize     int `json:"optimal_io_size"`

	TotalSectors512 uint64 `json:"total_sectors_512"`
	CapacityBytes   uint64 `json:"capacity_bytes"`

	Model    string `json:"model"`
	Vendor   string `json:"vendor"`
	Serial   string `json:"serial"`
	Firmware string `json:"firmware"`

	NominalCapacityStr string `json:"nominal_capacity_str,omitempty"`

	Completeness Completeness `json:"completeness"`
}

// LogicalSectors derives the logical-block-count view of capacity. It is
// always derived from CapacityBytes, never stored or computed separately,
// per the 512-normalized capacity contract.
func (d *Descriptor) LogicalSectors() uint64 {
	if d.LogicalBlockSize == 0 {
		return 0
	}
	return d.CapacityBytes / uint64(d.LogicalBlockSize)
}

// Validate checks the structural invariants a Descriptor must hold
// regardless of how it was assembled.
func (d *Descriptor) Validate() error {
	if d.PhysicalBlockSize < d.LogicalBlockSize {
		return fmt.Errorf("physical block size %d smaller than logical block size %d", d.PhysicalBlockSize, d.LogicalBlockSize)
	}
	if !isPowerOfTwo(d.LogicalBlockSize) {
		return fmt.Errorf("logical block size %d is not a power of two", d.LogicalBlockSize)
	}
	if !isPowerOfTwo(d.PhysicalBlockSize) {
		return fmt.Errorf("physical block size %d is not a power of two", d.PhysicalBlockSize)
	}
	if d.TotalSectors512*512 != d.CapacityBytes {
		return fmt.Errorf("total_sectors_512 (%d) * 512 != capacity_bytes (%d)", d.TotalSectors512, d.CapacityBytes)
	}
	switch d.Class {
	case ClassNvmeSsd, ClassSataSsd, ClassUnknownSsd:
		if d.RotationRPM != 0 {
			return fmt.Errorf("class %s must have rotation_rpm=0, got %d", d.Class, d.RotationRPM)
		}
		if d.IsRotational == Yes {
			return fmt.Errorf("class %s must not be rotational", d.Class)
		}
	case ClassHDD:
		if d.IsRotational != Yes {
			return fmt.Errorf("class HDD must be rotational, is_rotational=%s", d.IsRotational)
		}
	}
	return nil
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
