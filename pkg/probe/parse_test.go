// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stratastor/diskscan/pkg/device"
)

func TestParseUdevPropertiesPrefersAtaSataFlag(t *testing.T) {
	out := "ID_ATA_SATA=1\nID_MODEL=Samsung_SSD_870\nID_SERIAL_SHORT=S6B2NJ0R123456\nID_REVISION=2B6Q\nID_VENDOR=ATA\n"
	p := parseUdevProperties(out)

	assert.Equal(t, device.BusSata, p.bus)
	assert.Equal(t, "Samsung_SSD_870", p.model)
	assert.Equal(t, "S6B2NJ0R123456", p.serial)
	assert.Equal(t, "2B6Q", p.revision)
}

func TestParseUdevPropertiesFallsBackToIdBus(t *testing.T) {
	out := "ID_BUS=usb\nID_MODEL=Generic_Flash_Disk\n"
	p := parseUdevProperties(out)
	assert.Equal(t, device.BusUsb, p.bus)
}

func TestParseUdevPropertiesFallsBackToDevpath(t *testing.T) {
	out := "DEVPATH=/devices/pci0000:00/0000:00:1d.0/nvme/nvme0/nvme0n1\n"
	p := parseUdevProperties(out)
	assert.Equal(t, device.BusNvme, p.bus)
}

func TestParseUdevPropertiesSerialShortOverridesSerial(t *testing.T) {
	out := "ID_SERIAL=ATA_Samsung_SSD_870_S6B2NJ0R123456\nID_SERIAL_SHORT=S6B2NJ0R123456\n"
	p := parseUdevProperties(out)
	assert.Equal(t, "S6B2NJ0R123456", p.serial)
}

func TestParseSmartOutputExtractsCoreFields(t *testing.T) {
	out := "Model Family:     Samsung SSD 870 EVO\n" +
		"Device Model:     Samsung SSD 870 EVO 1TB\n" +
		"Serial Number:    S6B2NJ0R123456\n" +
		"Firmware Version: SVT02B6Q\n" +
		"Rotation Rate:    Solid State Device\n" +
		"User Capacity:    1,000,204,886,016 bytes [1.00 TB]\n" +
		"SATA Version is:  SATA 3.3, 6.0 Gb/s\n"
	f := parseSmartOutput(out)

	assert.Equal(t, "Samsung SSD 870 EVO", f.model)
	assert.Equal(t, "S6B2NJ0R123456", f.serial)
	assert.Equal(t, "SVT02B6Q", f.fw)
	assert.Equal(t, 0, f.rotationRPM)
	assert.Equal(t, "1.00 TB", f.nominalCapacityStr)
	assert.Equal(t, device.BusAta, f.bus)
}

func TestParseSmartOutputParsesRotationalRPM(t *testing.T) {
	out := "Rotation Rate:    7200 rpm\n"
	f := parseSmartOutput(out)
	assert.Equal(t, 7200, f.rotationRPM)
}

func TestBracketContentExtractsInnerText(t *testing.T) {
	assert.Equal(t, "500 GB", bracketContent("500,107,862,016 bytes [500 GB]"))
	assert.Equal(t, "", bracketContent("no brackets here"))
}

func TestParseNvmeIdentifyExtractsFields(t *testing.T) {
	out := "mn      : Samsung SSD 980 PRO 1TB\n" +
		"sn      : S6B2NJ0R123456\n" +
		"fr      : 5B2QGXA7\n" +
		"vid     : 0x144d\n" +
		"nsze    : 1953525168\n" +
		"lbaf  0 : ms:0   lbads:9  rp:0 (in use)\n"
	f := parseNvmeIdentify(out)

	assert.Equal(t, "Samsung SSD 980 PRO 1TB", f.model)
	assert.Equal(t, "S6B2NJ0R123456", f.serial)
	assert.Equal(t, "5B2QGXA7", f.fw)
	assert.Equal(t, "Samsung", f.vendor)
	assert.Equal(t, 512, f.logicalBlockSize)
	assert.Equal(t, uint64(1953525168*512), f.capacityBytes)
}

func TestParseHexOrDecHandlesBothForms(t *testing.T) {
	v, ok := parseHexOrDec("0x144d")
	assert.True(t, ok)
	assert.Equal(t, uint64(0x144d), v)

	v, ok = parseHexOrDec("5197")
	assert.True(t, ok)
	assert.Equal(t, uint64(5197), v)

	_, ok = parseHexOrDec("not-a-number")
	assert.False(t, ok)
}

func TestLookupVendorKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "Samsung", lookupVendor(0x144d))
	assert.Equal(t, "", lookupVendor(0xffff))
}

func TestClassifyNvmeAlwaysNonRotational(t *testing.T) {
	d := &device.Descriptor{Bus: device.BusNvme, IsRotational: device.Yes}
	classify(d)
	assert.Equal(t, device.ClassNvmeSsd, d.Class)
	assert.Equal(t, device.No, d.IsRotational)
}

func TestClassifySataNonRotationalIsSsd(t *testing.T) {
	d := &device.Descriptor{Bus: device.BusSata, IsRotational: device.No}
	classify(d)
	assert.Equal(t, device.ClassSataSsd, d.Class)
}

func TestClassifyRotationalIsHDD(t *testing.T) {
	d := &device.Descriptor{Bus: device.BusAta, IsRotational: device.Yes}
	classify(d)
	assert.Equal(t, device.ClassHDD, d.Class)
}

func TestClassifyUsbBus(t *testing.T) {
	d := &device.Descriptor{Bus: device.BusUsb, IsRotational: device.Unknown}
	classify(d)
	assert.Equal(t, device.ClassUsb, d.Class)
}

func TestClassifyFallsBackToModelString(t *testing.T) {
	d := &device.Descriptor{Bus: device.BusUnknown, IsRotational: device.Unknown, Model: "Generic HDD Disk"}
	classify(d)
	assert.Equal(t, device.ClassHDD, d.Class)
}

func TestFillDefaultsAppliesLogicalBlockSizeFallback(t *testing.T) {
	d := &device.Descriptor{Class: device.ClassHDD}
	fillDefaults(d)
	assert.Equal(t, 512, d.LogicalBlockSize)
	assert.Equal(t, 512, d.PhysicalBlockSize)
}

func TestFillDefaultsLargeHDDGetsFourKPhysical(t *testing.T) {
	d := &device.Descriptor{Class: device.ClassHDD, LogicalBlockSize: 512, TotalSectors512: 2000000000}
	fillDefaults(d)
	assert.Equal(t, 4096, d.PhysicalBlockSize)
}

func TestFillDefaultsSsdGetsFourKOptimalIO(t *testing.T) {
	d := &device.Descriptor{Class: device.ClassNvmeSsd, LogicalBlockSize: 512, PhysicalBlockSize: 512}
	fillDefaults(d)
	assert.Equal(t, 4096, d.OptimalIOSize)
}

func TestComputeCompletenessFull(t *testing.T) {
	d := &device.Descriptor{
		Model: "x", Vendor: "y", CapacityBytes: 1, TotalSectors512: 1,
		LogicalBlockSize: 512, Class: device.ClassNvmeSsd,
	}
	assert.Equal(t, device.CompletenessFull, computeCompleteness(d))
}

func TestComputeCompletenessMinimal(t *testing.T) {
	d := &device.Descriptor{Class: device.ClassUnknown}
	assert.Equal(t, device.CompletenessMinimal, computeCompleteness(d))
}

func TestComputeCompletenessPartial(t *testing.T) {
	d := &device.Descriptor{
		CapacityBytes: 1, TotalSectors512: 1, LogicalBlockSize: 512,
		Class: device.ClassUnknown,
	}
	assert.Equal(t, device.CompletenessPartial, computeCompleteness(d))
}
