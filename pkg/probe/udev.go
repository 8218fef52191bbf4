// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"strings"

	"github.com/stratastor/diskscan/pkg/device"
)

// udevProperties is the parsed KEY=VALUE output of a udev-info query.
type udevProperties struct {
	bus                                device.Bus
	model, serial, revision, vendor    string
	devpath                            string
}

// parseUdevProperties splits udev-info output into KEY=VALUE pairs and
// applies the bus/identity mapping rules from §4.1 step 2.
func parseUdevProperties(output string) udevProperties {
	raw := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			continue
		}
		raw[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}

	p := udevProperties{bus: device.BusUnknown}

	if raw["ID_ATA_SATA"] == "1" {
		p.bus = device.BusSata
	} else if raw["ID_ATA_PATA"] == "1" {
		p.bus = device.BusPata
	} else if busID, ok := raw["ID_BUS"]; ok {
		switch busID {
		case "ata":
			p.bus = device.BusAta
		case "scsi":
			p.bus = device.BusScsi
		case "usb":
			p.bus = device.BusUsb
		case "nvme":
			p.bus = device.BusNvme
		case "mmc":
			p.bus = device.BusMmc
		case "virtio":
			p.bus = device.BusVirtio
		}
	}

	p.devpath = raw["DEVPATH"]
	if p.bus == device.BusUnknown && p.devpath != "" {
		switch {
		case strings.Contains(p.devpath, "/ata"):
			p.bus = device.BusAta
		case strings.Contains(p.devpath, "/usb"):
			p.bus = device.BusUsb
		case strings.Contains(p.devpath, "/nvme"):
			p.bus = device.BusNvme
		case strings.Contains(p.devpath, "/mmc"):
			p.bus = device.BusMmc
		}
	}

	p.model = raw["ID_MODEL"]
	if raw["ID_SERIAL_SHORT"] != "" {
		p.serial = raw["ID_SERIAL_SHORT"]
	} else {
		p.serial = raw["ID_SERIAL"]
	}
	p.revision = raw["ID_REVISION"]
	if raw["ID_VENDOR_FROM_DATABASE"] != "" {
		p.vendor = raw["ID_VENDOR_FROM_DATABASE"]
	} else {
		p.vendor = raw["ID_VENDOR"]
	}

	return p
}
