// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package probe

// pciVendors maps PCI vendor IDs (as printed by `nvme id-ctrl`'s "vid"
// field, hex with a leading 0x) to a human-readable vendor name. The
// table is a fixed snapshot of the storage-vendor IDs the original
// collector recognized.
var pciVendors = map[uint16]string{
	0x8086: "Intel",
	0x144d: "Samsung",
	0x15b7: "SanDisk",
	0x1179: "Toshiba",
	0x1c5c: "SK Hynix",
	0x1987: "Phison",
	0x126f: "Silicon Motion",
	0x1cc1: "ADATA",
	0x1344: "Micron",
	0xc0a9: "Crucial",
	0x1e0f: "KIOXIA",
	0x1bb1: "Seagate",
	0x1c58: "HGST",
	0x1b96: "Western Digital",
	0x1f40: "Netac",
	0x1d97: "Shenzhen Longsys",
	0x1e49: "Yangtze Memory",
	0x1e95: "Solid State Storage",
	0x1f03: "Corsair",
	0x1b4b: "Marvell",
	0x14a4: "Lite-On",
	0x1636: "Elex",
	0x1e3d: "Fungible",
	0x1dee: "Biwin Storage",
}

// lookupVendor resolves a PCI vendor ID to a name, returning "" when the
// ID is not in the table.
func lookupVendor(vid uint16) string {
	return pciVendors[vid]
}
