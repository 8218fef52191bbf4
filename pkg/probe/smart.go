// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"strconv"
	"strings"

	"github.com/stratastor/diskscan/pkg/device"
)

// smartFacts is what §4.1 step 3 (SMART output) fills.
type smartFacts struct {
	rotationRPM          int
	serial, model, fw     string
	nominalCapacityStr    string
	bus                   device.Bus
}

// parseSmartOutput parses `Key: Value` lines from a SMART-all command,
// extracting the handful of fields §4.1 names. Bracketed capacity
// strings ("500,107,862,016 bytes [500 GB]") are reduced to their
// bracket content without the brackets.
func parseSmartOutput(output string) smartFacts {
	f := smartFacts{}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])

		switch key {
		case "Rotation Rate":
			// "7200 rpm" or "Solid State Device"
			fields := strings.Fields(val)
			if len(fields) > 0 {
				if rpm, err := strconv.Atoi(fields[0]); err == nil {
					f.rotationRPM = rpm
				}
			}
		case "Serial Number", "Serial number":
			f.serial = val
		case "Model Family", "Device Model", "Model Number":
			if f.model == "" {
				f.model = val
			}
		case "Firmware Version":
			f.fw = val
		case "User Capacity", "Total NVM Capacity", "Namespace 1 Size/Capacity":
			if cap := bracketContent(val); cap != "" {
				f.nominalCapacityStr = cap
			}
		case "SATA Version is", "ATA Version is":
			f.bus = device.BusAta
		}
	}

	return f
}

// bracketContent extracts the text inside the first [...] pair,
// verbatim, without the brackets.
func bracketContent(s string) string {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start:], ']')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+end]
}
