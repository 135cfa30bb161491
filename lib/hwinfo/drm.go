// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// IsCardDevice reports whether name is a DRM card (card0, card1, ...)
// rather than a connector (card0-DP-1) or render node (renderD128).
func IsCardDevice(name string) bool {
	suffix, ok := strings.CutPrefix(name, "card")
	if !ok || suffix == "" {
		return false
	}
	for _, character := range suffix {
		if character < '0' || character > '9' {
			return false
		}
	}
	return true
}

// ReadDriverName returns the basename of the device's "driver"
// symlink, or "" when it has none.
func ReadDriverName(devicePath string) string {
	link, err := os.Readlink(filepath.Join(devicePath, "driver"))
	if err != nil {
		return ""
	}
	return filepath.Base(link)
}

// ReadKeyValues parses a file of "key<separator>value" lines. Keys and
// values are trimmed; lines without the separator are skipped. A
// missing file returns nil.
func ReadKeyValues(path, separator string) map[string]string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	values := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		key, value, found := strings.Cut(line, separator)
		if !found {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return values
}

// ParsePCIUevent returns vendor name, device ID, and PCI slot from the
// device's uevent file:
//
//	PCI_ID=10DE:2684
//	PCI_SLOT_NAME=0000:01:00.0
func ParsePCIUevent(devicePath string) (vendor, deviceID, slot string) {
	values := ReadKeyValues(filepath.Join(devicePath, "uevent"), "=")
	if values == nil {
		return "", "", ""
	}

	// vendor:device, uppercase hex.
	if vendorID, rawDeviceID, found := strings.Cut(values["PCI_ID"], ":"); found {
		vendor = PCIVendorName(strings.ToLower(vendorID))
		deviceID = "0x" + strings.ToLower(rawDeviceID)
	}
	return vendor, deviceID, values["PCI_SLOT_NAME"]
}

// PCIVendorName maps a lowercase PCI vendor ID to a readable name.
func PCIVendorName(vendorID string) string {
	switch vendorID {
	case "10de":
		return "NVIDIA"
	case "1002":
		return "AMD"
	case "8086":
		return "Intel"
	case "":
		return ""
	default:
		return fmt.Sprintf("0x%s", vendorID)
	}
}

// ReadThermalLimits returns temp1_crit and temp1_emergency from the
// first hwmon directory that has either, in millidegrees Celsius.
// nouveau exposes these; the proprietary driver usually does not.
func ReadThermalLimits(devicePath string) (critical, emergency int) {
	hwmonBase := filepath.Join(devicePath, "hwmon")
	entries, err := os.ReadDir(hwmonBase)
	if err != nil {
		return 0, 0
	}

	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "hwmon") {
			continue
		}
		hwmonDir := filepath.Join(hwmonBase, entry.Name())
		critical = ReadSysfsInt(filepath.Join(hwmonDir, "temp1_crit"))
		emergency = ReadSysfsInt(filepath.Join(hwmonDir, "temp1_emergency"))
		if critical != 0 || emergency != 0 {
			return critical, emergency
		}
	}
	return 0, 0
}

// ReadSysfsInt reads an integer from a sysfs file. Returns 0 on error.
func ReadSysfsInt(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	result, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return result
}
