// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package smi

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Device is one entry of the tool's device listing.
type Device struct {
	Index int
	Name  string
	UUID  string
}

// deviceLine matches "GPU 0: NVIDIA A100-SXM4-40GB (UUID: GPU-...)".
var deviceLine = regexp.MustCompile(`^GPU\s+(\d+):\s*(.*?)\s*(?:\(UUID:\s*([^)]+)\))?\s*$`)

// ParseDeviceList parses the output of "<tool> -L". Lines that are not
// device entries (MIG sub-devices, warnings) are skipped.
func ParseDeviceList(output []byte) []Device {
	var devices []Device
	for _, line := range strings.Split(string(output), "\n") {
		match := deviceLine.FindStringSubmatch(strings.TrimSpace(line))
		if match == nil {
			continue
		}
		index, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		devices = append(devices, Device{
			Index: index,
			Name:  match[2],
			UUID:  strings.TrimSpace(match[3]),
		})
	}
	return devices
}

// Discover lists the devices the tool can see.
func Discover(ctx context.Context, invoker Invoker, tool string) ([]Device, error) {
	output, err := invoker.Run(ctx, ListCommand(tool))
	if err != nil {
		return nil, err
	}
	return ParseDeviceList(output), nil
}
