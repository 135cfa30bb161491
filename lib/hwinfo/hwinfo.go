// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hwinfo

import "slices"

// Card is the static description of one GPU as the kernel exposes it.
type Card struct {
	// Name is the DRM device name, e.g. "card0".
	Name string

	Driver   string
	Vendor   string
	DeviceID string
	Slot     string

	// LinkWidth is the current PCIe link width, 0 when unknown.
	LinkWidth int

	// Thermal limits in millidegrees Celsius, 0 when not exposed.
	ThermalCritical  int
	ThermalEmergency int

	// Filled only when the proprietary driver publishes
	// /proc/driver/nvidia/gpus/<slot>/information.
	Model string
	UUID  string
	VBIOS string
}

// Prober enumerates the GPUs handled by one vendor's drivers. It
// returns nil, not an error, when there are none.
type Prober interface {
	Enumerate() []Card
}

// Reconcile compares the UUIDs reported by the device tool with the
// UUIDs found in the inventory. Cards without a UUID are ignored; both
// results are sorted.
func Reconcile(toolUUIDs []string, cards []Card) (missingFromInventory, missingFromTool []string) {
	inventory := make(map[string]bool, len(cards))
	for _, card := range cards {
		if card.UUID != "" {
			inventory[card.UUID] = true
		}
	}
	reported := make(map[string]bool, len(toolUUIDs))
	for _, uuid := range toolUUIDs {
		if uuid == "" {
			continue
		}
		reported[uuid] = true
		if !inventory[uuid] {
			missingFromInventory = append(missingFromInventory, uuid)
		}
	}
	for uuid := range inventory {
		if !reported[uuid] {
			missingFromTool = append(missingFromTool, uuid)
		}
	}
	slices.Sort(missingFromInventory)
	slices.Sort(missingFromTool)
	return missingFromInventory, missingFromTool
}
