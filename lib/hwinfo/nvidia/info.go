// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package nvidia enumerates NVIDIA GPUs driven by the proprietary nvidia
// or the open-source nouveau kernel driver. Everything comes from sysfs
// (/sys/class/drm/card*) and, for the proprietary driver, from
// /proc/driver/nvidia/gpus/. Runtime telemetry is not read here; the
// sampler gets it from the device tool.
package nvidia

import (
	"os"
	"path/filepath"

	"github.com/bureau-foundation/gpusampler/lib/hwinfo"
)

// Prober implements hwinfo.Prober for NVIDIA cards.
type Prober struct {
	// sysRoot and procRoot are "/sys" and "/proc" in production and
	// synthetic trees in tests.
	sysRoot  string
	procRoot string
}

var _ hwinfo.Prober = (*Prober)(nil)

// NewProber creates a Prober that reads the real /sys and /proc.
func NewProber() *Prober {
	return &Prober{sysRoot: "/sys", procRoot: "/proc"}
}

func newProberFrom(sysRoot, procRoot string) *Prober {
	return &Prober{sysRoot: sysRoot, procRoot: procRoot}
}

// Enumerate returns every card bound to nvidia or nouveau, in DRM name
// order. Returns nil when there are none.
func (p *Prober) Enumerate() []hwinfo.Card {
	drmBase := filepath.Join(p.sysRoot, "class/drm")
	entries, err := os.ReadDir(drmBase)
	if err != nil {
		return nil
	}

	var cards []hwinfo.Card
	for _, entry := range entries {
		name := entry.Name()
		if !hwinfo.IsCardDevice(name) {
			continue
		}

		devicePath := filepath.Join(drmBase, name, "device")
		driver := hwinfo.ReadDriverName(devicePath)
		if driver != "nvidia" && driver != "nouveau" {
			continue
		}

		card := readCard(name, devicePath, driver)
		if driver == "nvidia" && card.Slot != "" {
			p.enrichFromProc(&card)
		}
		cards = append(cards, card)
	}
	return cards
}

func readCard(name, devicePath, driver string) hwinfo.Card {
	card := hwinfo.Card{Name: name, Driver: driver}
	card.Vendor, card.DeviceID, card.Slot = hwinfo.ParsePCIUevent(devicePath)
	card.LinkWidth = hwinfo.ReadSysfsInt(filepath.Join(devicePath, "current_link_width"))
	card.ThermalCritical, card.ThermalEmergency = hwinfo.ReadThermalLimits(devicePath)
	return card
}

// enrichFromProc fills model, UUID, and VBIOS from the proprietary
// driver's information file:
//
//	Model:           NVIDIA GeForce RTX 4090
//	GPU UUID:        GPU-xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
//	Video BIOS:      95.02.3c.80.b8
func (p *Prober) enrichFromProc(card *hwinfo.Card) {
	values := hwinfo.ReadKeyValues(filepath.Join(p.procRoot, "driver/nvidia/gpus", card.Slot, "information"), ":")
	card.Model = values["Model"]
	card.UUID = values["GPU UUID"]
	card.VBIOS = values["Video BIOS"]
}
