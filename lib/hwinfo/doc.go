// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hwinfo reads a static GPU inventory from sysfs so the sampler
// can cross-check what the device tool reports against what the kernel
// sees.
//
// The inventory is advisory. A card the kernel knows about but the tool
// does not list (or the reverse) is logged as a warning by the discover
// step; it never stops sampling.
//
// Shared sysfs/DRM helpers live in drm.go: card device filtering, PCI
// uevent parsing, driver identification, and thermal limit reading.
// Vendor subpackages implement [Prober]; hwinfo/nvidia covers the
// proprietary nvidia and open-source nouveau drivers.
package hwinfo
