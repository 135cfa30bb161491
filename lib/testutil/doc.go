// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the sampler's
// packages.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests never hang when a goroutine misbehaves. They are the
// only place tests wait on the real clock; everything else in the loop
// runs on clock.Fake.
//
// [WriteScript] installs a small shell script that stands in for the
// device tool, so invoker and end-to-end tests can exercise real
// subprocess handling without the hardware.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
