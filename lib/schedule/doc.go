// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package schedule drives the sample-then-emit loop at a fixed period.
//
// Each cycle records its start on the injected clock, samples, stamps
// the batch with whole seconds since the loop began, and emits it. The
// time left in the period is then slept off in one wait, which is the
// only place the loop suspends. A cycle whose work exceeds the period
// is an overrun: the loop logs how far it overshot and starts the next
// cycle immediately instead of sleeping, so delay never compounds
// silently.
//
// Cancellation is cooperative. The loop checks its context between
// cycles and while sleeping; a cycle that has started sampling runs to
// completion and its batch is emitted.
package schedule
