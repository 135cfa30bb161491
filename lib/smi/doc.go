// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package smi turns the CSV text printed by nvidia-smi style device
// tools into typed samples.
//
// A run fixes a [Catalog]: the ordered metric identifiers passed to the
// tool as --query-gpu and written as the output log header. Each
// invocation yields a raw capture whose first line is a header such as
//
//	index, utilization.gpu [%], power.draw [W], pstate
//
// followed by one line per device. The [Parser] classifies every cell
// into a [Field]:
//
//   - Unavailable when the cell is a sentinel such as "N/A" or
//     "[Not Supported]", compared without regard to case or padding.
//   - Numeric when the header column carries a bracketed unit. Every
//     character that is not a digit or '.' is stripped before parsing,
//     so "120.50 W" becomes 120.50.
//   - Categorical otherwise, with surrounding whitespace trimmed.
//
// The classification of a cell depends only on the cell text and its
// header column, never on previous captures.
//
// [ExecInvoker] runs the tool as a subprocess and [Sampler] combines the
// two. Failures surface as [*ExternalToolError] (the tool could not run
// or exited non-zero) and [*MalformedCaptureError] (the output does not
// match the catalog).
package smi
