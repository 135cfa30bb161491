// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sink writes sample batches out of the loop.
//
// [CSVLog] is the durable record: a header line naming the catalog,
// then one "<stamp>,<v1>,...,<vn>" line per entity per cycle. Every
// Write is flushed through any compressor and fsynced before it
// returns, so a crash or interrupt loses at most the cycle in flight
// and never leaves a torn line behind an acknowledged one.
//
// [LiveRenderer] prints a condensed per-device summary for a human
// watching the terminal. Its rounding applies to the display only.
//
// [Fanout] sends each batch to the log first and then to any secondary
// writers. Only a failure of the log stops the loop.
package sink
