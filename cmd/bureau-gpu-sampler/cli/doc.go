// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for bureau-gpu-sampler.
//
// The central type is [Command], a named command with optional nested
// [Command.Subcommands], a [pflag.FlagSet] factory, and a Run function.
// [Command.Execute] handles flag parsing, subcommand routing, and help
// output with examples. Flags are usually declared as tagged struct
// fields and bound with [FlagsFromParams].
//
// When a user types an unknown subcommand or flag, the framework
// computes Levenshtein edit distance against all known names and
// suggests the closest match (distance <= 3).
//
// Errors returned from Execute carry their exit status: [UsageError]
// (bad flags or configuration, exit 2) and [ExitError] (an already
// reported outcome, no extra message). Anything else exits 1.
package cli
