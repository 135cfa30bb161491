// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config holds the sampler's configuration: which tool to run,
// which metrics to query, where to write the log, and how often.
//
// [Default] returns the built-in settings, which match running the
// sampler with no arguments. [LoadFile] merges a YAML or JSONC file
// over those defaults; the format is chosen by extension (".json" and
// ".jsonc" are JSONC, everything else is YAML). Path fields expand
// ${VAR} and ${VAR:-default}. No environment variable overrides a
// value on its own.
//
// Command-line flags are applied by the caller after loading. Once
// [Config.Validate] succeeds the Config is treated as immutable and
// passed by value.
//
// Key exports:
//
//   - [Config] -- the settings struct
//   - [Default] and [LoadFile] -- construction
//   - [ConfigurationError] -- one invalid field, joined by Validate
package config
