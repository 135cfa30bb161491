// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the entrypoint helpers for bureau-gpu-sampler:
// reporting a fatal error to stderr before or after the structured
// logger exists, and mapping an error to the process exit code.
package process
