// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package smi

import (
	"fmt"
	"strings"
)

// ExternalToolError reports that the device tool could not be started
// or exited with a non-zero status. Output holds whatever the tool
// printed on stdout and stderr combined.
type ExternalToolError struct {
	Command  Command
	ExitCode int // -1 when the process never started
	Output   []byte
	Err      error
}

func (e *ExternalToolError) Error() string {
	var b strings.Builder
	if e.ExitCode < 0 {
		fmt.Fprintf(&b, "running %s: %v", e.Command, e.Err)
	} else {
		fmt.Fprintf(&b, "%s exited with status %d", e.Command, e.ExitCode)
	}
	if output := strings.TrimSpace(string(e.Output)); output != "" {
		fmt.Fprintf(&b, ": %s", output)
	}
	return b.String()
}

func (e *ExternalToolError) Unwrap() error { return e.Err }

// MalformedCaptureError reports a capture that does not fit the
// catalog. Line is 1-based; the header is line 1. Metric is empty when
// the problem is not tied to one column.
type MalformedCaptureError struct {
	Line   int
	Metric string
	Reason string
}

func (e *MalformedCaptureError) Error() string {
	switch {
	case e.Line == 0:
		return "malformed capture: " + e.Reason
	case e.Metric == "":
		return fmt.Sprintf("malformed capture: line %d: %s", e.Line, e.Reason)
	default:
		return fmt.Sprintf("malformed capture: line %d: %s: %s", e.Line, e.Metric, e.Reason)
	}
}
