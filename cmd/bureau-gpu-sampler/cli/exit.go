// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"strings"
)

// Non-zero exit codes used by bureau-gpu-sampler. Success and a clean
// interrupt exit 0.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitError signals a non-zero exit code without printing an extra
// error message. The command has already written its own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Silent reports that the command already wrote its own output.
func (e *ExitError) Silent() bool { return true }

// UsageError is an invalid flag, argument, or configuration value.
// It is detected before any work starts and exits with ExitUsage.
type UsageError struct {
	Err     error
	Command string

	// Usage is the command's synopsis, one line per form.
	Usage []string
}

func (e *UsageError) Error() string {
	var message strings.Builder
	fmt.Fprintf(&message, "%v\n", e.Err)
	if len(e.Usage) > 0 {
		message.WriteString("\nUsage:\n")
		for _, line := range e.Usage {
			fmt.Fprintf(&message, "  %s\n", line)
		}
	}
	fmt.Fprintf(&message, "\nRun '%s --help' for details.", e.Command)
	return message.String()
}

func (e *UsageError) Unwrap() error { return e.Err }

// ExitCode returns ExitUsage.
func (e *UsageError) ExitCode() int { return ExitUsage }
