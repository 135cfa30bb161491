// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Coder is implemented by errors that carry their own exit code.
type Coder interface {
	ExitCode() int
}

// Silent is implemented by errors whose message has already been
// reported by the command that returned them.
type Silent interface {
	Silent() bool
}

// ExitCode returns 0 for nil, the code of the first Coder in err's
// chain, or 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder Coder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// Report writes "error: err" to w unless err is nil or silent.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	var silent Silent
	if errors.As(err, &silent) && silent.Silent() {
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

// Exit reports err to stderr and exits with its code. It returns only
// when err is nil.
func Exit(err error) {
	if err == nil {
		return
	}
	Report(os.Stderr, err)
	os.Exit(ExitCode(err))
}
