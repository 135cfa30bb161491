// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bureau-gpu-sampler samples GPU telemetry from nvidia-smi at a fixed
// period and appends it to a CSV log, optionally printing a live
// summary, mirroring samples into SQLite, and exporting Prometheus
// metrics.
//
// Exit status is 0 after an interrupt (SIGINT or SIGTERM), 1 when the
// device tool fails or its output cannot be parsed, and 2 when a flag
// or configuration value is invalid. Nothing is written in the last
// case.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/bureau-foundation/gpusampler/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCommand(newEnvironment(ctx)).Execute(os.Args[1:])
	stop()
	process.Exit(err)
}

// environment is what commands need from the process: a context
// cancelled on interrupt and the standard streams.
type environment struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer

	// stdoutTerminal and stderrTerminal select colour and log format.
	stdoutTerminal bool
	stderrTerminal bool

	// width is the terminal width of stdout, 0 when unknown.
	width int

	getenv func(string) string
}

func newEnvironment(ctx context.Context) *environment {
	env := &environment{
		ctx:            ctx,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		stdoutTerminal: term.IsTerminal(int(os.Stdout.Fd())),
		stderrTerminal: term.IsTerminal(int(os.Stderr.Fd())),
		getenv:         os.Getenv,
	}
	if env.stdoutTerminal {
		if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			env.width = width
		}
	}
	return env
}

// color reports whether live output may use ANSI styling.
func (e *environment) color() bool {
	return e.stdoutTerminal && e.getenv("NO_COLOR") == ""
}
