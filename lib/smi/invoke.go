// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package smi

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultTool is the device tool invoked when none is configured.
const DefaultTool = "nvidia-smi"

// Command is a program and its arguments.
type Command struct {
	Path string
	Args []string
}

// String renders the command line for logs and errors.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Path
	}
	return c.Path + " " + strings.Join(c.Args, " ")
}

// QueryCommand returns the invocation that samples catalog:
// "<tool> --query-gpu=<metrics> --format=csv".
func QueryCommand(tool string, catalog Catalog) Command {
	return Command{
		Path: tool,
		Args: []string{"--query-gpu=" + catalog.QueryArgument(), "--format=csv"},
	}
}

// ListCommand returns the invocation that lists devices: "<tool> -L".
func ListCommand(tool string) Command {
	return Command{Path: tool, Args: []string{"-L"}}
}

// Invoker runs a command to completion and returns its combined output.
type Invoker interface {
	Run(ctx context.Context, command Command) ([]byte, error)
}

// ExecInvoker runs commands as child processes.
//
// The child is started with exec.Command, not exec.CommandContext:
// cancelling ctx stops the sampling loop at its next boundary but never
// kills a tool that is already running. ctx is only consulted before
// the child starts. There is no timeout; a tool that hangs holds the
// loop.
type ExecInvoker struct {
	Logger *slog.Logger
}

// Run executes command with stdin closed and stdout and stderr merged.
// A non-zero exit or a launch failure returns *ExternalToolError.
func (i ExecInvoker) Run(ctx context.Context, command Command) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	cmd := exec.Command(command.Path, command.Args...)
	output, err := cmd.CombinedOutput()
	if i.Logger != nil {
		i.Logger.Debug("device tool finished",
			"command", command.String(),
			"duration", time.Since(started),
			"bytes", len(output),
		)
	}
	if err == nil {
		return output, nil
	}

	toolErr := &ExternalToolError{Command: command, ExitCode: -1, Output: output, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		toolErr.ExitCode = exitErr.ExitCode()
	}
	return nil, toolErr
}
