// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gpusampler/cmd/bureau-gpu-sampler/cli"
	"github.com/bureau-foundation/gpusampler/lib/config"
	"github.com/bureau-foundation/gpusampler/lib/runstate"
)

type statusParams struct {
	Output    string `flag:"output,o" default:"consumption.csv" desc:"CSV log path of the run"`
	StateFile string `flag:"state-file" desc:"run-state file (default <output>.state)"`
	JSON      bool   `flag:"json" desc:"print JSON"`
}

func statusCommand(env *environment) *cli.Command {
	var params statusParams
	command := &cli.Command{
		Name:    "status",
		Summary: "Show the progress of a running or finished sampler",
		Description: `Print the run-state file a sampler keeps next to its output log:
cycles written, the last stamp, failures, and overruns.

Exits 0 while the run is active and 1 once it has stopped, so scripts
can poll it.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
	}
	command.Run = func(args []string) error {
		if len(args) > 0 {
			return command.UsageError(errUnexpectedArguments(args))
		}
		path := config.Config{Output: params.Output, StateFile: params.StateFile}.StatePath()
		if path == "" {
			return command.UsageError(fmt.Errorf("--state-file %s disables the run-state file", config.StateFileDisabled))
		}

		state, err := runstate.Read(path)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no run state at %s (is the sampler running with a state file?)", path)
		}
		if err != nil {
			return err
		}

		if params.JSON {
			encoder := json.NewEncoder(env.stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(state.Status()); err != nil {
				return err
			}
		} else {
			printStatus(env, state)
		}
		if state.Stopped {
			return &cli.ExitError{Code: cli.ExitFailure}
		}
		return nil
	}
	return command
}

func printStatus(env *environment, state runstate.State) {
	tw := tabwriter.NewWriter(env.stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Tool:\t%s\n", state.Tool)
	fmt.Fprintf(tw, "Output:\t%s\n", state.Output)
	fmt.Fprintf(tw, "Period:\t%s\n", state.Period)
	fmt.Fprintf(tw, "Metrics:\t%d (%s)\n", len(state.Catalog), shortFingerprint(state.Fingerprint))
	if state.Host != "" {
		fmt.Fprintf(tw, "Host:\t%s %s\n", state.Host, state.Platform)
	}
	fmt.Fprintf(tw, "Started:\t%s\n", state.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Updated:\t%s\n", state.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Cycles:\t%d (last stamp %ds, %d devices)\n", state.Cycles, state.LastStamp, state.Entities)
	fmt.Fprintf(tw, "Failures:\t%d\n", state.Failures)
	fmt.Fprintf(tw, "Overruns:\t%d (max %s)\n", state.Overruns, state.MaxOver)
	if state.Stopped {
		fmt.Fprintf(tw, "State:\tstopped: %s\n", state.StopReason)
	} else {
		fmt.Fprintf(tw, "State:\trunning (pid %d)\n", state.PID)
	}
	tw.Flush()
}

func shortFingerprint(fingerprint string) string {
	return fingerprint[:min(len(fingerprint), 12)]
}
