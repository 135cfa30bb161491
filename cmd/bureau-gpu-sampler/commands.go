// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gpusampler/cmd/bureau-gpu-sampler/cli"
)

func rootCommand(env *environment) *cli.Command {
	var params samplerParams
	command := &cli.Command{
		Name:    "bureau-gpu-sampler",
		Summary: "Sample GPU telemetry into a CSV log",
		Description: `Sample GPU telemetry from nvidia-smi at a fixed period.

Each cycle runs the device tool, parses one row per GPU, and appends
the rows to the CSV log with the whole seconds elapsed since start.
The log is flushed and synced after every cycle. A cycle that takes
longer than the period is reported as an overrun and the next cycle
starts immediately. Interrupt with Ctrl-C to stop.`,
		Examples: []cli.Example{
			{Description: "Sample every 5 seconds into consumption.csv", Command: "bureau-gpu-sampler"},
			{Description: "Sample twice a second with a live summary", Command: "bureau-gpu-sampler -l -d 0.5 -o gpu.csv"},
			{Description: "Export Prometheus metrics and mirror into SQLite", Command: "bureau-gpu-sampler --metrics-addr :9835 --sqlite samples.db"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("bureau-gpu-sampler", &params)
		},
	}
	command.Run = func(args []string) error {
		if len(args) > 0 {
			return command.UsageError(errUnexpectedArguments(args))
		}
		cfg, err := params.configuration(command)
		if err != nil {
			return command.UsageError(err)
		}
		logger, err := env.logger(params.LoggerOptions)
		if err != nil {
			return command.UsageError(err)
		}
		return runSampler(env, cfg, logger)
	}
	command.Subcommands = []*cli.Command{
		discoverCommand(env),
		statusCommand(env),
		validateCommand(env),
		versionCommand(env),
	}
	command.Output = env.stderr
	return command
}
