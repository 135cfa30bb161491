// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/gpusampler/cmd/bureau-gpu-sampler/cli"
)

func validateCommand(env *environment) *cli.Command {
	var params samplerParams
	command := &cli.Command{
		Name:    "validate",
		Summary: "Check the configuration and print the effective settings",
		Description: `Load --config, apply the other flags, and validate the result without
running the device tool. Prints the effective configuration as YAML.
Exits 2 if any value is invalid.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("validate", &params)
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
		encoder := yaml.NewEncoder(env.stdout)
		encoder.SetIndent(2)
		if err := encoder.Encode(cfg); err != nil {
			return err
		}
		return encoder.Close()
	}
	return command
}
