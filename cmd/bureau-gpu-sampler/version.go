// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/bureau-foundation/gpusampler/cmd/bureau-gpu-sampler/cli"
	"github.com/bureau-foundation/gpusampler/lib/version"
)

func versionCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Run: func(args []string) error {
			fmt.Fprintln(env.stdout, "bureau-gpu-sampler "+version.Full())
			return nil
		},
	}
}
