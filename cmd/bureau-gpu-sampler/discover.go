// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gpusampler/cmd/bureau-gpu-sampler/cli"
	"github.com/bureau-foundation/gpusampler/lib/hwinfo"
	"github.com/bureau-foundation/gpusampler/lib/hwinfo/nvidia"
	"github.com/bureau-foundation/gpusampler/lib/runstate"
	"github.com/bureau-foundation/gpusampler/lib/smi"
)

type discoverParams struct {
	Tool string `flag:"tool" default:"nvidia-smi" desc:"device tool to run"`
	JSON bool   `flag:"json" desc:"print JSON"`

	cli.LoggerOptions
}

// discoverReport is the JSON form of the discover output.
type discoverReport struct {
	Host     string        `json:"host,omitempty"`
	Platform string        `json:"platform,omitempty"`
	Devices  []smi.Device  `json:"devices"`
	Cards    []hwinfo.Card `json:"cards"`
}

// cardProber is the sysfs inventory source, replaced in tests.
var cardProber hwinfo.Prober = nvidia.NewProber()

func discoverCommand(env *environment) *cli.Command {
	var params discoverParams
	command := &cli.Command{
		Name:    "discover",
		Summary: "List the GPUs the device tool and the kernel can see",
		Description: `List the GPUs reported by "<tool> -L" next to the NVIDIA cards found
in sysfs. GPUs that appear in only one of the two are logged as
warnings.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("discover", &params)
		},
	}
	command.Run = func(args []string) error {
		if len(args) > 0 {
			return command.UsageError(errUnexpectedArguments(args))
		}
		logger, err := env.logger(params.LoggerOptions)
		if err != nil {
			return command.UsageError(err)
		}

		devices, err := smi.Discover(env.ctx, smi.ExecInvoker{Logger: logger}, params.Tool)
		if err != nil {
			return fmt.Errorf("listing devices: %w", err)
		}
		cards := cardProber.Enumerate()

		uuids := make([]string, 0, len(devices))
		for _, device := range devices {
			uuids = append(uuids, device.UUID)
		}
		missingFromInventory, missingFromTool := hwinfo.Reconcile(uuids, cards)
		for _, uuid := range missingFromInventory {
			logger.Warn("device reported by tool but not found in sysfs", "uuid", uuid)
		}
		for _, uuid := range missingFromTool {
			logger.Warn("card found in sysfs but not reported by tool", "uuid", uuid)
		}

		hostname, platform := runstate.DescribeHost(env.ctx)
		report := discoverReport{Host: hostname, Platform: platform, Devices: devices, Cards: cards}
		if params.JSON {
			encoder := json.NewEncoder(env.stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(report)
		}
		printDiscoverReport(env, report)
		return nil
	}
	return command
}

func printDiscoverReport(env *environment, report discoverReport) {
	if report.Host != "" {
		fmt.Fprintf(env.stdout, "Host: %s (%s)\n\n", report.Host, report.Platform)
	}

	fmt.Fprintf(env.stdout, "Devices (%d):\n", len(report.Devices))
	tw := tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', 0)
	for _, device := range report.Devices {
		fmt.Fprintf(tw, "  %d\t%s\t%s\n", device.Index, device.Name, device.UUID)
	}
	tw.Flush()

	fmt.Fprintf(env.stdout, "\nCards (%d):\n", len(report.Cards))
	tw = tabwriter.NewWriter(env.stdout, 2, 0, 3, ' ', 0)
	for _, card := range report.Cards {
		model := card.Model
		if model == "" {
			model = card.Vendor + " " + card.DeviceID
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", card.Name, card.Slot, card.Driver, model, card.UUID)
	}
	tw.Flush()
}
