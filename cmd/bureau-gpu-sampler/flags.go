// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/gpusampler/cmd/bureau-gpu-sampler/cli"
	"github.com/bureau-foundation/gpusampler/lib/config"
)

// samplerParams are the flags shared by the root and validate commands.
// Each one overrides the configuration file only when it is given.
type samplerParams struct {
	Live      bool   `flag:"live,l" desc:"print a summary of every cycle"`
	Output    string `flag:"output,o" default:"consumption.csv" desc:"CSV log path, truncated at start"`
	Period    periodFlag
	Precision int `flag:"precision,p" default:"2" desc:"decimals for live power totals"`

	ConfigFile  string   `flag:"config" desc:"YAML or JSONC configuration file"`
	Tool        string   `flag:"tool" default:"nvidia-smi" desc:"device tool to run"`
	Query       string   `flag:"query" desc:"comma-separated metrics to query (default: built-in catalog)"`
	Compression string   `flag:"compression" default:"none" desc:"log compression: none, zstd, or lz4"`
	SQLite      string   `flag:"sqlite" desc:"also record samples in this SQLite database"`
	MetricsAddr string   `flag:"metrics-addr" desc:"serve Prometheus metrics on this address"`
	OnError     string   `flag:"on-error" default:"fatal" desc:"on a failed sample: fatal or continue"`
	StateFile   string   `flag:"state-file" desc:"run-state file (default <output>.state, - disables)"`
	NoLock      bool     `flag:"no-lock" desc:"do not lock the output log"`
	Unavailable []string `flag:"unavailable" desc:"extra values treated as unavailable"`

	cli.LoggerOptions
}

// periodFlag is the sampling period, reachable as -d/--delay (the
// historical name) and --period.
type periodFlag struct {
	value config.Duration
	set   bool
}

// AddFlags registers both names on the same value.
func (p *periodFlag) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.VarP(p, "delay", "d", "seconds between cycle starts, fractional allowed (default 5)")
	flagSet.Var(p, "period", "alias for --delay; also accepts durations such as 250ms")
}

func (p *periodFlag) String() string {
	if !p.set {
		return ""
	}
	return p.value.String()
}

func (p *periodFlag) Set(s string) error {
	parsed, err := config.ParseDuration(s)
	if err != nil {
		return err
	}
	p.value = parsed
	p.set = true
	return nil
}

func (p *periodFlag) Type() string { return "seconds" }

// configuration loads --config over the defaults, applies every flag
// given on the command line, and validates the result.
func (p *samplerParams) configuration(command *cli.Command) (config.Config, error) {
	cfg := config.Default()
	if p.ConfigFile != "" {
		loaded, err := config.LoadFile(p.ConfigFile)
		if err != nil {
			return config.Config{}, &config.ConfigurationError{Field: "config", Value: p.ConfigFile, Reason: err.Error()}
		}
		cfg = loaded
	}

	if command.Changed("live") {
		cfg.Live = p.Live
	}
	if command.Changed("output") {
		cfg.Output = p.Output
	}
	if p.Period.set {
		cfg.Period = p.Period.value
	}
	if command.Changed("precision") {
		cfg.Precision = p.Precision
	}
	if command.Changed("tool") {
		cfg.Tool = p.Tool
	}
	if command.Changed("query") {
		cfg.Catalog = strings.Split(p.Query, ",")
	}
	if command.Changed("compression") {
		cfg.Compression = p.Compression
	}
	if command.Changed("sqlite") {
		cfg.SQLite = p.SQLite
	}
	if command.Changed("metrics-addr") {
		cfg.MetricsAddr = p.MetricsAddr
	}
	if command.Changed("on-error") {
		cfg.OnError = p.OnError
	}
	if command.Changed("state-file") {
		cfg.StateFile = p.StateFile
	}
	if command.Changed("no-lock") {
		cfg.Lock = !p.NoLock
	}
	if command.Changed("unavailable") {
		cfg.Unavailable = append(cfg.Unavailable, p.Unavailable...)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (e *environment) logger(options cli.LoggerOptions) (*slog.Logger, error) {
	return cli.NewLogger(e.stderr, e.stderrTerminal, options)
}

func errUnexpectedArguments(args []string) error {
	return fmt.Errorf("unexpected arguments %q", args)
}
