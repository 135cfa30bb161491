// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/gpusampler/lib/schedule"
	"github.com/bureau-foundation/gpusampler/lib/sink"
	"github.com/bureau-foundation/gpusampler/lib/smi"
)

// MaxPrecision bounds the number of decimals shown in the live view.
const MaxPrecision = 12

// StateFileDisabled as the state_file value turns the run-state file off.
const StateFileDisabled = "-"

// Config is the sampler configuration.
type Config struct {
	// Tool is the device-monitoring command, resolved through PATH
	// unless it contains a slash.
	// Default: nvidia-smi
	Tool string `yaml:"tool" json:"tool"`

	// Catalog is the ordered list of metrics to query.
	// Default: the 16 metrics of smi.DefaultCatalog.
	Catalog []string `yaml:"catalog" json:"catalog"`

	// Output is the CSV log path. It is truncated at startup.
	// Default: consumption.csv
	Output string `yaml:"output" json:"output"`

	// Period is the target time between cycle starts.
	// Default: 5s
	Period Duration `yaml:"period" json:"period"`

	// Precision is the number of decimals used for live totals. It
	// never affects the log.
	// Default: 2
	Precision int `yaml:"precision" json:"precision"`

	// Live prints a summary of every cycle to stdout.
	Live bool `yaml:"live" json:"live"`

	// Compression is none, zstd, or lz4.
	Compression string `yaml:"compression" json:"compression"`

	// SQLite mirrors every sample into this database when set.
	SQLite string `yaml:"sqlite" json:"sqlite"`

	// MetricsAddr serves Prometheus metrics on this address when set.
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`

	// OnError is "fatal" (stop on the first failed sample) or
	// "continue" (log it and keep the schedule).
	// Default: fatal
	OnError string `yaml:"on_error" json:"on_error"`

	// StateFile is the run-state path. Empty means Output + ".state";
	// "-" disables it.
	StateFile string `yaml:"state_file" json:"state_file"`

	// Unavailable lists extra spellings treated as missing values, on
	// top of "N/A" and "Not Supported".
	Unavailable []string `yaml:"unavailable" json:"unavailable"`

	// Lock takes an exclusive advisory lock on Output.
	// Default: true
	Lock bool `yaml:"lock" json:"lock"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Tool:        smi.DefaultTool,
		Catalog:     smi.DefaultCatalog().Names(),
		Output:      "consumption.csv",
		Period:      Duration(5 * time.Second),
		Precision:   2,
		Compression: "none",
		OnError:     "fatal",
		Lock:        true,
	}
}

// LoadFile reads path over Default and expands variables in path
// fields. The result is not validated.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		// An empty file decodes as io.EOF and leaves the defaults.
		if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.ExpandVariables()
	return cfg, nil
}

// ExpandVariables expands ${VAR} and ${VAR:-default} in the path
// fields.
func (c *Config) ExpandVariables() {
	c.Tool = expandVars(c.Tool)
	c.Output = expandVars(c.Output)
	c.SQLite = expandVars(c.SQLite)
	if c.StateFile != StateFileDisabled {
		c.StateFile = expandVars(c.StateFile)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// StatePath returns the run-state file path, or "" when disabled.
func (c Config) StatePath() string {
	switch c.StateFile {
	case StateFileDisabled:
		return ""
	case "":
		return c.Output + ".state"
	default:
		return c.StateFile
	}
}

// SMICatalog returns the parsed metric catalog.
func (c Config) SMICatalog() (smi.Catalog, error) {
	return smi.NewCatalog(c.Catalog...)
}

// CompressionMode returns the parsed log compression.
func (c Config) CompressionMode() (sink.Compression, error) {
	return sink.ParseCompression(c.Compression)
}

// ErrorPolicy returns the parsed sampling-failure policy.
func (c Config) ErrorPolicy() (schedule.Policy, error) {
	return schedule.ParsePolicy(c.OnError)
}

// Validate checks every field and returns all problems joined. Each
// problem is a *ConfigurationError.
func (c Config) Validate() error {
	var errs []error
	add := func(field string, value any, reason string) {
		errs = append(errs, &ConfigurationError{Field: field, Value: fmt.Sprint(value), Reason: reason})
	}

	if strings.TrimSpace(c.Tool) == "" {
		add("tool", c.Tool, "is required")
	}
	if _, err := c.SMICatalog(); err != nil {
		add("catalog", strings.Join(c.Catalog, ","), err.Error())
	}
	if strings.TrimSpace(c.Output) == "" {
		add("output", c.Output, "is required")
	}
	if c.Period.Std() <= 0 {
		add("period", c.Period, "must be positive")
	}
	if c.Precision < 0 || c.Precision > MaxPrecision {
		add("precision", c.Precision, fmt.Sprintf("must be between 0 and %d", MaxPrecision))
	}
	if _, err := c.CompressionMode(); err != nil {
		add("compression", c.Compression, err.Error())
	}
	if _, err := c.ErrorPolicy(); err != nil {
		add("on_error", c.OnError, err.Error())
	}
	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			add("metrics_addr", c.MetricsAddr, err.Error())
		}
	}
	for _, spelling := range c.Unavailable {
		if strings.TrimSpace(spelling) == "" {
			add("unavailable", spelling, "entries must not be blank")
			break
		}
	}
	if c.SQLite != "" && c.SQLite == c.Output {
		add("sqlite", c.SQLite, "must differ from output")
	}
	if state := c.StatePath(); state != "" && state == c.Output {
		add("state_file", c.StateFile, "must differ from output")
	}

	return errors.Join(errs...)
}

// ConfigurationError describes one invalid setting.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// IsConfigurationError reports whether err contains a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
