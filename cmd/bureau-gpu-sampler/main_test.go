// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/gpusampler/cmd/bureau-gpu-sampler/cli"
	"github.com/bureau-foundation/gpusampler/lib/config"
	"github.com/bureau-foundation/gpusampler/lib/hwinfo"
	"github.com/bureau-foundation/gpusampler/lib/process"
	"github.com/bureau-foundation/gpusampler/lib/runstate"
	"github.com/bureau-foundation/gpusampler/lib/smi"
	"github.com/bureau-foundation/gpusampler/lib/testutil"
)

const testQuery = "index,utilization.gpu,power.draw,power.max_limit"

const testCapture = `index, utilization.gpu [%], power.draw [W], power.max_limit [W]
0, 45 %, 120.0 W, 300.00 W
1, [N/A], [N/A], 300.00 W
`

const testDeviceList = `GPU 0: NVIDIA A100-SXM4-40GB (UUID: GPU-aaaa)
GPU 1: NVIDIA A100-SXM4-40GB (UUID: GPU-bbbb)`

// fakeTool writes a device tool that lists two GPUs for -L and prints
// query for everything else.
func fakeTool(t *testing.T, query string) string {
	t.Helper()
	return testutil.WriteScript(t, "nvidia-smi", `
if [ "$1" = "-L" ]; then
  cat <<'__DEVICES__'
`+testDeviceList+`
__DEVICES__
  exit 0
fi
`+query)
}

type testEnvironment struct {
	*environment
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnvironment(ctx context.Context) testEnvironment {
	var stdout, stderr bytes.Buffer
	return testEnvironment{
		environment: &environment{
			ctx:    ctx,
			stdout: &stdout,
			stderr: &stderr,
			getenv: func(string) string { return "" },
		},
		stdout: &stdout,
		stderr: &stderr,
	}
}

func (e testEnvironment) execute(args ...string) error {
	return rootCommand(e.environment).Execute(args)
}

// waitForLines polls path until it has at least n lines.
func waitForLines(t *testing.T, path string, n int) []string {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for {
		data, _ := os.ReadFile(path)
		lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
		if len(data) > 0 && len(lines) >= n {
			return lines
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s has %d lines after 10s, want %d:\n%s", path, len(lines), n, data)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSamplerEndToEnd(t *testing.T) {
	tool := fakeTool(t, testutil.CaptureScript(testCapture))
	output := filepath.Join(t.TempDir(), "consumption.csv")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newTestEnvironment(ctx)

	done := make(chan error, 1)
	go func() {
		done <- env.execute("--tool", tool, "--query", testQuery, "-o", output, "-d", "0.05", "-l", "--log-format", "json")
	}()

	// Header plus two cycles of two devices.
	waitForLines(t, output, 5)
	cancel()
	err := testutil.RequireReceive(t, done, 10*time.Second, "sampler did not stop after cancel")
	if err != nil {
		t.Fatalf("run after interrupt = %v, want nil", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if lines[0] != "timestamp,"+testQuery {
		t.Errorf("header = %q", lines[0])
	}
	if (len(lines)-1)%2 != 0 {
		t.Errorf("log has a partial batch: %q", lines)
	}
	for i := 1; i < len(lines); i += 2 {
		stamp, rest, _ := strings.Cut(lines[i], ",")
		if rest != "0,45,120.0,300.00" {
			t.Errorf("line %d = %q, want device 0 values unrounded", i, lines[i])
		}
		if want := stamp + ",1,NA,NA,300.00"; lines[i+1] != want {
			t.Errorf("line %d = %q, want %q", i+1, lines[i+1], want)
		}
	}

	live := env.stdout.String()
	for _, want := range []string{"0: 45% 120.0/300.00 W", "1: NA% NA/300.00 W", "Total: 120.00/600.00 W", "---"} {
		if !strings.Contains(live, want) {
			t.Errorf("live view missing %q:\n%s", want, live)
		}
	}
	if !strings.Contains(env.stderr.String(), "GPU-aaaa") {
		t.Errorf("discovered devices not logged:\n%s", env.stderr.String())
	}

	state, err := runstate.Read(output + ".state")
	if err != nil {
		t.Fatalf("reading run state: %v", err)
	}
	if !state.Stopped || state.StopReason != "interrupted" {
		t.Errorf("run state = stopped %v %q, want interrupted", state.Stopped, state.StopReason)
	}
	if state.Cycles < 2 || state.Entities != 2 {
		t.Errorf("run state cycles=%d entities=%d", state.Cycles, state.Entities)
	}
}

func TestInvalidOptionsExitUsageWithoutOutput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"non-numeric delay", []string{"-d", "abc"}},
		{"zero delay", []string{"-d", "0"}},
		{"negative precision", []string{"-p", "-1"}},
		{"non-numeric precision", []string{"-p", "two"}},
		{"unknown compression", []string{"--compression", "gzip"}},
		{"missing config", []string{"--config", "/nonexistent/sampler.yaml"}},
		{"positional argument", []string{"extra"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			output := filepath.Join(t.TempDir(), "consumption.csv")
			env := newTestEnvironment(context.Background())

			err := env.execute(append([]string{"-o", output, "--tool", "/nonexistent/nvidia-smi"}, test.args...)...)
			if code := process.ExitCode(err); code != cli.ExitUsage {
				t.Fatalf("exit code = %d (%v), want %d", code, err, cli.ExitUsage)
			}
			if !strings.Contains(err.Error(), "--help") {
				t.Errorf("error %q has no usage pointer", err)
			}
			if _, statErr := os.Stat(output); !errors.Is(statErr, os.ErrNotExist) {
				t.Errorf("output created despite invalid options: %v", statErr)
			}
		})
	}
}

func TestConfigurationErrorNamesField(t *testing.T) {
	env := newTestEnvironment(context.Background())
	err := env.execute("-d", "-2")
	var configErr *config.ConfigurationError
	if !errors.As(err, &configErr) || configErr.Field != "period" {
		t.Fatalf("error = %v, want ConfigurationError for period", err)
	}
}

func TestToolFailureIsFatal(t *testing.T) {
	tool := testutil.WriteScript(t, "nvidia-smi", `echo "NVIDIA-SMI has failed because it couldn't communicate with the NVIDIA driver"; exit 9`)
	output := filepath.Join(t.TempDir(), "consumption.csv")
	env := newTestEnvironment(context.Background())

	err := env.execute("--tool", tool, "-o", output)
	var toolErr *smi.ExternalToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error = %v, want ExternalToolError", err)
	}
	if toolErr.ExitCode != 9 {
		t.Errorf("tool exit code = %d, want 9", toolErr.ExitCode)
	}
	if code := process.ExitCode(err); code != 1 {
		t.Errorf("process exit code = %d, want 1", code)
	}
}

func TestMalformedCaptureIsFatal(t *testing.T) {
	tool := fakeTool(t, testutil.CaptureScript("index, utilization.gpu [%]\n0, 45 %\n"))
	output := filepath.Join(t.TempDir(), "consumption.csv")
	env := newTestEnvironment(context.Background())

	err := env.execute("--tool", tool, "--query", testQuery, "-o", output, "-d", "0.05")
	var malformed *smi.MalformedCaptureError
	if !errors.As(err, &malformed) {
		t.Fatalf("error = %v, want MalformedCaptureError", err)
	}
	if code := process.ExitCode(err); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}

	// The header was committed before the first cycle failed.
	data, readErr := os.ReadFile(output)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if string(data) != "timestamp,"+testQuery+"\n" {
		t.Errorf("log = %q, want only the header", data)
	}

	state, stateErr := runstate.Read(output + ".state")
	if stateErr != nil {
		t.Fatal(stateErr)
	}
	if !strings.HasPrefix(state.StopReason, "failed: ") || state.Failures != 1 {
		t.Errorf("run state = %+v", state)
	}
}

// writePreviousLog leaves a log from an earlier run at path.
func writePreviousLog(t *testing.T, path string) string {
	t.Helper()
	previous := "timestamp," + testQuery + "\n0,0,45,120.0,300.00\n"
	if err := os.WriteFile(path, []byte(previous), 0o644); err != nil {
		t.Fatal(err)
	}
	return previous
}

func requireUnchanged(t *testing.T, path, want string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != want {
		t.Errorf("%s = %q, want the previous run's log untouched", path, data)
	}
}

func TestInterruptBeforeLoopExitsCleanly(t *testing.T) {
	tool := fakeTool(t, testutil.CaptureScript(testCapture))
	output := filepath.Join(t.TempDir(), "consumption.csv")
	previous := writePreviousLog(t, output)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env := newTestEnvironment(ctx)

	err := env.execute("--tool", tool, "--query", testQuery, "-o", output, "--log-format", "json")
	if code := process.ExitCode(err); code != 0 {
		t.Fatalf("exit code = %d (%v), want 0", code, err)
	}
	if !strings.Contains(env.stderr.String(), "program interrupted") {
		t.Errorf("interrupt not logged:\n%s", env.stderr.String())
	}
	requireUnchanged(t, output, previous)
}

func TestMetricsPortInUseKeepsPreviousLog(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer occupied.Close()

	tool := fakeTool(t, testutil.CaptureScript(testCapture))
	directory := t.TempDir()
	output := filepath.Join(directory, "consumption.csv")
	previous := writePreviousLog(t, output)
	env := newTestEnvironment(context.Background())

	err = env.execute("--tool", tool, "--query", testQuery, "-o", output,
		"--sqlite", filepath.Join(directory, "samples.db"),
		"--metrics-addr", occupied.Addr().String())
	if code := process.ExitCode(err); code != 1 {
		t.Fatalf("exit code = %d (%v), want 1", code, err)
	}
	requireUnchanged(t, output, previous)
}

func TestValidateCommand(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sampler.yaml")
	if err := os.WriteFile(configPath, []byte("period: 250ms\ncompression: zstd\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	env := newTestEnvironment(context.Background())

	if err := env.execute("validate", "--config", configPath, "-p", "3"); err != nil {
		t.Fatalf("validate: %v", err)
	}
	printed := env.stdout.String()
	for _, want := range []string{"period: 250ms", "compression: zstd", "precision: 3", "output: consumption.csv"} {
		if !strings.Contains(printed, want) {
			t.Errorf("validate output missing %q:\n%s", want, printed)
		}
	}

	env = newTestEnvironment(context.Background())
	err := env.execute("validate", "--period", "0")
	if code := process.ExitCode(err); code != cli.ExitUsage {
		t.Errorf("validate --period 0 exit code = %d, want %d", code, cli.ExitUsage)
	}
}

func TestStatusCommand(t *testing.T) {
	output := filepath.Join(t.TempDir(), "gpu.csv")
	state := runstate.State{
		Tool:        "nvidia-smi",
		Catalog:     []string{"index", "power.draw"},
		Fingerprint: "0123456789abcdef0123",
		Output:      output,
		Period:      5 * time.Second,
		PID:         4242,
		StartedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC),
		Cycles:      12,
		LastStamp:   55,
		Entities:    2,
		Overruns:    1,
		MaxOver:     1200 * time.Millisecond,
	}
	if err := runstate.Write(config.Config{Output: output}.StatePath(), state); err != nil {
		t.Fatal(err)
	}

	env := newTestEnvironment(context.Background())
	if err := env.execute("status", "-o", output); err != nil {
		t.Fatalf("status: %v", err)
	}
	printed := env.stdout.String()
	for _, want := range []string{"12 (last stamp 55s, 2 devices)", "1 (max 1.2s)", "running (pid 4242)", "0123456789ab"} {
		if !strings.Contains(printed, want) {
			t.Errorf("status output missing %q:\n%s", want, printed)
		}
	}

	env = newTestEnvironment(context.Background())
	if err := env.execute("status", "-o", output, "--json"); err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var decoded runstate.Status
	if err := json.Unmarshal(env.stdout.Bytes(), &decoded); err != nil {
		t.Fatalf("status --json output: %v", err)
	}
	if decoded.Cycles != 12 || decoded.Period != "5s" {
		t.Errorf("decoded status = %+v", decoded)
	}
}

func TestStatusCommandStoppedRunExitsNonZero(t *testing.T) {
	output := filepath.Join(t.TempDir(), "gpu.csv")
	statePath := filepath.Join(t.TempDir(), "gpu.state")
	state := runstate.State{
		Tool:       "nvidia-smi",
		Output:     output,
		Period:     time.Second,
		Cycles:     3,
		Stopped:    true,
		StopReason: "interrupted",
	}
	if err := runstate.Write(statePath, state); err != nil {
		t.Fatal(err)
	}

	env := newTestEnvironment(context.Background())
	err := env.execute("status", "-o", output, "--state-file", statePath)
	if code := process.ExitCode(err); code != cli.ExitFailure {
		t.Fatalf("exit code = %d (%v), want %d", code, err, cli.ExitFailure)
	}
	if !strings.Contains(env.stdout.String(), "stopped: interrupted") {
		t.Errorf("status output lacks the stop reason:\n%s", env.stdout.String())
	}
	var reported bytes.Buffer
	process.Report(&reported, err)
	if reported.Len() != 0 {
		t.Errorf("stopped run reported an extra error: %q", reported.String())
	}
}

func TestStatusCommandDisabledStateFile(t *testing.T) {
	env := newTestEnvironment(context.Background())
	err := env.execute("status", "--state-file", config.StateFileDisabled)
	if code := process.ExitCode(err); code != cli.ExitUsage {
		t.Errorf("exit code = %d (%v), want %d", code, err, cli.ExitUsage)
	}
}

func TestStatusCommandMissingState(t *testing.T) {
	env := newTestEnvironment(context.Background())
	err := env.execute("status", "--state-file", filepath.Join(t.TempDir(), "absent.state"))
	if err == nil || !strings.Contains(err.Error(), "no run state") {
		t.Errorf("status error = %v", err)
	}
}

type staticProber []hwinfo.Card

func (p staticProber) Enumerate() []hwinfo.Card { return p }

func TestDiscoverCommand(t *testing.T) {
	saved := cardProber
	t.Cleanup(func() { cardProber = saved })
	cardProber = staticProber{
		{Name: "card0", Slot: "0000:01:00.0", Driver: "nvidia", Model: "NVIDIA A100-SXM4-40GB", UUID: "GPU-aaaa"},
		{Name: "card1", Slot: "0000:41:00.0", Driver: "nvidia", Model: "NVIDIA A100-SXM4-40GB", UUID: "GPU-cccc"},
	}

	tool := fakeTool(t, "exit 3")
	env := newTestEnvironment(context.Background())
	if err := env.execute("discover", "--tool", tool, "--log-format", "text"); err != nil {
		t.Fatalf("discover: %v", err)
	}

	printed := env.stdout.String()
	for _, want := range []string{"Devices (2):", "GPU-bbbb", "Cards (2):", "0000:41:00.0"} {
		if !strings.Contains(printed, want) {
			t.Errorf("discover output missing %q:\n%s", want, printed)
		}
	}
	logged := env.stderr.String()
	if !strings.Contains(logged, "GPU-bbbb") || !strings.Contains(logged, "GPU-cccc") {
		t.Errorf("reconcile warnings missing:\n%s", logged)
	}
}

func TestVersionCommand(t *testing.T) {
	env := newTestEnvironment(context.Background())
	if err := env.execute("version"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(env.stdout.String(), "bureau-gpu-sampler ") {
		t.Errorf("version output = %q", env.stdout.String())
	}
}
