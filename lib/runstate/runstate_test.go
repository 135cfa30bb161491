// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runstate

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/gpusampler/lib/clock"
	"github.com/bureau-foundation/gpusampler/lib/smi"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func initialState() State {
	return State{
		Tool:        "nvidia-smi",
		Catalog:     []string{"index", "power.draw"},
		Fingerprint: "abc123",
		Output:      "consumption.csv",
		Period:      5 * time.Second,
		PID:         4242,
		StartedAt:   epoch,
	}
}

func TestWriteRead(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.state")
	state := initialState()
	state.Cycles = 7
	state.LastStamp = 30

	if err := Write(path, state); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file left behind: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Cycles != 7 || got.LastStamp != 30 || got.Period != 5*time.Second {
		t.Errorf("Read = %+v", got)
	}
	if !got.StartedAt.Equal(epoch) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, epoch)
	}
	if len(got.Catalog) != 2 || got.Catalog[1] != "power.draw" {
		t.Errorf("Catalog = %v", got.Catalog)
	}
}

func TestReadMissing(t *testing.T) {
	t.Parallel()

	_, err := Read(filepath.Join(t.TempDir(), "absent"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Read error = %v, want os.ErrNotExist", err)
	}
}

func TestReadCorrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.state")
	if err := os.WriteFile(path, []byte{0xff, 0x00, 0x13}, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Fatal("Read of corrupt file succeeded")
	}
}

func TestTrackerPersistsEachEvent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.state")
	fake := clock.Fake(epoch)
	tracker, err := NewTracker(path, initialState(), fake, nil)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}

	batch := smi.Batch{Records: []smi.Record{{}, {}}}
	fake.Advance(5 * time.Second)
	tracker.CycleCompleted(1, 5, batch, time.Second)
	tracker.Overrun(2, 300*time.Millisecond)
	tracker.Overrun(3, 100*time.Millisecond)
	tracker.CycleFailed(4, errors.New("boom"))

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Cycles != 1 || got.LastStamp != 5 || got.Entities != 2 {
		t.Errorf("cycle fields = %+v", got)
	}
	if got.Overruns != 2 || got.MaxOver != 300*time.Millisecond {
		t.Errorf("overrun fields = %d, %v", got.Overruns, got.MaxOver)
	}
	if got.Failures != 1 {
		t.Errorf("Failures = %d, want 1", got.Failures)
	}
	if !got.UpdatedAt.Equal(epoch.Add(5 * time.Second)) {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}

	tracker.Stop("interrupted")
	got, err = Read(path)
	if err != nil {
		t.Fatalf("Read after Stop: %v", err)
	}
	if !got.Stopped || got.StopReason != "interrupted" {
		t.Errorf("Stop not persisted: %+v", got)
	}
}

func TestTrackerWriteFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	path := filepath.Join(directory, "run.state")
	tracker, err := NewTracker(path, initialState(), clock.Fake(epoch), nil)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	if err := os.RemoveAll(directory); err != nil {
		t.Fatal(err)
	}

	tracker.CycleCompleted(1, 0, smi.Batch{}, 0)
	if got := tracker.Snapshot().Cycles; got != 1 {
		t.Errorf("Snapshot().Cycles = %d, want 1", got)
	}
}

func TestStatusJSON(t *testing.T) {
	t.Parallel()

	tracker, err := NewTracker(filepath.Join(t.TempDir(), "run.state"), initialState(), clock.Fake(epoch), nil)
	if err != nil {
		t.Fatalf("NewTracker: %v", err)
	}
	tracker.Overrun(1, 1500*time.Millisecond)

	data, err := tracker.StatusJSON()
	if err != nil {
		t.Fatalf("StatusJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	if decoded["period"] != "5s" {
		t.Errorf("period = %v, want 5s", decoded["period"])
	}
	if decoded["max_overrun"] != "1.5s" {
		t.Errorf("max_overrun = %v, want 1.5s", decoded["max_overrun"])
	}
	if decoded["tool"] != "nvidia-smi" {
		t.Errorf("tool = %v", decoded["tool"])
	}
}
