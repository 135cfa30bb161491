// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package runstate records the progress of a sampling run in a small
// state file beside the output log.
//
// The file is rewritten after every committed cycle and once more when
// the run stops. It is written atomically (temporary file, fsync,
// rename, directory fsync), so a reader such as "bureau-gpu-sampler
// status" sees either the previous state or the next one, never a torn
// write. The encoding is deterministic CBOR via lib/codec.
package runstate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/gpusampler/lib/codec"
)

// State is the persisted description of one run.
type State struct {
	Tool        string        `cbor:"tool"`
	Catalog     []string      `cbor:"catalog"`
	Fingerprint string        `cbor:"fingerprint"`
	Output      string        `cbor:"output"`
	Period      time.Duration `cbor:"period_ns"`
	PID         int           `cbor:"pid"`

	Host     string `cbor:"host,omitempty"`
	Platform string `cbor:"platform,omitempty"`

	StartedAt time.Time `cbor:"started_at"`
	UpdatedAt time.Time `cbor:"updated_at"`

	Cycles    uint64        `cbor:"cycles"`
	Failures  uint64        `cbor:"failures"`
	LastStamp int64         `cbor:"last_stamp"`
	Entities  int           `cbor:"entities"`
	Overruns  uint64        `cbor:"overruns"`
	MaxOver   time.Duration `cbor:"max_overrun_ns"`

	Stopped    bool   `cbor:"stopped"`
	StopReason string `cbor:"stop_reason,omitempty"`
}

// Write atomically replaces the state file at path.
func Write(path string, state State) error {
	data, err := codec.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding run state: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating temporary run state: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary run state: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary run state: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary run state: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming run state into place: %w", err)
	}

	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

// Read loads the state file at path. A missing file returns an error
// wrapping os.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := codec.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decoding run state %s: %w", path, err)
	}
	return state, nil
}
