// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runstate

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/gpusampler/lib/clock"
	"github.com/bureau-foundation/gpusampler/lib/smi"
)

// Tracker keeps a State current as the scheduler reports cycles and
// persists it after each one. Write failures are logged, not returned:
// the state file is advisory and must never stop sampling.
type Tracker struct {
	path   string
	clock  clock.Clock
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

// NewTracker writes initial to path and returns a Tracker for it.
func NewTracker(path string, initial State, c clock.Clock, logger *slog.Logger) (*Tracker, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	initial.UpdatedAt = c.Now()
	if err := Write(path, initial); err != nil {
		return nil, err
	}
	return &Tracker{path: path, clock: c, logger: logger, state: initial}, nil
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	snapshot := t.state
	snapshot.Catalog = append([]string(nil), t.state.Catalog...)
	return snapshot
}

// CycleCompleted records a committed batch.
func (t *Tracker) CycleCompleted(_ uint64, stamp int64, batch smi.Batch, _ time.Duration) {
	t.update(func(state *State) {
		state.Cycles++
		state.LastStamp = stamp
		state.Entities = batch.Len()
	})
}

// CycleFailed records a failed sample.
func (t *Tracker) CycleFailed(uint64, error) {
	t.update(func(state *State) { state.Failures++ })
}

// Overrun records an overrun and keeps the largest one seen.
func (t *Tracker) Overrun(_ uint64, overrun time.Duration) {
	t.update(func(state *State) {
		state.Overruns++
		if overrun > state.MaxOver {
			state.MaxOver = overrun
		}
	})
}

// Stop marks the run finished with reason and writes the final state.
func (t *Tracker) Stop(reason string) {
	t.update(func(state *State) {
		state.Stopped = true
		state.StopReason = reason
	})
}

func (t *Tracker) update(change func(*State)) {
	t.mu.Lock()
	change(&t.state)
	t.state.UpdatedAt = t.clock.Now()
	snapshot := t.state
	t.mu.Unlock()

	if err := Write(t.path, snapshot); err != nil {
		t.logger.Warn("run state not updated", "path", t.path, "error", err)
	}
}
