// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/gpusampler/lib/clock"
	"github.com/bureau-foundation/gpusampler/lib/smi"
)

// State is the loop's position within a cycle.
type State int32

const (
	StateIdle State = iota
	StateSampling
	StateEmitting
	StateWaiting
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StateEmitting:
		return "emitting"
	case StateWaiting:
		return "waiting"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Policy decides what a failed sample does to the loop.
type Policy int

const (
	// FailFast stops the loop on the first sampling error.
	FailFast Policy = iota

	// Continue logs the error, skips the cycle's output, and keeps
	// the period.
	Continue
)

func (p Policy) String() string {
	if p == Continue {
		return "continue"
	}
	return "fatal"
}

// ParsePolicy accepts "fatal" and "continue".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fatal":
		return FailFast, nil
	case "continue":
		return Continue, nil
	default:
		return FailFast, fmt.Errorf("unknown error policy %q (want fatal or continue)", s)
	}
}

// Sampler produces one batch per call.
type Sampler interface {
	Sample(ctx context.Context) (smi.Batch, error)
}

// Emitter persists one batch under its stamp. It must have committed
// the batch durably by the time it returns.
type Emitter interface {
	Write(batch smi.Batch, stamp int64) error
}

// Observer is told about every cycle outcome. Methods are called from
// the loop goroutine and must not block.
type Observer interface {
	CycleCompleted(cycle uint64, stamp int64, batch smi.Batch, work time.Duration)
	CycleFailed(cycle uint64, err error)
	Overrun(cycle uint64, overrun time.Duration)
}

// Config holds the loop's collaborators.
type Config struct {
	Period    time.Duration
	Sampler   Sampler
	Emitter   Emitter
	Policy    Policy
	Observers []Observer

	// Clock defaults to clock.Real().
	Clock clock.Clock

	// Logger defaults to a discarding logger.
	Logger *slog.Logger
}

// Scheduler runs the periodic loop. A Scheduler runs at most once.
type Scheduler struct {
	period    time.Duration
	sampler   Sampler
	emitter   Emitter
	policy    Policy
	observers []Observer
	clock     clock.Clock
	logger    *slog.Logger

	state  atomic.Int32
	cycles atomic.Uint64
}

// New validates config and returns an idle Scheduler.
func New(config Config) (*Scheduler, error) {
	if config.Period <= 0 {
		return nil, fmt.Errorf("schedule: period must be positive, got %v", config.Period)
	}
	if config.Sampler == nil {
		return nil, fmt.Errorf("schedule: Sampler is required")
	}
	if config.Emitter == nil {
		return nil, fmt.Errorf("schedule: Emitter is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		period:    config.Period,
		sampler:   config.Sampler,
		emitter:   config.Emitter,
		policy:    config.Policy,
		observers: config.Observers,
		clock:     config.Clock,
		logger:    config.Logger,
	}, nil
}

// State returns the current loop state. Safe to call concurrently
// with Run.
func (s *Scheduler) State() State { return State(s.state.Load()) }

// Cycles returns how many batches have been emitted.
func (s *Scheduler) Cycles() uint64 { return s.cycles.Load() }

// Run loops until ctx is cancelled or a cycle fails fatally. Returns
// nil on cancellation. A sampling error is returned under FailFast; an
// emit error is always returned.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.setState(StateStopped)

	runStart := s.clock.Now()
	s.logger.Info("sampling loop started", "period", s.period, "policy", s.policy.String())

	for cycle := uint64(1); ; cycle++ {
		if ctx.Err() != nil {
			s.logger.Info("sampling loop interrupted", "cycles", s.Cycles())
			return nil
		}

		cycleStart := s.clock.Now()
		s.setState(StateSampling)
		batch, err := s.sampler.Sample(ctx)
		if err != nil {
			// A signal aimed at the loop usually reaches the tool
			// too, so an error after cancellation is the interrupt.
			if ctx.Err() != nil {
				s.logger.Info("sampling loop interrupted during sampling", "cycles", s.Cycles())
				return nil
			}
			for _, observer := range s.observers {
				observer.CycleFailed(cycle, err)
			}
			if s.policy == FailFast {
				return fmt.Errorf("sampling cycle %d: %w", cycle, err)
			}
			s.logger.Warn("sampling cycle failed", "cycle", cycle, "error", err)
		} else {
			stamp := int64(cycleStart.Sub(runStart) / time.Second)
			s.setState(StateEmitting)
			if err := s.emitter.Write(batch, stamp); err != nil {
				return fmt.Errorf("writing cycle %d: %w", cycle, err)
			}
			s.cycles.Add(1)
			work := clock.Since(s.clock, cycleStart)
			for _, observer := range s.observers {
				observer.CycleCompleted(cycle, stamp, batch, work)
			}
		}

		remaining := s.period - clock.Since(s.clock, cycleStart)
		if remaining <= 0 {
			overrun := -remaining
			s.logger.Warn("sampling cycle overran period",
				"cycle", cycle,
				"overrun", overrun,
				"period", s.period,
			)
			for _, observer := range s.observers {
				observer.Overrun(cycle, overrun)
			}
			continue
		}

		s.setState(StateWaiting)
		timer := s.clock.NewTimer(remaining)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sampling loop interrupted", "cycles", s.Cycles())
			return nil
		}
	}
}

func (s *Scheduler) setState(state State) { s.state.Store(int32(state)) }
