// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/gpusampler/lib/smi"
)

// Writer consumes batches. Write must not retain batch.
type Writer interface {
	Write(batch smi.Batch, stamp int64) error
	Close() error
}

var (
	_ Writer = (*CSVLog)(nil)
	_ Writer = (*LiveRenderer)(nil)
	_ Writer = (*Fanout)(nil)
)

type secondary struct {
	name     string
	writer   Writer
	failures uint64
}

// Fanout writes each batch to a primary writer and then to secondary
// writers in the order they were added.
type Fanout struct {
	primary     Writer
	secondaries []*secondary
	logger      *slog.Logger
}

// NewFanout returns a Fanout around primary. A nil logger discards.
func NewFanout(primary Writer, logger *slog.Logger) *Fanout {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fanout{primary: primary, logger: logger}
}

// Add registers a secondary writer. Its failures are logged and
// counted but never stop the loop.
func (f *Fanout) Add(name string, writer Writer) {
	f.secondaries = append(f.secondaries, &secondary{name: name, writer: writer})
}

// Write commits batch to the primary writer, then offers it to each
// secondary. Only a primary failure is returned.
func (f *Fanout) Write(batch smi.Batch, stamp int64) error {
	if err := f.primary.Write(batch, stamp); err != nil {
		return err
	}
	for _, s := range f.secondaries {
		if err := s.writer.Write(batch, stamp); err != nil {
			s.failures++
			f.logger.Warn("secondary sink write failed",
				"sink", s.name,
				"stamp", stamp,
				"failures", s.failures,
				"error", err,
			)
		}
	}
	return nil
}

// Failures returns how many writes the named secondary has failed.
func (f *Fanout) Failures(name string) uint64 {
	for _, s := range f.secondaries {
		if s.name == name {
			return s.failures
		}
	}
	return 0
}

// Close closes secondaries in reverse order, then the primary.
func (f *Fanout) Close() error {
	var errs []error
	for i := len(f.secondaries) - 1; i >= 0; i-- {
		s := f.secondaries[i]
		if err := s.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", s.name, err))
		}
	}
	if err := f.primary.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
