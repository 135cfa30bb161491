// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/gpusampler/lib/smi"
)

type fakeWriter struct {
	name    string
	err     error
	writes  int
	closed  bool
	journal *[]string
}

func (w *fakeWriter) Write(smi.Batch, int64) error {
	w.writes++
	*w.journal = append(*w.journal, "write "+w.name)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	*w.journal = append(*w.journal, "close "+w.name)
	return nil
}

func TestFanoutOrderAndIsolation(t *testing.T) {
	var journal []string
	primary := &fakeWriter{name: "log", journal: &journal}
	mirror := &fakeWriter{name: "sqlite", err: errors.New("database is locked"), journal: &journal}
	live := &fakeWriter{name: "live", journal: &journal}

	fanout := NewFanout(primary, nil)
	fanout.Add("sqlite", mirror)
	fanout.Add("live", live)

	for i := 0; i < 2; i++ {
		if err := fanout.Write(smi.Batch{}, int64(i)); err != nil {
			t.Fatalf("Write returned secondary failure: %v", err)
		}
	}
	if fanout.Failures("sqlite") != 2 || fanout.Failures("live") != 0 {
		t.Errorf("failures sqlite=%d live=%d", fanout.Failures("sqlite"), fanout.Failures("live"))
	}
	if live.writes != 2 {
		t.Errorf("live writes = %d, a failing secondary blocked later ones", live.writes)
	}

	if err := fanout.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	want := []string{
		"write log", "write sqlite", "write live",
		"write log", "write sqlite", "write live",
		"close live", "close sqlite", "close log",
	}
	if len(journal) != len(want) {
		t.Fatalf("journal = %v", journal)
	}
	for i := range want {
		if journal[i] != want[i] {
			t.Errorf("journal[%d] = %q, want %q", i, journal[i], want[i])
		}
	}
}

func TestFanoutPrimaryFailureStops(t *testing.T) {
	var journal []string
	primary := &fakeWriter{name: "log", err: errors.New("no space left on device"), journal: &journal}
	live := &fakeWriter{name: "live", journal: &journal}
	fanout := NewFanout(primary, nil)
	fanout.Add("live", live)

	if err := fanout.Write(smi.Batch{}, 0); err == nil {
		t.Fatal("primary failure was swallowed")
	}
	if live.writes != 0 {
		t.Error("secondary written after primary failure")
	}
}
