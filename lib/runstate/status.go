// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package runstate

import (
	"encoding/json"
	"time"
)

// Status is the JSON view of a State served on /status and printed by
// the status command.
type Status struct {
	Tool        string    `json:"tool"`
	Catalog     []string  `json:"catalog"`
	Fingerprint string    `json:"fingerprint"`
	Output      string    `json:"output"`
	Period      string    `json:"period"`
	PID         int       `json:"pid"`
	Host        string    `json:"host,omitempty"`
	Platform    string    `json:"platform,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Cycles      uint64    `json:"cycles"`
	Failures    uint64    `json:"failures"`
	LastStamp   int64     `json:"last_stamp"`
	Entities    int       `json:"entities"`
	Overruns    uint64    `json:"overruns"`
	MaxOverrun  string    `json:"max_overrun"`
	Stopped     bool      `json:"stopped"`
	StopReason  string    `json:"stop_reason,omitempty"`
}

// Status converts the state to its JSON view.
func (s State) Status() Status {
	return Status{
		Tool:        s.Tool,
		Catalog:     s.Catalog,
		Fingerprint: s.Fingerprint,
		Output:      s.Output,
		Period:      s.Period.String(),
		PID:         s.PID,
		Host:        s.Host,
		Platform:    s.Platform,
		StartedAt:   s.StartedAt,
		UpdatedAt:   s.UpdatedAt,
		Cycles:      s.Cycles,
		Failures:    s.Failures,
		LastStamp:   s.LastStamp,
		Entities:    s.Entities,
		Overruns:    s.Overruns,
		MaxOverrun:  s.MaxOver.String(),
		Stopped:     s.Stopped,
		StopReason:  s.StopReason,
	}
}

// StatusJSON returns the tracker's current state as indented JSON.
func (t *Tracker) StatusJSON() ([]byte, error) {
	return json.MarshalIndent(t.Snapshot().Status(), "", "  ")
}
