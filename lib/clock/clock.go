// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the subset of the time package the sampler depends on.
type Clock interface {
	// Now returns the current time. Real clocks carry a monotonic
	// reading, so differences between two Now values are immune to
	// wall clock steps.
	Now() time.Time

	// NewTimer returns a Timer that fires once after d. A
	// non-positive d fires immediately. Stopping the Timer releases it
	// before it fires.
	NewTimer(d time.Duration) *Timer
}

// Timer is a single pending event. Receive from C to wait for it.
type Timer struct {
	C <-chan time.Time

	stop func() bool
}

// Stop cancels the timer. It reports whether the timer was still
// pending. Stop does not close C.
func (t *Timer) Stop() bool { return t.stop() }

// Since returns the time elapsed on c since start.
func Since(c Clock, start time.Time) time.Duration {
	return c.Now().Sub(start)
}
