// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the time source used by the sampling loop.
//
// The scheduler never calls time.Now or time.NewTimer directly. It takes a
// Clock, which is Real() in the binary and Fake() in tests. The fake
// clock only moves when a test calls Advance, so cycle stamps, sleep
// durations, and overrun magnitudes can be asserted exactly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go scheduler.Run(ctx)
//	c.WaitForTimers(1)          // the loop is now sleeping
//	c.Advance(5 * time.Second)  // wake it for the next cycle
//
// WaitForTimers closes the race between the loop registering its sleep
// and the test advancing time.
package clock
