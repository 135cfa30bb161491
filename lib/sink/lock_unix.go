// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build unix

package sink

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockExclusive takes a non-blocking advisory lock on file. The lock is
// held by the open file description, so a second open of the same path
// in this process conflicts too.
func lockExclusive(file *os.File) (func() error, error) {
	fd := int(file.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", file.Name(), ErrLocked)
		}
		return nil, fmt.Errorf("locking %s: %w", file.Name(), err)
	}
	return func() error { return unix.Flock(fd, unix.LOCK_UN) }, nil
}
