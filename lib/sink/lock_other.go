// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package sink

import "os"

func lockExclusive(*os.File) (func() error, error) {
	return func() error { return nil }, nil
}
