// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteScript writes an executable /bin/sh script named name into a
// fresh temporary directory and returns its path. The body is placed
// after the shebang line.
//
//	tool := testutil.WriteScript(t, "nvidia-smi", `echo "index [-]"; exit 0`)
func WriteScript(t testing.TB, name, body string) string {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skipf("no /bin/sh: %v", err)
	}
	path := filepath.Join(t.TempDir(), name)
	content := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("writing script %s: %v", path, err)
	}
	return path
}

// CaptureScript returns a WriteScript body that prints capture on
// stdout, terminated by exactly one newline, and exits 0.
func CaptureScript(capture string) string {
	return "cat <<'__CAPTURE__'\n" + strings.TrimSuffix(capture, "\n") + "\n__CAPTURE__"
}
