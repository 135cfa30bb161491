// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sqlitepool_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/gpusampler/lib/sqlitepool"
)

func openTestPool(t *testing.T, poolSize int, onConnect func(*sqlite.Conn) error) *sqlitepool.Pool {
	t.Helper()
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:      filepath.Join(t.TempDir(), "samples.db"),
		PoolSize:  poolSize,
		OnConnect: onConnect,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := pool.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return pool
}

func pragmaText(t *testing.T, conn *sqlite.Conn, pragma string) string {
	t.Helper()
	var value string
	err := sqlitex.Execute(conn, "PRAGMA "+pragma, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			value = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("PRAGMA %s: %v", pragma, err)
	}
	return value
}

func TestPragmasApplied(t *testing.T) {
	pool := openTestPool(t, 1, nil)
	conn, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(conn)

	checks := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"temp_store":   "2",
	}
	for pragma, want := range checks {
		if got := pragmaText(t, conn, pragma); got != want {
			t.Errorf("%s = %q, want %q", pragma, got, want)
		}
	}
}

func TestOnConnectCreatesSchema(t *testing.T) {
	calls := 0
	pool := openTestPool(t, 1, func(conn *sqlite.Conn) error {
		calls++
		return sqlitex.ExecuteScript(conn, `CREATE TABLE IF NOT EXISTS readings (value REAL);`, nil)
	})

	for i := 0; i < 3; i++ {
		conn, err := pool.Take(context.Background())
		if err != nil {
			t.Fatalf("Take: %v", err)
		}
		if err := sqlitex.Execute(conn, "INSERT INTO readings (value) VALUES (?)", &sqlitex.ExecOptions{
			Args: []any{float64(i)},
		}); err != nil {
			t.Fatalf("INSERT: %v", err)
		}
		pool.Put(conn)
	}
	if calls != 1 {
		t.Errorf("OnConnect ran %d times for one connection, want 1", calls)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := sqlitepool.Open(sqlitepool.Config{}); err == nil {
		t.Fatal("Open accepted an empty Path")
	}
}

func TestTakeHonorsContext(t *testing.T) {
	pool := openTestPool(t, 1, nil)
	held, err := pool.Take(context.Background())
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	defer pool.Put(held)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pool.Take(ctx); err == nil {
		t.Fatal("Take succeeded with an exhausted pool and a cancelled context")
	}
}

func TestWithReturnsConnection(t *testing.T) {
	pool := openTestPool(t, 1, nil)

	wantErr := errors.New("insert failed")
	err := pool.With(context.Background(), func(conn *sqlite.Conn) error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("With() error = %v, want %v", err, wantErr)
	}

	// A pool of one only hands out a second connection if the first
	// came back.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.ExecuteTransient(conn, "SELECT 1", nil)
	})
	if err != nil {
		t.Fatalf("second With() error: %v", err)
	}
}
