// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens SQLite databases with the pragmas every
// local store in this module expects.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Callers [Pool.Take]
// a connection, do their work, and [Pool.Put] it back. A connection is
// not safe for concurrent use.
//
// Every connection is prepared with:
//
//   - journal_mode=WAL, so a reader (a status query, an analyst with
//     the sqlite3 shell) never blocks the sampler's writes.
//   - synchronous=NORMAL. Commits survive a process crash. The CSV log
//     is the durable record; the database is a queryable mirror.
//   - busy_timeout=5000, to ride out a reader holding a lock.
//   - temp_store=MEMORY and a modest page cache.
//
// Schema setup belongs in Config.OnConnect, which runs once per
// connection after the pragmas. Writers should group related inserts
// with sqlitex.ImmediateTransaction so the write lock is taken up
// front.
package sqlitepool
