// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sampledb mirrors sampled batches into a SQLite database so
// they can be queried with SQL while the CSV log stays the durable
// record.
//
// Each process run inserts one row into runs. Every field of every
// record becomes one row of samples, keyed by run, write sequence,
// entity position, and metric. Numeric fields keep both the magnitude
// (value_real) and the printed literal (value_text); unavailable fields
// store NULL in both.
package sampledb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/bureau-foundation/gpusampler/lib/smi"
	"github.com/bureau-foundation/gpusampler/lib/sqlitepool"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY,
	started_at  INTEGER NOT NULL,
	tool        TEXT NOT NULL,
	catalog     TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	period_ns   INTEGER NOT NULL,
	host        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS samples (
	run_id     INTEGER NOT NULL,
	sequence   INTEGER NOT NULL,
	stamp      INTEGER NOT NULL,
	entity     INTEGER NOT NULL,
	metric     TEXT NOT NULL,
	kind       TEXT NOT NULL,
	value_real REAL,
	value_text TEXT,
	PRIMARY KEY (run_id, sequence, entity, metric)
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS samples_metric ON samples (run_id, metric, stamp);
`

// Run describes the process run the mirror records.
type Run struct {
	StartedAt time.Time
	Tool      string
	Catalog   smi.Catalog
	Period    time.Duration
	Host      string
}

// Config holds the parameters for Open.
type Config struct {
	Path   string
	Run    Run
	Logger *slog.Logger
}

// Store is an open mirror for one run. Write is called from the
// sampling loop only.
type Store struct {
	pool     *sqlitepool.Pool
	logger   *slog.Logger
	catalog  smi.Catalog
	runID    int64
	sequence int64
}

// Open creates the schema if needed and registers a new run.
func Open(ctx context.Context, config Config) (*Store, error) {
	if config.Run.Catalog.IsZero() {
		return nil, fmt.Errorf("sample db: run catalog is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   config.Path,
		Logger: logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, schema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sample db: %w", err)
	}

	store := &Store{pool: pool, logger: logger, catalog: config.Run.Catalog}
	if err := store.insertRun(ctx, config.Run); err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("sample db opened", "path", config.Path, "run", store.runID)
	return store, nil
}

func (s *Store) insertRun(ctx context.Context, run Run) error {
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return s.registerRun(conn, run)
	})
	if err != nil {
		return fmt.Errorf("sample db: %w", err)
	}
	return nil
}

func (s *Store) registerRun(conn *sqlite.Conn, run Run) error {
	err := sqlitex.Execute(conn, `INSERT INTO runs
		(started_at, tool, catalog, fingerprint, period_ns, host)
		VALUES (?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			run.StartedAt.UnixNano(),
			run.Tool,
			run.Catalog.QueryArgument(),
			run.Catalog.Fingerprint(),
			int64(run.Period),
			run.Host,
		},
	})
	if err != nil {
		return fmt.Errorf("registering run: %w", err)
	}
	s.runID = conn.LastInsertRowID()
	return nil
}

// RunID returns the row id of this run.
func (s *Store) RunID() int64 { return s.runID }

// Write inserts every field of batch in one IMMEDIATE transaction.
func (s *Store) Write(batch smi.Batch, stamp int64) error {
	if batch.Len() == 0 {
		return nil
	}
	sequence := s.sequence + 1
	err := s.pool.With(context.Background(), func(conn *sqlite.Conn) (err error) {
		endTransaction, err := sqlitex.ImmediateTransaction(conn)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer endTransaction(&err)

		for entity, record := range batch.Records {
			for position, field := range record.Fields {
				if err := s.insertField(conn, sequence, stamp, entity, s.catalog.Name(position), field); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sample db: %w", err)
	}
	s.sequence = sequence
	return nil
}

func (s *Store) insertField(conn *sqlite.Conn, sequence, stamp int64, entity int, metric string, field smi.Field) error {
	var magnitude, literal any
	switch field.Kind() {
	case smi.KindNumeric:
		magnitude, _ = field.Number()
		literal = field.String()
	case smi.KindCategorical:
		literal = field.String()
	}
	err := sqlitex.Execute(conn, `INSERT INTO samples
		(run_id, sequence, stamp, entity, metric, kind, value_real, value_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{s.runID, sequence, stamp, entity, metric, field.Kind().String(), magnitude, literal},
	})
	if err != nil {
		return fmt.Errorf("inserting %s for entity %d: %w", metric, entity, err)
	}
	return nil
}

// Sample is one stored field.
type Sample struct {
	Sequence int64
	Stamp    int64
	Entity   int
	Metric   string
	Field    smi.Field
}

// Samples returns the stored fields of runID ordered by sequence,
// entity, then catalog position.
func (s *Store) Samples(ctx context.Context, runID int64) ([]Sample, error) {
	var samples []Sample
	err := s.pool.With(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT sequence, stamp, entity, metric, kind, value_text
			FROM samples WHERE run_id = ? ORDER BY sequence, entity`, &sqlitex.ExecOptions{
			Args: []any{runID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				field, err := decodeField(stmt.ColumnText(4), stmt.ColumnText(5))
				if err != nil {
					return err
				}
				samples = append(samples, Sample{
					Sequence: stmt.ColumnInt64(0),
					Stamp:    stmt.ColumnInt64(1),
					Entity:   stmt.ColumnInt(2),
					Metric:   stmt.ColumnText(3),
					Field:    field,
				})
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("sample db: reading run %d: %w", runID, err)
	}

	// Restore catalog order within each entity.
	sort.SliceStable(samples, func(i, j int) bool {
		a, b := samples[i], samples[j]
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		if a.Entity != b.Entity {
			return a.Entity < b.Entity
		}
		return s.catalog.Index(a.Metric) < s.catalog.Index(b.Metric)
	})
	return samples, nil
}

func decodeField(kind, text string) (smi.Field, error) {
	switch kind {
	case smi.KindNumeric.String():
		return smi.NumericLiteral(text)
	case smi.KindCategorical.String():
		return smi.Categorical(text), nil
	case smi.KindUnavailable.String():
		return smi.Unavailable(), nil
	default:
		return smi.Field{}, fmt.Errorf("unknown field kind %q", kind)
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}
