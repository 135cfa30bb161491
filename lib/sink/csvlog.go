// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/bureau-foundation/gpusampler/lib/smi"
)

// ErrLocked is returned when another writer holds the log.
var ErrLocked = errors.New("output log is locked by another writer")

// CSVOptions configures CreateCSVLog.
type CSVOptions struct {
	Compression Compression

	// Lock takes an exclusive advisory lock on the file before
	// truncating it, so two samplers cannot interleave into one log.
	Lock bool
}

// CSVLog is the durable time-series log. It owns its file handle from
// CreateCSVLog until Close.
type CSVLog struct {
	path        string
	catalog     smi.Catalog
	compression Compression

	file    *os.File
	buffer  *bufio.Writer
	encoder streamEncoder // nil for plain text
	out     io.Writer     // encoder when set, otherwise buffer
	unlock  func() error

	line   []byte
	lines  uint64
	closed bool
}

// CreateCSVLog creates or truncates path and writes the catalog header.
// The header is on disk when CreateCSVLog returns.
func CreateCSVLog(path string, catalog smi.Catalog, options CSVOptions) (*CSVLog, error) {
	if catalog.IsZero() {
		return nil, fmt.Errorf("creating %s: empty catalog", path)
	}

	// Open without O_TRUNC: the file is only truncated once the lock
	// is ours, so a refused second writer leaves the first one's data
	// intact.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening output log: %w", err)
	}

	unlock := func() error { return nil }
	if options.Lock {
		unlock, err = lockExclusive(file)
		if err != nil {
			file.Close()
			return nil, err
		}
	}

	if err := file.Truncate(0); err != nil {
		unlock()
		file.Close()
		return nil, fmt.Errorf("truncating %s: %w", path, err)
	}

	log := &CSVLog{
		path:        path,
		catalog:     catalog,
		compression: options.Compression,
		file:        file,
		buffer:      bufio.NewWriter(file),
		unlock:      unlock,
	}
	log.encoder, err = newStreamEncoder(options.Compression, log.buffer)
	if err != nil {
		unlock()
		file.Close()
		return nil, err
	}
	log.out = log.buffer
	if log.encoder != nil {
		log.out = log.encoder
	}

	if _, err := io.WriteString(log.out, catalog.Header()+"\n"); err != nil {
		log.Close()
		return nil, fmt.Errorf("writing header to %s: %w", path, err)
	}
	if err := log.commit(); err != nil {
		log.Close()
		return nil, err
	}
	return log, nil
}

// Path returns the file the log writes to.
func (l *CSVLog) Path() string { return l.path }

// Lines returns how many data lines have been committed.
func (l *CSVLog) Lines() uint64 { return l.lines }

// Write appends one line per record, each prefixed with stamp, and
// commits them to disk before returning. A batch with a record of the
// wrong width is rejected whole.
func (l *CSVLog) Write(batch smi.Batch, stamp int64) error {
	if l.closed {
		return fmt.Errorf("writing to closed log %s", l.path)
	}
	if batch.Len() == 0 {
		return nil
	}

	width := l.catalog.Len()
	for i, record := range batch.Records {
		if len(record.Fields) != width {
			return fmt.Errorf("record %d has %d fields, log has %d columns", i, len(record.Fields), width)
		}
	}
	for _, record := range batch.Records {
		l.line = strconv.AppendInt(l.line[:0], stamp, 10)
		for _, field := range record.Fields {
			l.line = append(l.line, ',')
			l.line = append(l.line, field.String()...)
		}
		l.line = append(l.line, '\n')
		if _, err := l.out.Write(l.line); err != nil {
			return fmt.Errorf("appending to %s: %w", l.path, err)
		}
	}
	if err := l.commit(); err != nil {
		return err
	}
	l.lines += uint64(batch.Len())
	return nil
}

// commit pushes buffered bytes through the encoder and the buffer to
// the kernel, then to stable storage.
func (l *CSVLog) commit() error {
	if l.encoder != nil {
		if err := l.encoder.Flush(); err != nil {
			return fmt.Errorf("flushing %s encoder for %s: %w", l.compression, l.path, err)
		}
	}
	if err := l.buffer.Flush(); err != nil {
		return fmt.Errorf("flushing %s: %w", l.path, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("syncing %s: %w", l.path, err)
	}
	return nil
}

// Close finishes any compressed stream, syncs, releases the lock, and
// closes the file. Safe to call more than once.
func (l *CSVLog) Close() error {
	if l.closed {
		return nil
	}
	l.closed = true

	var errs []error
	if l.encoder != nil {
		if err := l.encoder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("finishing compressed stream: %w", err))
		}
	}
	if err := l.buffer.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("flushing %s: %w", l.path, err))
	}
	if err := l.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("syncing %s: %w", l.path, err))
	}
	if err := l.unlock(); err != nil {
		errs = append(errs, fmt.Errorf("unlocking %s: %w", l.path, err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing %s: %w", l.path, err))
	}
	return errors.Join(errs...)
}
