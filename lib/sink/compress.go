// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects how the CSV log is encoded on disk.
type Compression uint8

const (
	// CompressionNone writes plain text.
	CompressionNone Compression = iota

	// CompressionZstd writes a zstd stream. Each cycle ends a zstd
	// block, so a truncated file still decodes up to the last
	// completed cycle.
	CompressionZstd

	// CompressionLZ4 writes an LZ4 frame, flushed per cycle.
	CompressionLZ4
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Extension returns the conventional file suffix, or "" for none.
func (c Compression) Extension() string {
	switch c {
	case CompressionZstd:
		return ".zst"
	case CompressionLZ4:
		return ".lz4"
	default:
		return ""
	}
}

// ParseCompression parses "none", "zstd", or "lz4". The empty string
// means none.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q (want none, zstd, or lz4)", name)
	}
}

// streamEncoder is the common surface of the zstd and lz4 writers.
type streamEncoder interface {
	io.Writer
	Flush() error
	Close() error
}

func newStreamEncoder(compression Compression, destination io.Writer) (streamEncoder, error) {
	switch compression {
	case CompressionZstd:
		encoder, err := zstd.NewWriter(destination, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		return encoder, nil
	case CompressionLZ4:
		return lz4.NewWriter(destination), nil
	case CompressionNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", compression)
	}
}
