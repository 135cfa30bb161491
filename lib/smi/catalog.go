// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package smi

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// TimestampColumn is the first column of every output log line.
const TimestampColumn = "timestamp"

// Catalog is the ordered list of metric identifiers sampled on every
// cycle. A Catalog is immutable once built; the same order is used to
// query the tool, to parse its output, and to write the log.
type Catalog struct {
	names []string
}

// defaultMetrics is the query set a bare invocation samples.
var defaultMetrics = []string{
	"index",
	"gpu_name",
	"utilization.gpu",
	"temperature.gpu",
	"pstate",
	"clocks.current.graphics",
	"clocks.current.sm",
	"clocks.current.memory",
	"clocks.current.video",
	"utilization.memory",
	"memory.used",
	"memory.free",
	"memory.total",
	"power.draw",
	"power.max_limit",
	"fan.speed",
}

// DefaultCatalog returns the catalog used when no query is configured.
func DefaultCatalog() Catalog {
	return Catalog{names: append([]string(nil), defaultMetrics...)}
}

// NewCatalog builds a catalog from metric identifiers. Identifiers are
// trimmed; an empty list, an empty or duplicate identifier, or one that
// contains a comma is rejected.
func NewCatalog(names ...string) (Catalog, error) {
	if len(names) == 0 {
		return Catalog{}, fmt.Errorf("catalog is empty")
	}
	seen := make(map[string]struct{}, len(names))
	cleaned := make([]string, 0, len(names))
	for position, name := range names {
		name = strings.TrimSpace(name)
		switch {
		case name == "":
			return Catalog{}, fmt.Errorf("catalog entry %d is empty", position)
		case strings.ContainsAny(name, ",\n\r"):
			return Catalog{}, fmt.Errorf("catalog entry %q contains a separator", name)
		case name == TimestampColumn:
			return Catalog{}, fmt.Errorf("catalog entry %q collides with the timestamp column", name)
		}
		if _, duplicate := seen[name]; duplicate {
			return Catalog{}, fmt.Errorf("catalog entry %q is listed twice", name)
		}
		seen[name] = struct{}{}
		cleaned = append(cleaned, name)
	}
	return Catalog{names: cleaned}, nil
}

// ParseCatalog builds a catalog from a comma-separated list such as
// "utilization.gpu,power.draw".
func ParseCatalog(list string) (Catalog, error) {
	return NewCatalog(strings.Split(list, ",")...)
}

// Len returns the number of metrics.
func (c Catalog) Len() int { return len(c.names) }

// IsZero reports whether the catalog was never built.
func (c Catalog) IsZero() bool { return len(c.names) == 0 }

// Names returns a copy of the metric identifiers in order.
func (c Catalog) Names() []string { return append([]string(nil), c.names...) }

// Name returns the identifier at position i.
func (c Catalog) Name(i int) string { return c.names[i] }

// Index returns the position of name, or -1 when the catalog does not
// contain it.
func (c Catalog) Index(name string) int {
	for i, candidate := range c.names {
		if candidate == name {
			return i
		}
	}
	return -1
}

// QueryArgument returns the identifiers joined for --query-gpu.
func (c Catalog) QueryArgument() string { return strings.Join(c.names, ",") }

// Header returns the output log header line without a trailing
// newline: "timestamp,<metric_1>,...,<metric_n>".
func (c Catalog) Header() string {
	return TimestampColumn + "," + c.QueryArgument()
}

// String implements fmt.Stringer.
func (c Catalog) String() string { return c.QueryArgument() }

var fingerprintKey = [32]byte{
	'g', 'p', 'u', 's', 'a', 'm', 'p', 'l', 'e', 'r', '.',
	'c', 'a', 't', 'a', 'l', 'o', 'g',
}

// Fingerprint returns a stable hex digest of the catalog order. Two
// runs whose logs have the same column layout share a fingerprint.
func (c Catalog) Fingerprint() string {
	hasher, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		// Only returned for keys that are not 32 bytes.
		panic("smi: blake3 keyed hasher: " + err.Error())
	}
	for _, name := range c.names {
		hasher.Write([]byte(name))
		hasher.Write([]byte{'\n'})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
