// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package smi

import (
	"fmt"
	"strconv"
)

// SentinelToken is how an Unavailable field is written to the log.
const SentinelToken = "NA"

// Kind identifies which variant a Field holds.
type Kind uint8

const (
	// KindUnavailable marks a value the tool reported as absent. It is
	// the zero Kind, so a zero Field is Unavailable rather than 0.
	KindUnavailable Kind = iota

	// KindNumeric is a magnitude from a unit-annotated column.
	KindNumeric

	// KindCategorical is free text from a column without a unit.
	KindCategorical
)

func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Field is one typed cell of a capture.
type Field struct {
	kind   Kind
	number float64

	// text is the trimmed value for categorical fields and the digits
	// the tool printed for numeric fields. Keeping the literal means
	// "120.0" is logged as 120.0 and not reformatted to 120.
	text string
}

// Unavailable returns the absent-value field.
func Unavailable() Field { return Field{} }

// Numeric returns a numeric field for v.
func Numeric(v float64) Field {
	return Field{kind: KindNumeric, number: v}
}

// NumericLiteral parses literal, which must contain only digits and at
// most one '.', and keeps it for serialization.
func NumericLiteral(literal string) (Field, error) {
	value, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return Field{}, err
	}
	return Field{kind: KindNumeric, number: value, text: literal}, nil
}

// Categorical returns a categorical field holding s as given.
func Categorical(s string) Field {
	return Field{kind: KindCategorical, text: s}
}

// Kind returns the variant.
func (f Field) Kind() Kind { return f.kind }

// Number returns the magnitude of a numeric field.
func (f Field) Number() (float64, bool) {
	if f.kind != KindNumeric {
		return 0, false
	}
	return f.number, true
}

// Text returns the value of a categorical field.
func (f Field) Text() (string, bool) {
	if f.kind != KindCategorical {
		return "", false
	}
	return f.text, true
}

// String returns the log representation of the field.
func (f Field) String() string {
	switch f.kind {
	case KindNumeric:
		if f.text != "" {
			return f.text
		}
		return strconv.FormatFloat(f.number, 'f', -1, 64)
	case KindCategorical:
		return f.text
	case KindUnavailable:
		return SentinelToken
	default:
		panic(fmt.Sprintf("smi: unknown field kind %d", f.kind))
	}
}

// Equal reports whether two fields have the same variant and value.
// Numeric fields compare by magnitude, not by literal.
func (f Field) Equal(other Field) bool {
	if f.kind != other.kind {
		return false
	}
	switch f.kind {
	case KindNumeric:
		return f.number == other.number
	case KindCategorical:
		return f.text == other.text
	default:
		return true
	}
}

// Record is the fields of one entity, in catalog order.
type Record struct {
	Fields []Field
}

// Batch is every record from one invocation, in the order the tool
// listed the entities.
type Batch struct {
	Catalog Catalog
	Records []Record
}

// Len returns the number of records.
func (b Batch) Len() int { return len(b.Records) }

// Field returns the value of metric for record i. The boolean is false
// when the catalog does not contain metric.
func (b Batch) Field(i int, metric string) (Field, bool) {
	position := b.Catalog.Index(metric)
	if position < 0 {
		return Field{}, false
	}
	return b.Records[i].Fields[position], true
}
