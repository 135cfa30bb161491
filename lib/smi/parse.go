// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package smi

import (
	"fmt"
	"strings"
)

// defaultSentinels are the spellings nvidia-smi uses for a value it
// cannot report. Comparison is on the normalized form.
var defaultSentinels = []string{"n/a", "not supported"}

// Parser classifies raw captures against a fixed catalog.
type Parser struct {
	catalog   Catalog
	sentinels map[string]struct{}
}

// NewParser returns a parser for catalog. extraSentinels adds spellings
// that are treated as unavailable in addition to "N/A" and
// "[Not Supported]".
func NewParser(catalog Catalog, extraSentinels ...string) *Parser {
	sentinels := make(map[string]struct{}, len(defaultSentinels)+len(extraSentinels))
	for _, sentinel := range defaultSentinels {
		sentinels[sentinel] = struct{}{}
	}
	for _, sentinel := range extraSentinels {
		if normalized := normalizeSentinel(sentinel); normalized != "" {
			sentinels[normalized] = struct{}{}
		}
	}
	return &Parser{catalog: catalog, sentinels: sentinels}
}

// Catalog returns the catalog the parser checks captures against.
func (p *Parser) Catalog() Catalog { return p.catalog }

// Parse converts one capture into a batch. A capture holding only the
// header yields an empty batch.
func (p *Parser) Parse(capture []byte) (Batch, error) {
	lines := strings.Split(string(capture), "\n")
	if last := len(lines) - 1; last >= 0 && strings.TrimRight(lines[last], "\r") == "" {
		lines = lines[:last]
	}
	if len(lines) == 0 {
		return Batch{}, &MalformedCaptureError{Reason: "no header line"}
	}

	width := p.catalog.Len()
	header := strings.TrimRight(lines[0], "\r")
	if strings.TrimSpace(header) == "" {
		return Batch{}, &MalformedCaptureError{Line: 1, Reason: "empty header line"}
	}
	columns := strings.Split(header, ",")
	if len(columns) != width {
		return Batch{}, &MalformedCaptureError{
			Line:   1,
			Reason: fmt.Sprintf("header has %d columns, catalog has %d metrics", len(columns), width),
		}
	}
	numeric := make([]bool, width)
	for i, column := range columns {
		numeric[i] = hasUnitAnnotation(column)
	}

	batch := Batch{Catalog: p.catalog, Records: make([]Record, 0, len(lines)-1)}
	for index, line := range lines[1:] {
		lineNumber := index + 2
		cells := strings.Split(strings.TrimRight(line, "\r"), ",")
		if len(cells) != width {
			return Batch{}, &MalformedCaptureError{
				Line:   lineNumber,
				Reason: fmt.Sprintf("%d fields, catalog has %d metrics", len(cells), width),
			}
		}

		record := Record{Fields: make([]Field, width)}
		for i, cell := range cells {
			field, err := p.classify(cell, numeric[i])
			if err != nil {
				return Batch{}, &MalformedCaptureError{
					Line:   lineNumber,
					Metric: p.catalog.Name(i),
					Reason: err.Error(),
				}
			}
			record.Fields[i] = field
		}
		batch.Records = append(batch.Records, record)
	}
	return batch, nil
}

// Parse is shorthand for NewParser(catalog).Parse(capture).
func Parse(catalog Catalog, capture []byte) (Batch, error) {
	return NewParser(catalog).Parse(capture)
}

func (p *Parser) classify(cell string, numeric bool) (Field, error) {
	if p.isSentinel(cell) {
		return Unavailable(), nil
	}
	if !numeric {
		return Categorical(strings.TrimSpace(cell)), nil
	}
	digits := stripToNumber(cell)
	if strings.IndexFunc(digits, isDigit) < 0 {
		return Field{}, fmt.Errorf("no digits in %q", strings.TrimSpace(cell))
	}
	field, err := NumericLiteral(digits)
	if err != nil {
		return Field{}, fmt.Errorf("unparseable number %q", strings.TrimSpace(cell))
	}
	return field, nil
}

func (p *Parser) isSentinel(cell string) bool {
	_, ok := p.sentinels[normalizeSentinel(cell)]
	return ok
}

// normalizeSentinel folds case, trims padding, and removes one level of
// surrounding brackets, so " [Not Supported] " matches "not supported".
func normalizeSentinel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// hasUnitAnnotation reports whether a header token ends in a bracketed
// unit, as in "power.draw [W]".
func hasUnitAnnotation(column string) bool {
	open := strings.IndexByte(column, '[')
	return open >= 0 && strings.IndexByte(column[open:], ']') > 0
}

// stripToNumber drops every character that is not a digit or '.'.
func stripToNumber(cell string) string {
	return strings.Map(func(r rune) rune {
		if isDigit(r) || r == '.' {
			return r
		}
		return -1
	}, cell)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
