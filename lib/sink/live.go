// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/gpusampler/lib/smi"
)

// Metrics the live view knows how to summarize.
const (
	metricIndex       = "index"
	metricUtilization = "utilization.gpu"
	metricPowerDraw   = "power.draw"
	metricPowerLimit  = "power.max_limit"
)

// LiveSeparator ends each cycle's block in the live view.
const LiveSeparator = "---"

// LiveOptions configures NewLiveRenderer.
type LiveOptions struct {
	// Precision is the number of decimals shown for power totals.
	Precision int

	// Color enables ANSI styling. Off, the output is plain text.
	Color bool

	// Width truncates each line to this many cells. Zero disables
	// truncation.
	Width int
}

// LiveRenderer prints a per-device summary of each batch:
//
//	0: 45% 120.0/300.00 W
//	1: 3% 31.07/300.00 W
//	Total: 151.07/600.00 W
//	---
//
// Device values are shown as the tool printed them. The total is the
// sum of the numeric power fields rounded to Precision; unavailable
// values are left out of the sum.
type LiveRenderer struct {
	out     io.Writer
	options LiveOptions

	label lipgloss.Style
	total lipgloss.Style
	faint lipgloss.Style
}

// NewLiveRenderer returns a renderer writing to out.
func NewLiveRenderer(out io.Writer, options LiveOptions) *LiveRenderer {
	profile := termenv.Ascii
	if options.Color {
		profile = termenv.ANSI256
	}
	renderer := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)

	return &LiveRenderer{
		out:     out,
		options: options,
		label:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		total:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
		faint:   renderer.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Write renders batch. An empty batch prints nothing.
func (r *LiveRenderer) Write(batch smi.Batch, _ int64) error {
	if batch.Len() == 0 {
		return nil
	}

	catalog := batch.Catalog
	index := catalog.Index(metricIndex)
	utilization := catalog.Index(metricUtilization)
	draw := catalog.Index(metricPowerDraw)
	limit := catalog.Index(metricPowerLimit)
	showPower := draw >= 0 || limit >= 0

	var totalDraw, totalLimit float64
	var block strings.Builder
	for position, record := range batch.Records {
		name := strconv.Itoa(position)
		if index >= 0 {
			name = record.Fields[index].String()
		}
		parts := []string{r.label.Render(name + ":")}
		if utilization >= 0 {
			parts = append(parts, record.Fields[utilization].String()+"%")
		}
		if showPower {
			parts = append(parts, fieldAt(record, draw)+"/"+fieldAt(record, limit)+" W")
			totalDraw += numberAt(record, draw)
			totalLimit += numberAt(record, limit)
		}
		r.writeLine(&block, strings.Join(parts, " "))
	}
	if showPower {
		r.writeLine(&block, r.total.Render("Total:")+" "+
			r.round(totalDraw)+"/"+r.round(totalLimit)+" W")
	}
	r.writeLine(&block, r.faint.Render(LiveSeparator))

	if _, err := io.WriteString(r.out, block.String()); err != nil {
		return fmt.Errorf("writing live view: %w", err)
	}
	return nil
}

// Close is a no-op; the renderer does not own its writer.
func (r *LiveRenderer) Close() error { return nil }

func (r *LiveRenderer) writeLine(block *strings.Builder, line string) {
	if r.options.Width > 0 {
		line = ansi.Truncate(line, r.options.Width, "…")
	}
	block.WriteString(line)
	block.WriteByte('\n')
}

func (r *LiveRenderer) round(value float64) string {
	return strconv.FormatFloat(value, 'f', r.options.Precision, 64)
}

func fieldAt(record smi.Record, position int) string {
	if position < 0 {
		return smi.SentinelToken
	}
	return record.Fields[position].String()
}

func numberAt(record smi.Record, position int) float64 {
	if position < 0 {
		return 0
	}
	value, _ := record.Fields[position].Number()
	return value
}
