// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package smi

import "context"

// Sampler queries the device tool once per call and parses the result.
type Sampler struct {
	invoker Invoker
	command Command
	parser  *Parser
}

// NewSampler returns a Sampler that runs tool through invoker and
// parses the output with parser.
func NewSampler(invoker Invoker, tool string, parser *Parser) *Sampler {
	return &Sampler{
		invoker: invoker,
		command: QueryCommand(tool, parser.Catalog()),
		parser:  parser,
	}
}

// Command returns the invocation used on every cycle.
func (s *Sampler) Command() Command { return s.command }

// Sample runs one query and returns its batch.
func (s *Sampler) Sample(ctx context.Context) (Batch, error) {
	output, err := s.invoker.Run(ctx, s.command)
	if err != nil {
		return Batch{}, err
	}
	return s.parser.Parse(output)
}
