//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of SeqPrep.
//
// SeqPrep is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SeqPrep is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with SeqPrep. If not, see https://www.gnu.org/licenses/.

package preprocessor

import (
	"context"
	"fmt"
	"strings"

	"github.com/aaronlmathis/seqprep/fasta"
)

// Chunker splits a sequence file into chunk files and returns their paths in
// order.
type Chunker interface {
	Chunk(ctx context.Context, input string, chunkSize int, outDir string) ([]string, error)
}

// ExternalChunker runs a chunking tool invoked as
// "<command> <logLevel> <chunkSize> 0 <outDir> <input>", which prints one
// chunk path per line.
type ExternalChunker struct {
	Command  string
	LogLevel string
	Runner   Runner
}

// Chunk implements Chunker.
func (c *ExternalChunker) Chunk(ctx context.Context, input string, chunkSize int, outDir string) ([]string, error) {
	level := c.LogLevel
	if level == "" {
		level = "INFO"
	}
	line := fmt.Sprintf("%s %s %d 0 %s %s", c.Command, level, chunkSize, quote(outDir), quote(input))
	out, err := c.Runner.Run(ctx, Invocation{Command: line})
	if err != nil {
		return nil, err
	}

	var chunks []string
	for _, l := range strings.Split(string(out), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			chunks = append(chunks, l)
		}
	}
	return chunks, nil
}

// NativeChunker chunks in-process with the fasta package.
type NativeChunker struct{}

// Chunk implements Chunker.
func (NativeChunker) Chunk(ctx context.Context, input string, chunkSize int, outDir string) ([]string, error) {
	return fasta.ChunkFile(ctx, input, fasta.ChunkOptions{ChunkSize: chunkSize, OutDir: outDir})
}
