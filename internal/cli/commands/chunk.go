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

package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aaronlmathis/seqprep/fasta"
	"github.com/aaronlmathis/seqprep/pkg/logger"
)

var chunkCmd = &cobra.Command{
	Use:   "chunk LOGLEVEL CHUNKSIZE OVERLAP OUTDIR INPUT",
	Short: "split a FASTA file into chunks",
	Long: `Split INPUT into files of at most CHUNKSIZE bases under OUTDIR and print
one chunk path per line, in order. Records too long for the space left in a
chunk are split into fragments that "seqprep merge" joins back together.

This is the chunking tool the preprocess command calls when tools.chunker is
set to it. OVERLAP must be 0.`,
	Example: `  $ seqprep chunk INFO 10000000 0 /tmp/chunks genome.fa.gz`,
	Args:    cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		level := chunkLogLevel(args[0])
		chunkSize, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid chunk size %q: %w", args[1], err)
		}
		overlap, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid overlap %q: %w", args[2], err)
		}

		log, err := logger.New(os.Stderr, "text", level, false)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(args[3], 0o755); err != nil {
			return err
		}

		paths, err := fasta.ChunkFile(cmd.Context(), args[4], fasta.ChunkOptions{
			ChunkSize: chunkSize,
			Overlap:   overlap,
			OutDir:    args[3],
		})
		if err != nil {
			return err
		}
		log.Debug("chunked sequence", "input", args[4], "chunks", len(paths), "chunk_size", chunkSize)

		out := cmd.OutOrStdout()
		for _, p := range paths {
			fmt.Fprintln(out, p)
		}
		return nil
	},
}

// chunkLogLevel maps the level names chunking tools are handed to slog
// levels. Unknown names mean INFO.
func chunkLogLevel(name string) slog.Level {
	switch strings.ToUpper(name) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
