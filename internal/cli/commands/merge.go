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
	"bufio"

	"github.com/spf13/cobra"

	"github.com/aaronlmathis/seqprep/fasta"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "merge chunk files listed on stdin into stdout",
	Long: `Read a whitespace-separated list of chunk files from stdin and write their
concatenation to stdout, re-joining records that "seqprep chunk" split into
fragments. This is the default merge tool of the preprocess command.`,
	Example: `  $ echo chunk_0.fa chunk_1.fa | seqprep merge > genome.fa`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := fasta.ReadPathList(cmd.InOrStdin())
		if err != nil {
			return err
		}
		out := bufio.NewWriterSize(cmd.OutOrStdout(), 1<<20)
		if err := fasta.MergeFiles(cmd.Context(), out, paths); err != nil {
			return err
		}
		return out.Flush()
	},
}
