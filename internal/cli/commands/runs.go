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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aaronlmathis/seqprep/internal/cli/ui"
	"github.com/aaronlmathis/seqprep/ledger"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs [RUN_ID]",
	Short: "list recorded runs",
	Long: `List the runs recorded in the ledger (ledger.path), newest first. With a
RUN_ID, list how each sequence of that run was handled.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession()
		if err != nil {
			return err
		}
		defer sess.Close()
		if sess.cfg.Ledger.Path == "" {
			return errors.New("no ledger configured (set ledger.path)")
		}
		ctx := sess.context(cmd.Context())

		book, err := ledger.Open(sess.cfg.Ledger.Path)
		if err != nil {
			return err
		}
		defer book.Close()

		out := cmd.OutOrStdout()
		if len(args) == 0 {
			runs, err := book.ListRuns(ctx, runsLimit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				ui.PrintInfo("no runs recorded")
				return nil
			}
			fmt.Fprintln(out, ui.RenderRuns(runs))
			return nil
		}

		run, err := book.GetRun(ctx, args[0])
		if err != nil {
			return err
		}
		entries, err := book.ListSequences(ctx, run.ID)
		if err != nil {
			return err
		}
		ui.PrintBold("run %s: %s, output %s", run.ID, run.Status, run.OutDir)
		fmt.Fprintln(out, ui.RenderSequences(entries))
		return nil
	},
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum runs to list (0 for all)")
}
