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
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/internal/cli/ui"
	"github.com/aaronlmathis/seqprep/report"
)

var (
	exportFailed      bool
	exportTypes       []string
	exportFields      []string
	exportValidate    bool
	exportSkipInvalid bool
	exportTable       string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "read, check and export run reports",
	Long: `A run report holds one row per executed task. Reports are written by
"seqprep preprocess --report" to JSON lines, CSV or Parquet files (locally or
on S3), a PostgreSQL table or a MongoDB collection.`,
}

var reportSummaryCmd = &cobra.Command{
	Use:     "summary REPORT",
	Short:   "summarize a run report by task type",
	Example: `  $ seqprep report summary s3://runs/2024-05-01/report.parquet`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession()
		if err != nil {
			return err
		}
		defer sess.Close()
		ctx := sess.context(cmd.Context())

		src, err := report.OpenSource(ctx, args[0], report.WithS3Options(sess.s3Options()...))
		if err != nil {
			return err
		}
		defer src.Close()

		summaries, err := report.Summarize(ctx, src)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			ui.PrintWarning("%s has no rows", args[0])
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSummary(summaries))
		return nil
	},
}

var reportExportCmd = &cobra.Command{
	Use:   "export SOURCE DESTINATION",
	Short: "copy report rows to another location",
	Long: `Copy the rows of the SOURCE report to DESTINATION, optionally keeping only
failed tasks, some task types or some columns. Either side may be a file path
(.jsonl, .csv, .parquet) or an s3:// object. DESTINATION may also be a
postgres:// DSN or a mongodb:// URI naming database/collection.`,
	Example: `  # Failed chunk tasks into PostgreSQL
  $ seqprep report export report.jsonl postgres://etl@db/runs --failed --type preprocess_chunk

  # Selected columns as CSV
  $ seqprep report export report.parquet timings.csv --fields task_id,duration_ms`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession()
		if err != nil {
			return err
		}
		defer sess.Close()
		ctx := sess.context(cmd.Context())

		opts := report.ExportOptions{
			FailedOnly:  exportFailed,
			TaskTypes:   exportTypes,
			Fields:      exportFields,
			Validate:    exportValidate || exportSkipInvalid,
			SkipInvalid: exportSkipInvalid,
			OnSkip: core.ErrorHandlerFunc(func(ctx context.Context, record core.Record, err error) error {
				sess.logger.Warn("row skipped", "task_id", record[report.ColTaskID], "error", err)
				return nil
			}),
		}
		locOpts := []report.LocationOption{report.WithS3Options(sess.s3Options()...)}
		if exportTable != "" {
			locOpts = append(locOpts, report.WithTable(exportTable))
		}

		n, err := report.ExportLocation(ctx, args[0], args[1], opts, locOpts...)
		if err != nil {
			return err
		}
		ui.PrintSuccess("exported %d rows to %s", n, args[1])
		return nil
	},
}

var reportCheckCmd = &cobra.Command{
	Use:   "check REPORT",
	Short: "check every row of a run report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession()
		if err != nil {
			return err
		}
		defer sess.Close()
		ctx := sess.context(cmd.Context())

		src, err := report.OpenSource(ctx, args[0], report.WithS3Options(sess.s3Options()...))
		if err != nil {
			return err
		}

		var invalid int
		n, err := report.Export(ctx, src, discardSink{}, report.ExportOptions{
			Validate:    true,
			SkipInvalid: true,
			OnSkip: core.ErrorHandlerFunc(func(ctx context.Context, record core.Record, err error) error {
				invalid++
				ui.PrintError("%v: %v", record[report.ColTaskID], err)
				return nil
			}),
		})
		if err != nil {
			return err
		}
		if invalid > 0 {
			return errors.New("report has invalid rows")
		}
		ui.PrintSuccess("%d rows valid", n)
		return nil
	},
}

// discardSink accepts and drops every record.
type discardSink struct{}

func (discardSink) Write(context.Context, core.Record) error { return nil }
func (discardSink) Flush() error                            { return nil }
func (discardSink) Close() error                            { return nil }

func init() {
	f := reportExportCmd.Flags()
	f.BoolVar(&exportFailed, "failed", false, "only rows of failed tasks")
	f.StringSliceVar(&exportTypes, "type", nil, "only rows of this task type (repeatable)")
	f.StringSliceVar(&exportFields, "fields", nil, "columns to keep, in order")
	f.BoolVar(&exportValidate, "validate", false, "stop at the first invalid row")
	f.BoolVar(&exportSkipInvalid, "skip-invalid", false, "drop invalid rows instead of stopping")
	f.StringVar(&exportTable, "table", "", "table name for postgres:// destinations")

	reportCmd.AddCommand(reportSummaryCmd, reportExportCmd, reportCheckCmd)
}
