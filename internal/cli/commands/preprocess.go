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
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aaronlmathis/seqprep/dag"
	"github.com/aaronlmathis/seqprep/dag/tasks"
	"github.com/aaronlmathis/seqprep/experiment"
	"github.com/aaronlmathis/seqprep/internal/cli/ui"
	"github.com/aaronlmathis/seqprep/ledger"
	"github.com/aaronlmathis/seqprep/preprocessor"
	"github.com/aaronlmathis/seqprep/report"
	"github.com/aaronlmathis/seqprep/storage"
)

var (
	preprocessExperiment    string
	preprocessExperimentOut string
	preprocessReport        string
	preprocessWorkers       int
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess OUTDIR STAGES [SEQUENCE...]",
	Short: "run the preprocessing stages over sequence files",
	Long: `Run every stage in the STAGES file over each sequence, writing the result to
OUTDIR under the sequence's base name.

A sequence is a FASTA file (optionally gzipped), a directory of FASTA files
that are concatenated first, or an s3://bucket/key object. Sequences whose
output already exists are skipped, so an interrupted run can be repeated.
With no stages, outputs are hard links to (or copies of) the inputs.`,
	Example: `  # Two stages over local and S3 inputs
  $ seqprep preprocess out/ stages.xml human.fa s3://genomes/chimp.fa

  # Take the sequences from an experiment and record the outputs in a new version
  $ seqprep preprocess out/ stages.xml --experiment exp.xml --experiment-out exp.v2.xml`,
	Args: cobra.MinimumNArgs(2),
	RunE: runPreprocess,
}

func init() {
	preprocessCmd.Flags().StringVarP(&preprocessExperiment, "experiment", "e", "", "read sequences from this experiment descriptor")
	preprocessCmd.Flags().StringVar(&preprocessExperimentOut, "experiment-out", "", "write the experiment with sequences replaced by the outputs")
	preprocessCmd.Flags().StringVarP(&preprocessReport, "report", "r", "", "run report location (overrides report.sink)")
	preprocessCmd.Flags().IntVarP(&preprocessWorkers, "workers", "w", 0, "maximum concurrent tasks (overrides engine.max_workers)")
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	outDir, stagesPath, inputs := args[0], args[1], args[2:]
	if preprocessExperimentOut != "" && preprocessExperiment == "" {
		return fmt.Errorf("--experiment-out requires --experiment")
	}

	sess, err := loadSession()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(sess.context(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := sess.logger

	stages, err := preprocessor.LoadStages(stagesPath)
	if err != nil {
		return err
	}

	var exp *experiment.Experiment
	if preprocessExperiment != "" {
		if exp, err = experiment.Load(preprocessExperiment); err != nil {
			return err
		}
		inputs = append(inputs, exp.Sequences...)
	}
	if len(inputs) == 0 {
		return fmt.Errorf("no sequences to preprocess")
	}

	tools, err := sess.toolchain(ctx, inputs)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	var book *ledger.Ledger
	if sess.cfg.Ledger.Path != "" {
		if book, err = ledger.Open(sess.cfg.Ledger.Path); err != nil {
			return err
		}
		defer book.Close()
		run, err := book.StartRun(ctx, outDir, stagesPath)
		if err != nil {
			return err
		}
		runID = run.ID
		tools.Observer = book.Observer(runID)
	}

	execOpts := sess.executorOptions(runID)
	var recorder *report.Recorder
	if location := firstNonEmpty(preprocessReport, sess.cfg.Report.Sink); location != "" {
		sink, err := report.OpenSink(ctx, location, report.WithS3Options(sess.s3Options()...))
		if err != nil {
			return fmt.Errorf("open report %s: %w", location, err)
		}
		recorder = report.NewRecorder(ctx, runID, sink)
		execOpts = append(execOpts, dag.WithObserver(recorder))
	}

	root := preprocessor.New(tools, outDir, stages, inputs)
	log.Info("preprocessing", "run_id", runID, "sequences", len(inputs), "stages", len(stages), "out_dir", outDir)
	result, runErr := dag.NewExecutor(execOpts...).Execute(ctx, root)

	if recorder != nil {
		// The recorder writes with ctx; a cancelled run still flushes what it has.
		if err := recorder.Close(); err != nil {
			log.Error("run report incomplete", "error", err)
			runErr = errors.Join(runErr, err)
		}
	}
	if book != nil {
		status := ledger.StatusSucceeded
		if runErr != nil {
			status = ledger.StatusFailed
		}
		if err := book.FinishRun(context.WithoutCancel(ctx), runID, status); err != nil {
			log.Warn("ledger update failed", "run_id", runID, "error", err)
		}
	}

	if runErr != nil {
		if result != nil {
			for _, failed := range result.FailedTasks() {
				ui.PrintError("%s (%s) failed after %d attempts: %v", failed.TaskID, failed.TaskType, failed.AttemptCount, failed.Error)
			}
		}
		return runErr
	}

	if exp != nil && preprocessExperimentOut != "" {
		outputs := root.Outputs()
		next, err := exp.Update(func(e *experiment.Experiment) error {
			e.Sequences = outputs[len(outputs)-len(exp.Sequences):]
			return nil
		})
		if err != nil {
			return err
		}
		if err := next.Save(preprocessExperimentOut); err != nil {
			return err
		}
		ui.PrintInfo("experiment version %d written to %s", next.Version, preprocessExperimentOut)
	}

	ui.PrintSuccess("preprocessed %d sequences into %s in %s (run %s)",
		len(inputs), outDir, result.EndTime.Sub(result.StartTime).Round(time.Millisecond), runID)
	return nil
}

// toolchain assembles the external tools from the configuration. s3://
// inputs get an S3 fetcher.
func (s *session) toolchain(ctx context.Context, inputs []string) (*preprocessor.Toolchain, error) {
	runner := preprocessor.NewShellRunner(s.cfg.Tools.Shell, s.logger)
	tools := &preprocessor.Toolchain{
		Runner:       runner,
		Chunker:      preprocessor.NativeChunker{},
		MergeCommand: s.cfg.Tools.Merger,
	}
	if s.cfg.Tools.Chunker != "" {
		tools.Chunker = &preprocessor.ExternalChunker{Command: s.cfg.Tools.Chunker, LogLevel: s.cfg.Tools.LogLevel, Runner: runner}
	}
	if tools.MergeCommand == "" {
		self, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate seqprep executable for merging: %w", err)
		}
		tools.MergeCommand = strconv.Quote(self) + " merge"
	}
	if s.cfg.Engine.TaskTimeout > 0 {
		tools.TaskOptions = append(tools.TaskOptions, tasks.WithTimeout(s.cfg.Engine.TaskTimeout))
	}

	for _, in := range inputs {
		if storage.IsURI(in) {
			client, err := storage.NewS3(ctx, s.s3Options()...)
			if err != nil {
				return nil, err
			}
			tools.Fetcher = client
			break
		}
	}
	return tools, nil
}

func (s *session) executorOptions(runID string) []dag.ExecutorOption {
	e := s.cfg.Engine
	workers := e.MaxWorkers
	if preprocessWorkers > 0 {
		workers = preprocessWorkers
	}
	opts := []dag.ExecutorOption{
		dag.WithRunID(runID),
		dag.WithLogger(s.logger),
		dag.WithMaxWorkers(workers),
		dag.WithMaxCPU(e.MaxCPU),
		dag.WithMaxMemory(e.MaxMemory),
		dag.WithFailFast(e.FailFast),
		dag.WithWorkDir(e.WorkDir),
		dag.WithKeepScratch(e.KeepScratch),
	}
	if e.Retries > 0 {
		opts = append(opts, dag.WithDefaultRetries(&tasks.RetryConfig{
			MaxRetries: e.Retries,
			Strategy:   &tasks.ExponentialBackoff{BaseDelay: e.RetryBackoff, MaxDelay: 30 * e.RetryBackoff},
		}))
	}
	return opts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
