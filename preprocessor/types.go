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

// Package preprocessor schedules staged, chunked preprocessing of genome
// sequence files on the dag executor.
//
// Each input runs through the configured stages in order. A chunked stage
// splits its input, runs the stage command once per chunk with a window of
// neighbouring chunks as context, and merges the processed chunks back into
// one file. An unchunked stage runs the command once on the whole input.
// Outputs that already exist are left alone, so an interrupted run can be
// restarted.
package preprocessor

import (
	"context"

	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// Task types scheduled by this package.
const (
	TaskTypePreprocess tasks.TaskType = "preprocess"
	TaskTypeFetch      tasks.TaskType = "fetch_input"
	TaskTypeLink       tasks.TaskType = "link_output"
	TaskTypeBatch      tasks.TaskType = "batch_preprocess"
	TaskTypeSequence   tasks.TaskType = "preprocess_sequence"
	TaskTypeChunk      tasks.TaskType = "preprocess_chunk"
	TaskTypeMerge      tasks.TaskType = "merge_chunks"
	TaskTypeRecord     tasks.TaskType = "record_outcome"
)

// Custom task fields surfaced in task results.
const (
	FieldSequence   = "sequence"
	FieldOutput     = "output"
	FieldStage      = "stage"
	FieldChunkIndex = "chunk_index"
	FieldWindowSize = "window_size"
	FieldProportion = "proportion"
	FieldChunkCount = "chunk_count"
)

// Outcome is what happened to one input sequence.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeLinked    Outcome = "linked"
)

// SequenceObserver is told how each input was handled. Skipped inputs are
// reported by the top-level task; processed and linked inputs once their
// output is in place. An input whose pipeline fails is not reported.
type SequenceObserver interface {
	SequenceHandled(ctx context.Context, input, output string, outcome Outcome) error
}

// Fetcher stages remote inputs onto local disk.
type Fetcher interface {
	// Handles reports whether uri names a remote object this fetcher can read.
	Handles(uri string) bool
	// Fetch downloads uri into dir and returns the local path.
	Fetch(ctx context.Context, uri, dir string) (string, error)
	// BaseName returns the file name the object will be stored under.
	BaseName(uri string) string
}

// Toolchain bundles the external tools the preprocessing tasks call.
type Toolchain struct {
	Runner       Runner
	Chunker      Chunker
	MergeCommand string
	Fetcher      Fetcher
	Observer     SequenceObserver
	TaskOptions  []tasks.TaskOption
}

func (tc *Toolchain) notify(ctx context.Context, scope tasks.Scope, input, output string, outcome Outcome) {
	if tc.Observer == nil {
		return
	}
	if err := tc.Observer.SequenceHandled(ctx, input, output, outcome); err != nil {
		scope.Logger().Warn("sequence observer failed", "input", input, "error", err)
	}
}
