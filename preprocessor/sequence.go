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
	"os"
	"path/filepath"

	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// SequenceTask runs one chunked stage on one sequence file: it splits the
// input, schedules a ChunkTask per chunk and a MergeTask as follow-on.
type SequenceTask struct {
	tasks.BaseTask
	tools  *Toolchain
	stage  StageConfig
	input  string
	output string
}

// NewSequenceTask creates the chunked processing of input into output.
func NewSequenceTask(name string, tools *Toolchain, stage StageConfig, input, output string) *SequenceTask {
	t := &SequenceTask{
		BaseTask: tasks.NewBaseTask(name, TaskTypeSequence),
		tools:    tools,
		stage:    stage,
		input:    input,
		output:   output,
	}
	tasks.Apply(t, tools.TaskOptions...)
	tasks.Apply(t,
		tasks.WithResources(stage.Resources),
		tasks.WithCustomField(FieldSequence, input),
		tasks.WithCustomField(FieldOutput, output),
	)
	return t
}

func (t *SequenceTask) Run(ctx context.Context, scope tasks.Scope) error {
	global, err := scope.GlobalTempDir()
	if err != nil {
		return err
	}
	inDir := filepath.Join(global, "preprocessChunksIn")
	outDir := filepath.Join(global, "preprocessChunksOut")
	for _, dir := range []string{inDir, outDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create chunk dir: %w", err)
		}
	}

	inChunks, err := t.tools.Chunker.Chunk(ctx, t.input, t.stage.ChunkSize, inDir)
	if err != nil {
		return err
	}
	if len(inChunks) == 0 {
		scope.Logger().Warn("chunker produced no chunks", "input", t.input)
	}

	outChunks := make([]string, len(inChunks))
	for i, in := range inChunks {
		window, err := NewChunkWindow(inChunks, i, t.stage.ProportionToSample)
		if err != nil {
			return err
		}
		outChunks[i] = filepath.Join(outDir, fmt.Sprintf("chunk_%d", i))
		child := NewChunkTask(fmt.Sprintf("chunk_%d", i), t.tools, t.stage,
			window.Chunks, window.Proportion(len(inChunks)), in, outChunks[i])
		child.SetCustomField(FieldChunkIndex, i)
		child.SetCustomField(FieldSequence, t.input)
		scope.AddChild(child)
	}

	scope.Logger().Info("sequence chunked",
		"input", t.input,
		"chunks", len(inChunks),
		"chunk_size", t.stage.ChunkSize,
		"window", SampleCount(max(len(inChunks), 1), t.stage.ProportionToSample))

	scope.SetFollowOn(NewMergeTask("merge", t.tools, outChunks, t.output))
	return nil
}
