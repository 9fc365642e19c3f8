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
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// BatchTask runs stage number iteration on input and chains the next stage as
// its follow-on. The last stage writes the final output path; earlier stages
// write into global scratch.
type BatchTask struct {
	tasks.BaseTask
	tools     *Toolchain
	stages    []StageConfig
	source    string // the input as the caller named it, carried through every stage
	input     string
	output    string
	iteration int
}

// NewBatchTask creates the driver for stages[iteration:] on input.
func NewBatchTask(tools *Toolchain, stages []StageConfig, input, output string, iteration int) *BatchTask {
	t := &BatchTask{
		BaseTask:  tasks.NewBaseTask(fmt.Sprintf("%s.stage%d", filepath.Base(output), iteration), TaskTypeBatch),
		tools:     tools,
		stages:    stages,
		source:    input,
		input:     input,
		output:    output,
		iteration: iteration,
	}
	tasks.Apply(t, tools.TaskOptions...)
	tasks.Apply(t,
		tasks.WithCustomField(FieldSequence, input),
		tasks.WithCustomField(FieldStage, iteration),
	)
	if iteration < len(stages) {
		t.SetResources(stages[iteration].Resources)
	}
	return t
}

// Last reports whether this is the final stage.
func (t *BatchTask) Last() bool {
	return t.iteration == len(t.stages)-1
}

func (t *BatchTask) Run(ctx context.Context, scope tasks.Scope) error {
	if t.iteration < 0 || t.iteration >= len(t.stages) {
		return fmt.Errorf("stage %d out of range: %d stages configured", t.iteration, len(t.stages))
	}
	stage := t.stages[t.iteration]

	input := t.input
	if info, err := os.Stat(input); err != nil {
		return fmt.Errorf("stat input: %w", err)
	} else if info.IsDir() {
		global, err := scope.GlobalTempDir()
		if err != nil {
			return err
		}
		cat := filepath.Join(global, "catSeq.fa")
		if err := concatDir(input, cat); err != nil {
			return fmt.Errorf("concatenate %s: %w", input, err)
		}
		scope.Logger().Debug("concatenated input directory", "dir", input, "into", cat)
		input = cat
	}

	output := t.output
	if !t.Last() {
		global, err := scope.GlobalTempDir()
		if err != nil {
			return err
		}
		output = filepath.Join(global, strconv.Itoa(t.iteration))
	}

	scope.Logger().Info("running stage",
		"stage", t.iteration,
		"of", len(t.stages),
		"input", input,
		"output", output,
		"chunked", stage.Chunked())

	if stage.Chunked() {
		scope.AddChild(NewSequenceTask("sequence", t.tools, stage, input, output))
	} else {
		child := NewChunkTask("whole", t.tools, stage, []string{input}, 1.0, input, output)
		child.SetCustomField(FieldSequence, input)
		scope.AddChild(child)
	}

	switch {
	case !t.Last():
		next := NewBatchTask(t.tools, t.stages, output, t.output, t.iteration+1)
		next.source = t.source
		scope.SetFollowOn(next)
	case t.tools.Observer != nil:
		scope.SetFollowOn(NewRecordTask(t.tools, t.source, t.output, OutcomeProcessed))
	}
	return nil
}

// concatDir writes every regular file in dir to dst. ReadDir returns entries
// sorted by name.
func concatDir(dir, dst string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if err := appendFile(out, filepath.Join(dir, e.Name())); err != nil {
			out.Close()
			return err
		}
	}
	return out.Close()
}

func appendFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}
