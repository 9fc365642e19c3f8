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
	"strings"

	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// MergeTask concatenates processed chunks into one sequence file with the
// merge tool. Output goes to a temporary sibling that is renamed into place,
// so a failed merge never leaves a partial destination.
type MergeTask struct {
	tasks.BaseTask
	tools  *Toolchain
	chunks []string
	output string
}

// NewMergeTask creates a merge of chunks, in order, into output.
func NewMergeTask(name string, tools *Toolchain, chunks []string, output string) *MergeTask {
	t := &MergeTask{
		BaseTask: tasks.NewBaseTask(name, TaskTypeMerge),
		tools:    tools,
		chunks:   append([]string(nil), chunks...),
		output:   output,
	}
	tasks.Apply(t, tools.TaskOptions...)
	tasks.Apply(t,
		tasks.WithCustomField(FieldOutput, output),
		tasks.WithCustomField(FieldChunkCount, len(chunks)),
	)
	return t
}

func (t *MergeTask) Run(ctx context.Context, scope tasks.Scope) error {
	tmp, err := os.CreateTemp(filepath.Dir(t.output), "."+filepath.Base(t.output)+".merge-")
	if err != nil {
		return fmt.Errorf("create merge output: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	scope.Logger().Debug("merging chunks", "chunks", len(t.chunks), "out", t.output)
	if _, err := t.tools.Runner.Run(ctx, Invocation{
		Command: t.tools.MergeCommand,
		Stdin:   strings.Join(t.chunks, " "),
		Stdout:  tmp,
	}); err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close merge output: %w", err)
	}
	if err := os.Rename(tmpPath, t.output); err != nil {
		return fmt.Errorf("publish merge output: %w", err)
	}
	committed = true
	return nil
}
