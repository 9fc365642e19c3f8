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
	"strings"

	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// ChunkTask runs a stage command on one chunk.
type ChunkTask struct {
	tasks.BaseTask
	tools      *Toolchain
	stage      StageConfig
	window     []string
	proportion float64
	inChunk    string
	outChunk   string
}

// NewChunkTask creates the task that processes inChunk into outChunk. window
// is passed to the command on stdin and proportion replaces
// PROPORTION_SAMPLED.
func NewChunkTask(name string, tools *Toolchain, stage StageConfig, window []string, proportion float64, inChunk, outChunk string) *ChunkTask {
	t := &ChunkTask{
		BaseTask:   tasks.NewBaseTask(name, TaskTypeChunk),
		tools:      tools,
		stage:      stage,
		window:     append([]string(nil), window...),
		proportion: proportion,
		inChunk:    inChunk,
		outChunk:   outChunk,
	}
	tasks.Apply(t, tools.TaskOptions...)
	tasks.Apply(t,
		tasks.WithResources(stage.Resources),
		tasks.WithCustomField(FieldWindowSize, len(window)),
		tasks.WithCustomField(FieldProportion, proportion),
		tasks.WithCustomField(FieldOutput, outChunk),
	)
	return t
}

// CommandLine returns the substituted command for tempDir. OUT_FILE names
// the partial sibling of the output, which Run renames into place once the
// command succeeds.
func (t *ChunkTask) CommandLine(tempDir string) string {
	return Substitute(t.stage.Command, t.inChunk, partialPath(t.outChunk), tempDir, t.proportion)
}

// partialPath keeps the base name last so tools that look at the extension
// still see it.
func partialPath(p string) string {
	return filepath.Join(filepath.Dir(p), ".partial-"+filepath.Base(p))
}

func (t *ChunkTask) Run(ctx context.Context, scope tasks.Scope) error {
	tempDir, err := scope.LocalTempDir()
	if err != nil {
		return err
	}

	partial := partialPath(t.outChunk)
	if err := os.Remove(partial); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale partial output: %w", err)
	}

	line := t.CommandLine(tempDir)
	scope.Logger().Debug("processing chunk", "in", t.inChunk, "out", t.outChunk, "window", len(t.window))

	out, err := t.tools.Runner.Run(ctx, Invocation{Command: line, Stdin: strings.Join(t.window, " ")})
	if err != nil {
		os.Remove(partial)
		return err
	}
	if len(out) > 0 {
		scope.Logger().Debug("tool output", "stdout", strings.TrimSpace(string(out)))
	}

	if t.stage.Check {
		if err := copyFile(t.inChunk, partial); err != nil {
			os.Remove(partial)
			return fmt.Errorf("check copy: %w", err)
		}
	}

	if _, err := os.Stat(partial); os.IsNotExist(err) {
		scope.Logger().Debug("command wrote no output", "out", t.outChunk)
		return nil
	}
	if err := os.Rename(partial, t.outChunk); err != nil {
		os.Remove(partial)
		return fmt.Errorf("move chunk output into place: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
