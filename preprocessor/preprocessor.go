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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// Preprocessor is the root task of a run. It maps every input to
// outDir/<base name>, skips inputs whose output already exists, and
// schedules the staged pipeline for the rest.
type Preprocessor struct {
	tasks.BaseTask
	tools  *Toolchain
	outDir string
	stages []StageConfig
	inputs []string
}

// New creates the root task for processing inputs into outDir.
func New(tools *Toolchain, outDir string, stages []StageConfig, inputs []string) *Preprocessor {
	p := &Preprocessor{
		BaseTask: tasks.NewBaseTask("preprocess", TaskTypePreprocess),
		tools:    tools,
		outDir:   outDir,
		stages:   stages,
		inputs:   append([]string(nil), inputs...),
	}
	tasks.Apply(p, tools.TaskOptions...)
	p.SetCustomField(FieldOutput, outDir)
	return p
}

// OutputPath returns where input's final result is written.
func (p *Preprocessor) OutputPath(input string) string {
	if p.tools.Fetcher != nil && p.tools.Fetcher.Handles(input) {
		return filepath.Join(p.outDir, p.tools.Fetcher.BaseName(input))
	}
	return filepath.Join(p.outDir, filepath.Base(input))
}

// Outputs returns the output path of every input, in input order.
func (p *Preprocessor) Outputs() []string {
	out := make([]string, len(p.inputs))
	for i, in := range p.inputs {
		out[i] = p.OutputPath(in)
	}
	return out
}

func (p *Preprocessor) Run(ctx context.Context, scope tasks.Scope) error {
	if err := os.MkdirAll(p.outDir, 0o755); err != nil {
		return &core.PreconditionError{Op: "create output directory", Path: p.outDir, Err: err}
	}

	for _, input := range p.inputs {
		output := p.OutputPath(input)
		remote := p.tools.Fetcher != nil && p.tools.Fetcher.Handles(input)

		if !remote {
			same, err := samePath(input, output)
			if err != nil {
				return &core.PreconditionError{Op: "resolve input path", Path: input, Err: err}
			}
			if same {
				return &core.PreconditionError{Op: "separate input and output", Path: input,
					Err: errors.New("output path is the same as the input path")}
			}
		}

		if _, err := os.Lstat(output); err == nil {
			scope.Logger().Info("output exists, skipping", "input", input, "output", output)
			p.tools.notify(ctx, scope, input, output, OutcomeSkipped)
			continue
		}

		switch {
		case remote:
			scope.AddChild(NewFetchTask(p.tools, p.stages, input, output))
		case len(p.stages) == 0:
			if err := linkOrCopy(input, output); err != nil {
				return fmt.Errorf("link %s to %s: %w", input, output, err)
			}
			scope.Logger().Info("no stages configured, linked input", "input", input, "output", output)
			p.tools.notify(ctx, scope, input, output, OutcomeLinked)
		default:
			scope.AddChild(NewBatchTask(p.tools, p.stages, input, output, 0))
		}
	}
	return nil
}

// FetchTask downloads a remote input and chains its processing.
type FetchTask struct {
	tasks.BaseTask
	tools  *Toolchain
	stages []StageConfig
	uri    string
	output string
}

// NewFetchTask creates the staging of uri followed by its pipeline.
func NewFetchTask(tools *Toolchain, stages []StageConfig, uri, output string) *FetchTask {
	t := &FetchTask{
		BaseTask: tasks.NewBaseTask("fetch."+filepath.Base(output), TaskTypeFetch),
		tools:    tools,
		stages:   stages,
		uri:      uri,
		output:   output,
	}
	tasks.Apply(t, tools.TaskOptions...)
	tasks.Apply(t,
		tasks.WithCustomField(FieldSequence, uri),
		tasks.WithCustomField(FieldOutput, output),
	)
	return t
}

func (t *FetchTask) Run(ctx context.Context, scope tasks.Scope) error {
	global, err := scope.GlobalTempDir()
	if err != nil {
		return err
	}
	local, err := t.tools.Fetcher.Fetch(ctx, t.uri, global)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", t.uri, err)
	}
	scope.Logger().Info("staged remote input", "uri", t.uri, "path", local)

	if len(t.stages) == 0 {
		link := NewLinkTask(t.tools, local, t.output)
		link.source = t.uri
		scope.SetFollowOn(link)
		return nil
	}
	batch := NewBatchTask(t.tools, t.stages, local, t.output, 0)
	batch.source = t.uri
	scope.SetFollowOn(batch)
	return nil
}

// LinkTask publishes an unprocessed input at its output path.
type LinkTask struct {
	tasks.BaseTask
	tools  *Toolchain
	source string
	input  string
	output string
}

// NewLinkTask creates a task that hard-links input to output.
func NewLinkTask(tools *Toolchain, input, output string) *LinkTask {
	t := &LinkTask{
		BaseTask: tasks.NewBaseTask("link."+filepath.Base(output), TaskTypeLink),
		tools:    tools,
		source:   input,
		input:    input,
		output:   output,
	}
	tasks.Apply(t, tools.TaskOptions...)
	tasks.Apply(t,
		tasks.WithCustomField(FieldSequence, input),
		tasks.WithCustomField(FieldOutput, output),
	)
	return t
}

func (t *LinkTask) Run(ctx context.Context, scope tasks.Scope) error {
	if err := linkOrCopy(t.input, t.output); err != nil {
		return err
	}
	t.tools.notify(ctx, scope, t.source, t.output, OutcomeLinked)
	return nil
}

// RecordTask reports a finished sequence to the toolchain's observer. It is
// the follow-on of a sequence's last stage, so it runs only once the final
// output is in place.
type RecordTask struct {
	tasks.BaseTask
	tools   *Toolchain
	input   string
	output  string
	outcome Outcome
}

// NewRecordTask creates the task that reports outcome for input.
func NewRecordTask(tools *Toolchain, input, output string, outcome Outcome) *RecordTask {
	t := &RecordTask{
		BaseTask: tasks.NewBaseTask("record."+filepath.Base(output), TaskTypeRecord),
		tools:    tools,
		input:    input,
		output:   output,
		outcome:  outcome,
	}
	tasks.Apply(t,
		tasks.WithCustomField(FieldSequence, input),
		tasks.WithCustomField(FieldOutput, output),
	)
	return t
}

func (t *RecordTask) Run(ctx context.Context, scope tasks.Scope) error {
	t.tools.notify(ctx, scope, t.input, t.output, t.outcome)
	return nil
}

// linkOrCopy hard-links src to dst, copying instead when the link fails
// (for example across devices).
func linkOrCopy(src, dst string) error {
	linkErr := os.Link(src, dst)
	if linkErr == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return errors.Join(linkErr, err)
	}
	return nil
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, err
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, err
	}
	return filepath.Clean(absA) == filepath.Clean(absB), nil
}
