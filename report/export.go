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

package report

import (
	"context"

	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/dag/tasks"
	"github.com/aaronlmathis/seqprep/filter"
	"github.com/aaronlmathis/seqprep/transform"
	"github.com/aaronlmathis/seqprep/validators"
)

// ExportOptions selects and shapes the rows copied by Export.
type ExportOptions struct {
	FailedOnly  bool     // Only rows of failed tasks
	TaskTypes   []string // Only rows of these task types
	Fields      []string // Columns to keep, in order; all when empty
	Validate    bool     // Check every row against Validator
	SkipInvalid bool     // Drop rows that fail instead of stopping
	OnSkip      core.ErrorHandler
}

// Export copies report rows from src to sink and returns the number of rows
// written. Both are closed when it returns.
func Export(ctx context.Context, src core.DataSource, sink core.DataSink, opts ExportOptions) (int64, error) {
	if len(opts.Fields) > 0 {
		sink = &projectSink{DataSink: sink, project: transform.Select(opts.Fields...)}
	}

	builder := NewPipeline().From(src).To(sink)
	if opts.Validate {
		builder.Transform(Validator().Transformer())
	}
	if opts.FailedOnly {
		builder.Filter(filter.Failed())
	}
	if len(opts.TaskTypes) > 0 {
		types := make([]interface{}, len(opts.TaskTypes))
		for i, t := range opts.TaskTypes {
			types[i] = t
		}
		builder.Filter(filter.In(ColTaskType, types...))
	}
	if opts.SkipInvalid {
		builder.WithErrorStrategy(core.SkipErrors).WithErrorHandler(opts.OnSkip)
	}

	pipeline, err := builder.Build()
	if err != nil {
		return 0, err
	}
	err = pipeline.Execute(ctx)
	written, _ := pipeline.Stats()
	return written, err
}

// ExportLocation opens from and to with OpenSource and OpenSink and runs
// Export between them.
func ExportLocation(ctx context.Context, from, to string, opts ExportOptions, locOpts ...LocationOption) (int64, error) {
	src, err := OpenSource(ctx, from, locOpts...)
	if err != nil {
		return 0, err
	}
	if len(opts.Fields) > 0 {
		locOpts = append(locOpts, WithReportColumns(opts.Fields...))
	}
	sink, err := OpenSink(ctx, to, locOpts...)
	if err != nil {
		src.Close()
		return 0, err
	}
	return Export(ctx, src, sink, opts)
}

// projectSink keeps only the selected columns of every record it writes.
type projectSink struct {
	core.DataSink
	project core.Transformer
}

func (s *projectSink) Write(ctx context.Context, record core.Record) error {
	projected, err := s.project.Transform(ctx, record)
	if err != nil {
		return err
	}
	return s.DataSink.Write(ctx, projected)
}

// Validator returns the quality rules every report row satisfies.
func Validator() *validators.DataQualityValidator {
	minProportion, maxProportion := validators.Range(0, 1)
	zero := 0.0

	return validators.NewDataQualityValidator(0,
		[]string{ColRunID, ColTaskID, ColTaskType, ColRelation, ColSuccess, ColAttempts},
		validators.WithFieldValidator(ColTaskID, validators.FieldValidator{DataType: validators.FieldTypeString}),
		validators.WithFieldValidator(ColRelation, validators.FieldValidator{
			DataType: validators.FieldTypeString,
			AllowedValues: []interface{}{
				string(tasks.RelationRoot), string(tasks.RelationChild), string(tasks.RelationFollowOn),
			},
		}),
		validators.WithFieldValidator(ColSuccess, validators.FieldValidator{DataType: validators.FieldTypeBool}),
		validators.WithFieldValidator(ColAttempts, validators.FieldValidator{DataType: validators.FieldTypeInt, MinValue: &zero}),
		validators.WithFieldValidator(ColDurationMS, validators.FieldValidator{DataType: validators.FieldTypeInt, MinValue: &zero}),
		validators.WithFieldValidator(ColProportion, validators.FieldValidator{
			DataType: validators.FieldTypeNumber, MinValue: minProportion, MaxValue: maxProportion,
		}),
		validators.WithFieldValidator(ColStartTime, validators.FieldValidator{DataType: validators.FieldTypeTime}),
		validators.WithFieldValidator(ColEndTime, validators.FieldValidator{DataType: validators.FieldTypeTime}),
	)
}
