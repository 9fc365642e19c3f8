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
	"time"

	"github.com/aaronlmathis/seqprep/aggregate"
	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/filter"
)

// Summary aggregates the report rows of one task type.
type Summary struct {
	TaskType      string
	Tasks         int
	Failed        int
	TotalDuration time.Duration
	MaxDuration   time.Duration
	MaxAttempts   int
}

// Summarize groups the rows of src by task type, in the order the types
// first appear. src is not closed.
func Summarize(ctx context.Context, src core.DataSource) ([]Summary, error) {
	rows, err := aggregate.NewGroupBy(ColTaskType).
		Count("tasks").
		CountWhere("failed", filter.Failed()).
		Sum(ColDurationMS, "total_ms").
		Max(ColDurationMS, "max_ms").
		Max(ColAttempts, "max_attempts").
		ProcessSource(ctx, src)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(rows))
	for _, row := range rows {
		s := Summary{
			Tasks:         row["tasks"].(int),
			Failed:        row["failed"].(int),
			TotalDuration: millis(row["total_ms"]),
			MaxDuration:   millis(row["max_ms"]),
		}
		if taskType, ok := row[ColTaskType].(string); ok {
			s.TaskType = taskType
		}
		if attempts, ok := row["max_attempts"].(float64); ok {
			s.MaxAttempts = int(attempts)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// Total folds summaries into one whose TaskType is "total".
func Total(summaries []Summary) Summary {
	total := Summary{TaskType: "total"}
	for _, s := range summaries {
		total.Tasks += s.Tasks
		total.Failed += s.Failed
		total.TotalDuration += s.TotalDuration
		total.MaxDuration = max(total.MaxDuration, s.MaxDuration)
		total.MaxAttempts = max(total.MaxAttempts, s.MaxAttempts)
	}
	return total
}

func millis(v interface{}) time.Duration {
	ms, ok := v.(float64)
	if !ok {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}
