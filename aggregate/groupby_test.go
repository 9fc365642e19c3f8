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

package aggregate

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/seqprep/core"
)

type sliceSource struct {
	records []core.Record
}

func (s *sliceSource) Read(ctx context.Context) (core.Record, error) {
	if len(s.records) == 0 {
		return nil, io.EOF
	}
	r := s.records[0]
	s.records = s.records[1:]
	return r, nil
}

func (s *sliceSource) Close() error { return nil }

func failed() core.Filter {
	return core.FilterFunc(func(ctx context.Context, r core.Record) (bool, error) {
		return r["success"] == false, nil
	})
}

var taskRows = []core.Record{
	{"task_type": "preprocess_chunk", "duration_ms": 100, "attempts": 1, "success": true},
	{"task_type": "merge_chunks", "duration_ms": 20.0, "attempts": 1, "success": true},
	{"task_type": "preprocess_chunk", "duration_ms": 300, "attempts": 3, "success": false},
	{"task_type": "preprocess_chunk", "duration_ms": int64(200), "attempts": 1, "success": true},
}

func newSummary() *GroupBy {
	return NewGroupBy("task_type").
		Count("tasks").
		CountWhere("failed", failed()).
		Sum("duration_ms", "total_ms").
		Avg("duration_ms", "avg_ms").
		Min("duration_ms", "min_ms").
		Max("attempts", "max_attempts")
}

func TestGroupBy_Process(t *testing.T) {
	ch := make(chan core.Record, len(taskRows))
	for _, r := range taskRows {
		ch <- r
	}
	close(ch)

	out, err := newSummary().Process(context.Background(), ch)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, core.Record{
		"task_type":    "preprocess_chunk",
		"tasks":        3,
		"failed":       1,
		"total_ms":     600.0,
		"avg_ms":       200.0,
		"min_ms":       100.0,
		"max_attempts": 3.0,
	}, out[0])
	assert.Equal(t, "merge_chunks", out[1]["task_type"])
	assert.Equal(t, 1, out[1]["tasks"])
	assert.Equal(t, 0, out[1]["failed"])
}

func TestGroupBy_ProcessSource(t *testing.T) {
	g := NewGroupBy().Count("tasks").Sum("success", "succeeded").Max("missing", "none")
	out, err := g.ProcessSource(context.Background(), &sliceSource{records: append([]core.Record(nil), taskRows...)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 4, out[0]["tasks"])
	assert.Equal(t, 3.0, out[0]["succeeded"])
	assert.Nil(t, out[0]["none"])
}

func TestGroupBy_DistinctKeys(t *testing.T) {
	ch := make(chan core.Record, 3)
	ch <- core.Record{"stage": 1}
	ch <- core.Record{"stage": "1"}
	ch <- core.Record{"stage": 1}
	close(ch)

	out, err := NewGroupBy("stage").Count("n").Process(context.Background(), ch)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 2, out[0]["n"])
	assert.Equal(t, 1, out[1]["n"])
}
