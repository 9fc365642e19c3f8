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
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/validators"
)

func TestPipeline_Build(t *testing.T) {
	_, err := NewPipeline().To(&memorySink{}).Build()
	assert.EqualError(t, err, "pipeline requires a data source")

	_, err = NewPipeline().From(&sliceSource{}).Build()
	assert.EqualError(t, err, "pipeline requires a data sink")
}

func TestPipeline_MapAndWhere(t *testing.T) {
	src := &sliceSource{records: sampleRows()}
	sink := &memorySink{}

	pipeline, err := NewPipeline().
		From(src).
		Map(func(ctx context.Context, r core.Record) (core.Record, error) {
			return core.Record{ColTaskID: r[ColTaskID], "slow": r[ColDurationMS].(int64) > 100}, nil
		}).
		Where(func(ctx context.Context, r core.Record) (bool, error) {
			return r["slow"].(bool), nil
		}).
		To(sink).
		Build()
	require.NoError(t, err)
	require.NoError(t, pipeline.Execute(context.Background()))

	require.Len(t, sink.records, 2)
	assert.Equal(t, "preprocess/chunk_0", sink.records[0][ColTaskID])
	assert.True(t, src.closed)
	assert.True(t, sink.closed)

	written, skipped := pipeline.Stats()
	assert.Equal(t, int64(2), written)
	assert.Zero(t, skipped)
}

func TestPipeline_ErrorStrategies(t *testing.T) {
	t.Run("fail fast", func(t *testing.T) {
		pipeline, err := NewPipeline().
			From(&sliceSource{records: sampleRows()}).
			To(&memorySink{failOn: "preprocess/chunk_0"}).
			Build()
		require.NoError(t, err)
		assert.EqualError(t, pipeline.Execute(context.Background()), "rejected preprocess/chunk_0")
	})

	t.Run("skip errors", func(t *testing.T) {
		var handled []string
		sink := &memorySink{failOn: "preprocess/chunk_0"}
		pipeline, err := NewPipeline().
			From(&sliceSource{records: sampleRows()}).
			To(sink).
			WithErrorStrategy(core.SkipErrors).
			WithErrorHandler(core.ErrorHandlerFunc(func(ctx context.Context, r core.Record, err error) error {
				handled = append(handled, r[ColTaskID].(string))
				return nil
			})).
			Build()
		require.NoError(t, err)
		require.NoError(t, pipeline.Execute(context.Background()))

		assert.Len(t, sink.records, 2)
		assert.Equal(t, []string{"preprocess/chunk_0"}, handled)
		written, skipped := pipeline.Stats()
		assert.Equal(t, int64(2), written)
		assert.Equal(t, int64(1), skipped)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		pipeline, err := NewPipeline().From(&sliceSource{records: sampleRows()}).To(&memorySink{}).Build()
		require.NoError(t, err)
		assert.ErrorIs(t, pipeline.Execute(ctx), context.Canceled)
	})
}

func TestExport(t *testing.T) {
	tests := []struct {
		name string
		opts ExportOptions
		ids  []string
	}{
		{name: "everything", opts: ExportOptions{Validate: true}, ids: []string{"preprocess", "preprocess/chunk_0", "preprocess/merge"}},
		{name: "failed only", opts: ExportOptions{FailedOnly: true}, ids: []string{"preprocess/chunk_0"}},
		{name: "by type", opts: ExportOptions{TaskTypes: []string{"merge_chunks", "preprocess"}}, ids: []string{"preprocess", "preprocess/merge"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &memorySink{}
			written, err := Export(context.Background(), &sliceSource{records: sampleRows()}, sink, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.ids)), written)

			var ids []string
			for _, r := range sink.records {
				ids = append(ids, r[ColTaskID].(string))
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestExport_Fields(t *testing.T) {
	sink := &memorySink{}
	_, err := Export(context.Background(), &sliceSource{records: sampleRows()}, sink, ExportOptions{
		FailedOnly: true,
		Fields:     []string{ColTaskID, ColError},
	})
	require.NoError(t, err)
	require.Len(t, sink.records, 1)
	assert.Equal(t, core.Record{
		ColTaskID: "preprocess/chunk_0",
		ColError:  `tool "mask" exited with status 2`,
	}, sink.records[0])
}

func TestExport_Validation(t *testing.T) {
	rows := sampleRows()
	rows[1][ColRelation] = "sibling"

	_, err := Export(context.Background(), &sliceSource{records: rows}, &memorySink{}, ExportOptions{Validate: true})
	var verr *validators.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, ColRelation, verr.Field)

	sink := &memorySink{}
	written, err := Export(context.Background(), &sliceSource{records: rows}, sink, ExportOptions{Validate: true, SkipInvalid: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), written)
}

func TestExportLocation(t *testing.T) {
	dir := t.TempDir()
	from := filepath.Join(dir, "run.jsonl")
	to := filepath.Join(dir, "failed.csv")
	writeRows(t, from)

	written, err := ExportLocation(context.Background(), from, to, ExportOptions{
		FailedOnly: true,
		Fields:     []string{ColTaskID, ColAttempts, ColSuccess},
		Validate:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), written)

	rows := readRows(t, to)
	assert.Equal(t, []core.Record{{ColTaskID: "preprocess/chunk_0", ColAttempts: int64(3), ColSuccess: false}}, rows)
}

func TestSummarize(t *testing.T) {
	rows := append(sampleRows(), FromResult("run-1", sampleResults()[1]))
	rows[3][ColSuccess] = true
	rows[3][ColDurationMS] = int64(500)
	rows[3][ColAttempts] = int64(1)

	summaries, err := Summarize(context.Background(), &sliceSource{records: rows})
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, Summary{
		TaskType: "preprocess", Tasks: 1, TotalDuration: 40 * time.Millisecond,
		MaxDuration: 40 * time.Millisecond, MaxAttempts: 1,
	}, summaries[0])
	assert.Equal(t, Summary{
		TaskType: "preprocess_chunk", Tasks: 2, Failed: 1, TotalDuration: 2 * time.Second,
		MaxDuration: 1500 * time.Millisecond, MaxAttempts: 3,
	}, summaries[1])

	total := Total(summaries)
	assert.Equal(t, "total", total.TaskType)
	assert.Equal(t, 4, total.Tasks)
	assert.Equal(t, 1, total.Failed)
	assert.Equal(t, 2290*time.Millisecond, total.TotalDuration)
	assert.Equal(t, 1500*time.Millisecond, total.MaxDuration)
	assert.Equal(t, 3, total.MaxAttempts)
}
