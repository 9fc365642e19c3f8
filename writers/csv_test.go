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

package writers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/seqprep/core"
)

func TestCSVWriter_InferredHeaders(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, writer.Write(ctx, core.Record{"name": "merge", "attempts": 2, "success": true}))
	require.NoError(t, writer.Write(ctx, core.Record{"name": "chunk_1", "proportion": 0.5}))
	require.NoError(t, writer.Close())

	assert.Equal(t, "attempts,name,success\n2,merge,true\n,chunk_1,\n", mock.String())
	assert.Equal(t, int64(2), writer.RecordsWritten())
}

func TestCSVWriter_Options(t *testing.T) {
	mock := newMockWriteCloser()
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	writer, err := NewCSVWriter(mock,
		WithHeaders([]string{"task_id", "start_time", "proportion"}),
		WithComma(';'),
		WithCSVBatchSize(10),
	)
	require.NoError(t, err)

	require.NoError(t, writer.Write(context.Background(), core.Record{
		"task_id": "a;b", "start_time": start, "proportion": 0.25, "ignored": "x",
	}))
	assert.Empty(t, mock.String())

	require.NoError(t, writer.Flush())
	assert.Equal(t, "task_id;start_time;proportion\n\"a;b\";2025-03-01T12:00:00Z;0.25\n", mock.String())
}

func TestCSVWriter_NoHeader(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, WithWriteHeader(false), WithHeaders([]string{"a"}))
	require.NoError(t, err)
	require.NoError(t, writer.Write(context.Background(), core.Record{"a": "1"}))
	require.NoError(t, writer.Close())
	assert.Equal(t, "1\n", mock.String())
}

func TestCSVWriter_CRLF(t *testing.T) {
	mock := newMockWriteCloser()
	writer, err := NewCSVWriter(mock, WithUseCRLF(true), WithHeaders([]string{"a"}))
	require.NoError(t, err)
	require.NoError(t, writer.Write(context.Background(), core.Record{"a": "1"}))
	require.NoError(t, writer.Close())
	assert.Equal(t, "a\r\n1\r\n", mock.String())
}

func TestCSVWriter_ErrorState(t *testing.T) {
	mock := newMockWriteCloser()
	mock.failWrite = true
	writer, err := NewCSVWriter(mock)
	require.NoError(t, err)

	err = writer.Write(context.Background(), core.Record{"a": 1})
	require.Error(t, err)
	var csvErr *CSVWriterError
	assert.True(t, errors.As(err, &csvErr))

	err = writer.Write(context.Background(), core.Record{"a": 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error state")
}
