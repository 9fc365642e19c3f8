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
	"sync"

	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// Recorder writes a report row for every task the executor finishes. It
// implements dag.Observer.
//
// The executor cannot act on an observer error, so the first write error is
// kept and returned by Err and Close; later rows are dropped.
type Recorder struct {
	ctx   context.Context
	runID string
	sink  core.DataSink
	rows  int64
	err   error
	mu    sync.Mutex
}

// NewRecorder creates a recorder that writes rows for runID to sink.
func NewRecorder(ctx context.Context, runID string, sink core.DataSink) *Recorder {
	return &Recorder{ctx: ctx, runID: runID, sink: sink}
}

// TaskCompleted implements dag.Observer.
func (r *Recorder) TaskCompleted(result tasks.TaskResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}
	if err := r.sink.Write(r.ctx, FromResult(r.runID, result)); err != nil {
		r.err = err
		return
	}
	r.rows++
}

// Rows returns the number of rows written.
func (r *Recorder) Rows() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows
}

// Err returns the first write error.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close flushes and closes the sink.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	closeErr := r.sink.Close()
	if r.err != nil {
		return r.err
	}
	return closeErr
}
