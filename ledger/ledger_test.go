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

package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/seqprep/preprocessor"
)

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)

	first, err := l.StartRun(ctx, "/out/a", "stages.xml")
	require.NoError(t, err)
	second, err := l.StartRun(ctx, "/out/b", "stages.xml")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, StatusRunning, first.Status)

	require.NoError(t, l.FinishRun(ctx, first.ID, StatusSucceeded))

	got, err := l.GetRun(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got.Status)
	assert.Equal(t, "/out/a", got.OutDir)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	runs, err := l.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)

	runs, err = l.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRuns_NotFound(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)

	err := l.FinishRun(ctx, "missing", StatusFailed)
	assert.True(t, errors.Is(err, ErrRunNotFound))

	_, err = l.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestSequences(t *testing.T) {
	ctx := context.Background()
	l := openLedger(t)

	run, err := l.StartRun(ctx, "/out", "stages.xml")
	require.NoError(t, err)

	var observer preprocessor.SequenceObserver = l.Observer(run.ID)
	require.NoError(t, observer.SequenceHandled(ctx, "/in/a.fa", "/out/a.fa", preprocessor.OutcomeProcessed))
	require.NoError(t, observer.SequenceHandled(ctx, "/in/b.fa", "/out/b.fa", preprocessor.OutcomeSkipped))
	require.NoError(t, l.RecordSequence(ctx, "other", "/in/c.fa", "/out/c.fa", preprocessor.OutcomeLinked))

	entries, err := l.ListSequences(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/in/a.fa", entries[0].Input)
	assert.Equal(t, preprocessor.OutcomeProcessed, entries[0].Outcome)
	assert.Equal(t, preprocessor.OutcomeSkipped, entries[1].Outcome)
	assert.Equal(t, run.ID, entries[1].RunID)
}
