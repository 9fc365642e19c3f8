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

package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/seqprep/core"
)

func include(t *testing.T, f core.Filter, record core.Record) bool {
	t.Helper()
	ok, err := f.ShouldInclude(context.Background(), record)
	require.NoError(t, err)
	return ok
}

func TestEqualsAcrossNumericTypes(t *testing.T) {
	f := Equals("attempts", 2)
	assert.True(t, include(t, f, core.Record{"attempts": 2}))
	assert.True(t, include(t, f, core.Record{"attempts": float64(2)}))
	assert.True(t, include(t, f, core.Record{"attempts": int64(2)}))
	assert.False(t, include(t, f, core.Record{"attempts": "2"}))
	assert.False(t, include(t, f, core.Record{}))
}

func TestFailed(t *testing.T) {
	assert.True(t, include(t, Failed(), core.Record{"success": false}))
	assert.False(t, include(t, Failed(), core.Record{"success": true}))
	assert.False(t, include(t, Failed(), core.Record{"success": nil}))
}

func TestInAndCombinators(t *testing.T) {
	types := In("task_type", "preprocess_chunk", "merge_chunks")
	chunk := core.Record{"task_type": "preprocess_chunk", "task_id": "preprocess/a.fa.stage0/sequence/chunk_1", "attempts": 3.0}
	batch := core.Record{"task_type": "batch_preprocess", "task_id": "preprocess/a.fa.stage0", "attempts": 1.0}

	assert.True(t, include(t, types, chunk))
	assert.False(t, include(t, types, batch))
	assert.True(t, include(t, Not(types), batch))
	assert.True(t, include(t, And(types, GreaterThan("attempts", 1)), chunk))
	assert.False(t, include(t, And(types, GreaterThan("attempts", 5)), chunk))
	assert.True(t, include(t, Or(types, StartsWith("task_id", "preprocess/a.fa")), batch))
	assert.True(t, include(t, NotNull("task_id"), batch))
	assert.False(t, include(t, NotNull("error"), core.Record{"error": ""}))
	assert.True(t, include(t, Custom(func(r core.Record) bool { return r["attempts"] == 1.0 }), batch))
}

func TestMatchesRegex(t *testing.T) {
	f, err := MatchesRegex("task_id", `chunk_\d+$`)
	require.NoError(t, err)
	assert.True(t, include(t, f, core.Record{"task_id": "x/chunk_12"}))
	assert.False(t, include(t, f, core.Record{"task_id": "x/merge"}))

	_, err = MatchesRegex("task_id", "(")
	assert.Error(t, err)
}
