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

package transform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/seqprep/core"
)

func apply(t *testing.T, tr core.Transformer, record core.Record) core.Record {
	t.Helper()
	out, err := tr.Transform(context.Background(), record)
	require.NoError(t, err)
	return out
}

func TestSelectRenameRemove(t *testing.T) {
	in := core.Record{"task_id": "a", "name": "merge", "error": nil}

	assert.Equal(t, core.Record{"task_id": "a"}, apply(t, Select("task_id", "missing"), in))
	assert.Equal(t, core.Record{"id": "a", "name": "merge", "error": nil}, apply(t, Rename(map[string]string{"task_id": "id"}), in))
	assert.Equal(t, core.Record{"name": "merge"}, apply(t, RemoveFields("task_id", "error"), in))

	out := apply(t, AddField("failed", func(r core.Record) interface{} { return r["error"] != nil }), in)
	assert.Equal(t, false, out["failed"])
	assert.NotContains(t, in, "failed")
}

func TestConversions(t *testing.T) {
	in := core.Record{
		"attempts":   float64(2),
		"stage":      "1",
		"proportion": 1,
		"success":    "true",
		"chunk":      nil,
		"start_time": "2025-03-01T12:00:00.5Z",
	}
	out := apply(t, ToInt("attempts", "stage", "chunk"), in)
	assert.Equal(t, int64(2), out["attempts"])
	assert.Equal(t, int64(1), out["stage"])
	assert.Nil(t, out["chunk"])

	out = apply(t, ToFloat("proportion"), out)
	assert.Equal(t, 1.0, out["proportion"])

	out = apply(t, ToBool("success"), out)
	assert.Equal(t, true, out["success"])

	out = apply(t, ParseTime(time.RFC3339Nano, "start_time"), out)
	assert.Equal(t, time.Date(2025, 3, 1, 12, 0, 0, 500000000, time.UTC), out["start_time"])

	out = apply(t, ToString("attempts"), out)
	assert.Equal(t, "2", out["attempts"])

	assert.Equal(t, "1", in["stage"])
}

func TestConversionErrors(t *testing.T) {
	_, err := ToInt("attempts").Transform(context.Background(), core.Record{"attempts": 1.5})
	assert.Error(t, err)
	_, err = ParseTime(time.RFC3339, "t").Transform(context.Background(), core.Record{"t": "yesterday"})
	assert.Error(t, err)
	_, err = ToBool("b").Transform(context.Background(), core.Record{"b": []int{1}})
	assert.Error(t, err)
}
