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

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_CloneAndKeys(t *testing.T) {
	r := Record{"task_id": "merge", "attempts": int64(1), "error": nil}

	c := r.Clone(1)
	c["duration_s"] = 0.5
	assert.NotContains(t, r, "duration_s")
	assert.Equal(t, "merge", c["task_id"])

	assert.Equal(t, []string{"attempts", "error", "task_id"}, r.Keys())
	assert.Empty(t, Record{}.Keys())
}
