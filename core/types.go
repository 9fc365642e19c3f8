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
	"context"
	"sort"
)

// Record is one report row, keyed by column name. Rows produced by the
// executor carry one row per task; rows read back from a report carry
// whatever columns the source holds.
type Record map[string]interface{}

// Clone returns a shallow copy of r sized for extra added columns.
func (r Record) Clone(extra int) Record {
	out := make(Record, len(r)+extra)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Keys returns the column names of r in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TransformFunc adapts a plain function to Transformer.
type TransformFunc func(ctx context.Context, record Record) (Record, error)

func (f TransformFunc) Transform(ctx context.Context, record Record) (Record, error) {
	return f(ctx, record)
}

// FilterFunc adapts a plain predicate to Filter.
type FilterFunc func(ctx context.Context, record Record) (bool, error)

func (f FilterFunc) ShouldInclude(ctx context.Context, record Record) (bool, error) {
	return f(ctx, record)
}
