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

// Package aggregate folds report rows into per-group values, such as the
// number of failed chunk tasks or the longest merge of a run.
package aggregate

import (
	"context"

	"github.com/aaronlmathis/seqprep/core"
)

// Aggregator accumulates one value over the rows of a group. GroupBy keeps a
// prototype per output column and clones it for every new group key.
type Aggregator interface {
	Add(ctx context.Context, row core.Record) error
	Result() interface{}
	Clone() Aggregator
}
