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

package preprocessor

import (
	"fmt"
	"math"
)

// ChunkWindow is the set of chunks handed to the command that processes one
// chunk. It is centred on the chunk where the list allows and wraps to the
// front of the list when it would run past the end.
type ChunkWindow struct {
	Index  int
	Start  int
	Chunks []string
}

// Size returns the number of chunks in the window.
func (w ChunkWindow) Size() int {
	return len(w.Chunks)
}

// SampleCount returns ceil(n*p) clamped to [1, n].
func SampleCount(n int, p float64) int {
	k := int(math.Ceil(float64(n) * p))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// NewChunkWindow selects SampleCount(len(chunks), p) chunks starting at
// max(0, i-k/2). Since k never exceeds the number of chunks, the wrapped
// segment never overlaps the tail and the window holds k distinct chunks.
func NewChunkWindow(chunks []string, i int, p float64) (ChunkWindow, error) {
	n := len(chunks)
	if n == 0 {
		return ChunkWindow{}, fmt.Errorf("chunk window: empty chunk list")
	}
	if i < 0 || i >= n {
		return ChunkWindow{}, fmt.Errorf("chunk window: index %d out of range [0, %d)", i, n)
	}
	if !(p > 0 && p <= 1) {
		return ChunkWindow{}, fmt.Errorf("chunk window: proportion %v out of range (0, 1]", p)
	}

	k := SampleCount(n, p)
	j := max(0, i-k/2)

	window := make([]string, 0, k)
	window = append(window, chunks[j:min(j+k, n)]...)
	if short := k - len(window); short > 0 {
		window = append(window, chunks[:short]...)
	}
	return ChunkWindow{Index: i, Start: j, Chunks: window}, nil
}

// Proportion is the fraction of all chunks the window covers.
func (w ChunkWindow) Proportion(total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(len(w.Chunks)) / float64(total)
}
