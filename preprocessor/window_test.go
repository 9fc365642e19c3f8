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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunkNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("c%d", i)
	}
	return out
}

func TestSampleCount(t *testing.T) {
	tests := []struct {
		n    int
		p    float64
		want int
	}{
		{n: 20, p: 1.0, want: 20},
		{n: 20, p: 0.5, want: 10},
		{n: 20, p: 0.01, want: 1},
		{n: 7, p: 0.3, want: 3},
		{n: 1, p: 0.2, want: 1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d p=%v", tt.n, tt.p), func(t *testing.T) {
			assert.Equal(t, tt.want, SampleCount(tt.n, tt.p))
		})
	}
}

func TestNewChunkWindow_Properties(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 10, 20, 37} {
		for _, p := range []float64{0.05, 0.1, 0.25, 0.5, 0.75, 0.99, 1.0} {
			chunks := chunkNames(n)
			k := SampleCount(n, p)
			for i := 0; i < n; i++ {
				w, err := NewChunkWindow(chunks, i, p)
				require.NoError(t, err)

				assert.Equal(t, k, w.Size(), "n=%d p=%v i=%d", n, p, i)
				assert.Equal(t, max(0, i-k/2), w.Start)

				seen := make(map[string]bool)
				for _, c := range w.Chunks {
					assert.False(t, seen[c], "duplicate %s in n=%d p=%v i=%d", c, n, p, i)
					seen[c] = true
				}

				// Entries follow list order from Start, wrapping to the front.
				for off, c := range w.Chunks {
					assert.Equal(t, chunks[(w.Start+off)%n], c)
				}
			}
		}
	}
}

func TestNewChunkWindow_Examples(t *testing.T) {
	chunks := chunkNames(10)

	w, err := NewChunkWindow(chunks, 5, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c4", "c5", "c6", "c7"}, w.Chunks)

	w, err = NewChunkWindow(chunks, 0, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c1", "c2", "c3", "c4"}, w.Chunks, "start is clamped at the front")

	w, err = NewChunkWindow(chunks, 9, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []string{"c7", "c8", "c9", "c0", "c1"}, w.Chunks, "window wraps past the end")
	assert.InDelta(t, 0.5, w.Proportion(len(chunks)), 1e-9)

	w, err = NewChunkWindow(chunkNames(20), 13, 1.0)
	require.NoError(t, err)
	assert.Equal(t, 20, w.Size())
}

func TestNewChunkWindow_Errors(t *testing.T) {
	_, err := NewChunkWindow(nil, 0, 1)
	assert.Error(t, err)

	_, err = NewChunkWindow(chunkNames(3), 3, 1)
	assert.Error(t, err)

	_, err = NewChunkWindow(chunkNames(3), 0, 0)
	assert.Error(t, err)

	_, err = NewChunkWindow(chunkNames(3), 0, 1.5)
	assert.Error(t, err)
}
