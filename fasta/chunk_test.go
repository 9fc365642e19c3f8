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

package fasta

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFasta(t *testing.T, dir, name string, records ...Record) string {
	t.Helper()
	var b strings.Builder
	for _, r := range records {
		b.WriteString(">" + r.Header + "\n")
		for i := 0; i < len(r.Seq); i += 60 {
			end := min(i+60, len(r.Seq))
			b.Write(r.Seq[i:end])
			b.WriteString("\n")
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func bases(n int) []byte {
	return bytes.Repeat([]byte("ACGT"), n/4+1)[:n]
}

func readAll(t *testing.T, path string) []Record {
	t.Helper()
	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	var out []Record
	require.NoError(t, StreamRecords(context.Background(), f, func(r Record) error {
		out = append(out, r)
		return nil
	}))
	return out
}

func TestChunk_SplitsLongRecord(t *testing.T) {
	dir := t.TempDir()
	in := writeFasta(t, dir, "in.fa", Record{Header: "chr1 primary", Seq: bases(10000)})

	paths, err := ChunkFile(context.Background(), in, ChunkOptions{ChunkSize: 1000, OutDir: filepath.Join(dir, "chunks")})
	require.NoError(t, err)
	require.Len(t, paths, 10)

	for i, p := range paths {
		recs := readAll(t, p)
		require.Len(t, recs, 1)
		assert.Len(t, recs[0].Seq, 1000)
		base, off, ok := splitFragmentHeader(recs[0].Header)
		require.True(t, ok)
		assert.Equal(t, "chr1 primary", base)
		assert.Equal(t, i*1000, off)
	}
}

func TestChunk_PacksSmallRecords(t *testing.T) {
	dir := t.TempDir()
	in := writeFasta(t, dir, "in.fa",
		Record{Header: "a", Seq: bases(300)},
		Record{Header: "b", Seq: bases(300)},
		Record{Header: "c", Seq: bases(300)},
		Record{Header: "d", Seq: bases(300)},
	)

	paths, err := ChunkFile(context.Background(), in, ChunkOptions{ChunkSize: 1000, OutDir: dir + "/out"})
	require.NoError(t, err)
	require.Len(t, paths, 2)

	first := readAll(t, paths[0])
	require.Len(t, first, 4)
	assert.Equal(t, []string{"a", "b", "c"}, []string{first[0].Header, first[1].Header, first[2].Header})
	_, off, ok := splitFragmentHeader(first[3].Header)
	require.True(t, ok)
	assert.Equal(t, 0, off)
	assert.Len(t, first[3].Seq, 100)

	second := readAll(t, paths[1])
	require.Len(t, second, 1)
	assert.Equal(t, "d"+FragmentTag+"100", second[0].Header)
}

func TestChunk_RejectsBadOptions(t *testing.T) {
	_, err := Chunk(context.Background(), strings.NewReader(">a\nAC\n"), ChunkOptions{ChunkSize: 0, OutDir: t.TempDir()})
	assert.Error(t, err)

	_, err = Chunk(context.Background(), strings.NewReader(">a\nAC\n"), ChunkOptions{ChunkSize: 10, Overlap: 5, OutDir: t.TempDir()})
	assert.ErrorIs(t, err, ErrOverlap)

	_, err = Chunk(context.Background(), strings.NewReader("ACGT\n"), ChunkOptions{ChunkSize: 10, OutDir: t.TempDir()})
	assert.Error(t, err)
}

func TestChunkThenMerge_RestoresRecords(t *testing.T) {
	dir := t.TempDir()
	original := []Record{
		{Header: "chr1", Seq: bases(2500)},
		{Header: "chr2 desc", Seq: bases(120)},
		{Header: "chr3", Seq: bases(1700)},
	}
	in := writeFasta(t, dir, "in.fa", original...)

	paths, err := ChunkFile(context.Background(), in, ChunkOptions{ChunkSize: 1000, OutDir: dir + "/chunks"})
	require.NoError(t, err)

	out := filepath.Join(dir, "merged.fa")
	f, err := os.Create(out)
	require.NoError(t, err)
	require.NoError(t, MergeFiles(context.Background(), f, paths))
	require.NoError(t, f.Close())

	merged := readAll(t, out)
	require.Len(t, merged, len(original))
	for i := range original {
		assert.Equal(t, original[i].Header, merged[i].Header)
		assert.Equal(t, string(original[i].Seq), string(merged[i].Seq))
	}
}

func TestMerge_PassesPlainRecordsThrough(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.fa")
	b := filepath.Join(dir, "b.fa")
	require.NoError(t, os.WriteFile(a, []byte(">x\nAC\nGT\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(">y\nnnnn\n"), 0o644))

	var buf bytes.Buffer
	require.NoError(t, MergeFiles(context.Background(), &buf, []string{a, b}))
	assert.Equal(t, ">x\nAC\nGT\n>y\nnnnn\n", buf.String())
}

func TestReadPathList(t *testing.T) {
	paths, err := ReadPathList(strings.NewReader("a.fa b.fa\n c.fa\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.fa", "b.fa", "c.fa"}, paths)
}

func TestOpen_Gzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.fa.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	_, err = gw.Write([]byte(">seq1\nACGT\n>seq2\nNNnn\n"))
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.NoError(t, f.Close())

	recs := readAll(t, path)
	require.Len(t, recs, 2)
	assert.Equal(t, "seq1", recs[0].Header)
	assert.Equal(t, "NNnn", string(recs[1].Seq))
}

func TestOpen_ReportsReadError(t *testing.T) {
	_, err := Open(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read ")
}

func TestOpen_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.fa")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	assert.Empty(t, readAll(t, path))
}

type unseekable struct {
	*strings.Reader
	closed bool
}

func (u *unseekable) Seek(int64, int) (int64, error) { return 0, errors.New("illegal seek") }
func (u *unseekable) Close() error                   { u.closed = true; return nil }

func TestDecompress_ReportsSeekError(t *testing.T) {
	f := &unseekable{Reader: strings.NewReader(">a\nACGT\n")}
	_, err := decompress(f, "pipe.fa")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal seek")
	assert.True(t, f.closed)
}
