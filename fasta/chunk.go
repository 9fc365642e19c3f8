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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FragmentTag marks a header line written for part of a split record. The
// value is the 0-based offset of the fragment within the record's sequence.
const FragmentTag = " seqprep_frag="

// LineWidth is the sequence line width used when writing chunks.
const LineWidth = 80

// ChunkOptions configures Chunk.
type ChunkOptions struct {
	ChunkSize int    // bases per chunk, must be positive
	Overlap   int    // only 0 is supported
	OutDir    string // directory chunk files are written to
	Prefix    string // chunk file name prefix, "chunk" when empty
}

// ErrOverlap is returned when a non-zero overlap is requested.
var ErrOverlap = errors.New("fasta: overlapping chunks are not supported")

// ChunkFile splits the FASTA file at path into chunk files and returns their
// paths in order.
func ChunkFile(ctx context.Context, path string, opts ChunkOptions) ([]string, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return Chunk(ctx, rc, opts)
}

// Chunk packs the records read from r into files of at most ChunkSize bases.
// A record that does not fit in the space left in the current chunk is split
// into fragments whose headers carry FragmentTag. Records that fit are
// written unchanged apart from line wrapping.
func Chunk(ctx context.Context, r io.Reader, opts ChunkOptions) ([]string, error) {
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("fasta: chunk size must be positive, got %d", opts.ChunkSize)
	}
	if opts.Overlap != 0 {
		return nil, ErrOverlap
	}
	if opts.Prefix == "" {
		opts.Prefix = "chunk"
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("fasta: create chunk dir: %w", err)
	}

	cw := &chunkWriter{opts: opts}
	err := StreamRecords(ctx, r, func(rec Record) error {
		return cw.writeRecord(rec)
	})
	if cerr := cw.close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return cw.paths, nil
}

type chunkWriter struct {
	opts  ChunkOptions
	paths []string
	file  *os.File
	buf   *bufio.Writer
	bases int
}

// space is what the next record can take without being split. A full chunk
// counts as a fresh one since ensureOpen will replace it.
func (c *chunkWriter) space() int {
	if c.file == nil || c.bases >= c.opts.ChunkSize {
		return c.opts.ChunkSize
	}
	return c.opts.ChunkSize - c.bases
}

func (c *chunkWriter) ensureOpen() error {
	if c.file != nil && c.bases < c.opts.ChunkSize {
		return nil
	}
	if err := c.close(); err != nil {
		return err
	}
	path := filepath.Join(c.opts.OutDir, fmt.Sprintf("%s_%d.fa", c.opts.Prefix, len(c.paths)))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fasta: create chunk: %w", err)
	}
	c.file = f
	c.buf = bufio.NewWriter(f)
	c.bases = 0
	c.paths = append(c.paths, path)
	return nil
}

func (c *chunkWriter) close() error {
	if c.file == nil {
		return nil
	}
	err := c.buf.Flush()
	if cerr := c.file.Close(); err == nil {
		err = cerr
	}
	c.file, c.buf = nil, nil
	return err
}

func (c *chunkWriter) writeRecord(rec Record) error {
	if len(rec.Seq) <= c.space() {
		if err := c.ensureOpen(); err != nil {
			return err
		}
		return c.writeFragment(rec.Header, rec.Seq)
	}

	for off := 0; off < len(rec.Seq); {
		if err := c.ensureOpen(); err != nil {
			return err
		}
		n := min(c.space(), len(rec.Seq)-off)
		header := rec.Header + FragmentTag + strconv.Itoa(off)
		if err := c.writeFragment(header, rec.Seq[off:off+n]); err != nil {
			return err
		}
		off += n
	}
	return nil
}

func (c *chunkWriter) writeFragment(header string, seq []byte) error {
	if _, err := c.buf.WriteString(">" + header + "\n"); err != nil {
		return err
	}
	for i := 0; i < len(seq); i += LineWidth {
		end := min(i+LineWidth, len(seq))
		if _, err := c.buf.Write(seq[i:end]); err != nil {
			return err
		}
		if err := c.buf.WriteByte('\n'); err != nil {
			return err
		}
	}
	c.bases += len(seq)
	return nil
}

// splitFragmentHeader returns the original header and the fragment offset
// when header carries FragmentTag.
func splitFragmentHeader(header string) (string, int, bool) {
	i := strings.LastIndex(header, FragmentTag)
	if i < 0 {
		return header, 0, false
	}
	off, err := strconv.Atoi(header[i+len(FragmentTag):])
	if err != nil || off < 0 {
		return header, 0, false
	}
	return header[:i], off, true
}
