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

// Package fasta implements the chunking and merge tools the preprocessor
// drives by default. Chunk packs FASTA records into fixed-size chunk files,
// splitting long records into fragments; Merge concatenates processed chunks
// and re-joins those fragments.
package fasta

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLine allows very long single-line sequences (64 MiB).
const maxLine = 64 * 1024 * 1024

// Record is one parsed FASTA record. Header excludes the leading '>'.
type Record struct {
	Header string
	Seq    []byte
}

// multiReadCloser closes multiple io.Closers when Close() is called.
type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open opens a FASTA file, transparently decompressing gzip input and
// treating "-" as stdin.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return decompress(fh, path)
}

// decompress wraps f in a gzip reader when it starts with the gzip magic
// number (1F 8B) or path ends in .gz. f is closed on error.
func decompress(f io.ReadSeekCloser, path string) (io.ReadCloser, error) {
	var sig [2]byte
	n, err := io.ReadFull(f, sig[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		_ = f.Close()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("rewind %s: %w", path, err)
	}
	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) || strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, f}}, nil
	}
	return f, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	return sc
}

// StreamRecords parses FASTA from r and calls emit once per record. Sequence
// lines are concatenated with surrounding whitespace removed. Text before the
// first header is an error.
func StreamRecords(ctx context.Context, r io.Reader, emit func(Record) error) error {
	sc := newScanner(r)

	var (
		header  string
		started bool
		seq     = make([]byte, 0, 1<<20)
	)

	flush := func() error {
		if !started {
			return nil
		}
		rec := Record{Header: header, Seq: append([]byte(nil), seq...)}
		seq = seq[:0]
		return emit(rec)
	}

	for sc.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			header = string(bytes.TrimRight(line[1:], " \t\r"))
			started = true
			continue
		}
		if !started {
			return fmt.Errorf("fasta: sequence data before first header")
		}
		seq = append(seq, bytes.TrimSpace(line)...)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("fasta scan: %w", err)
	}
	return flush()
}
