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
	"fmt"
	"io"
	"strings"
)

// MergeFiles concatenates the FASTA files at paths, in order, into w. Runs of
// consecutive fragments of one record are re-joined under the record's
// original header; every other line is copied unchanged.
func MergeFiles(ctx context.Context, w io.Writer, paths []string) error {
	m := &merger{out: bufio.NewWriter(w)}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := m.mergeFile(path); err != nil {
			return err
		}
	}
	return m.out.Flush()
}

// ReadPathList splits a whitespace-separated list of paths, as the merge tool
// receives it on stdin.
func ReadPathList(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return strings.Fields(string(data)), nil
}

type merger struct {
	out      *bufio.Writer
	fragBase string
	inFrag   bool
}

func (m *merger) mergeFile(path string) error {
	rc, err := Open(path)
	if err != nil {
		return fmt.Errorf("fasta: open chunk: %w", err)
	}
	defer rc.Close()

	sc := newScanner(rc)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, ">") {
			m.header(line[1:])
			continue
		}
		m.out.WriteString(line)
		m.out.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("fasta: read chunk %s: %w", path, err)
	}
	return nil
}

func (m *merger) header(h string) {
	base, off, ok := splitFragmentHeader(h)
	if !ok {
		m.inFrag = false
		m.out.WriteString(">" + h + "\n")
		return
	}
	if off > 0 && m.inFrag && base == m.fragBase {
		return
	}
	m.inFrag = true
	m.fragBase = base
	m.out.WriteString(">" + base + "\n")
}
