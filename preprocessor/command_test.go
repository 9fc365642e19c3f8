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
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/seqprep/core"
)

func TestSubstitute(t *testing.T) {
	line := Substitute("mask IN_FILE -o OUT_FILE -t TEMP_DIR -p PROPORTION_SAMPLED", "/in/c0", "/out/c0", "/tmp/x", 0.25)
	assert.Equal(t, `mask "/in/c0" -o "/out/c0" -t "/tmp/x" -p 0.25`, line)
}

func TestSubstitute_Order(t *testing.T) {
	// The input path is substituted first, so a placeholder name inside it is
	// itself replaced by the later passes.
	line := Substitute("run IN_FILE", "/data/OUT_FILE", "/out", "/tmp", 1)
	assert.Equal(t, `run "/data/"/out""`, line)

	line = Substitute("run OUT_FILE", "/in", "/data/IN_FILE", "/tmp", 1)
	assert.Equal(t, `run "/data/IN_FILE"`, line)
}

func TestFormatProportion(t *testing.T) {
	assert.Equal(t, "1.0", FormatProportion(1))
	assert.Equal(t, "0.5", FormatProportion(0.5))
	assert.Equal(t, "0.3333333333333333", FormatProportion(1.0/3))
	assert.Equal(t, "1e-05", FormatProportion(0.00001))
}

func TestShellRunner(t *testing.T) {
	r := NewShellRunner("", nil)
	ctx := context.Background()

	t.Run("captures stdout and reads stdin", func(t *testing.T) {
		out, err := r.Run(ctx, Invocation{Command: "cat", Stdin: "a b c"})
		require.NoError(t, err)
		assert.Equal(t, "a b c", string(out))
	})

	t.Run("streams stdout to writer", func(t *testing.T) {
		var buf bytes.Buffer
		out, err := r.Run(ctx, Invocation{Command: "echo merged", Stdout: &buf})
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Equal(t, "merged\n", buf.String())
	})

	t.Run("reports exit status", func(t *testing.T) {
		_, err := r.Run(ctx, Invocation{Command: "echo oops >&2; exit 3"})
		require.Error(t, err)
		var toolErr *core.ToolError
		require.True(t, errors.As(err, &toolErr))
		assert.Equal(t, 3, toolErr.ExitCode)
		assert.Equal(t, "oops", toolErr.Stderr)
		assert.False(t, core.IsFatal(err))
	})
}

func TestExternalChunker(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "chunker.sh")
	// Echo the arguments back as chunk paths, with blank lines mixed in.
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho \"$1\"\necho\necho \"$2:$3:$4:$5\"\n"), 0o755))

	c := &ExternalChunker{Command: script, LogLevel: "DEBUG", Runner: NewShellRunner("", nil)}
	chunks, err := c.Chunk(context.Background(), "/seq/in.fa", 500, "/chunks")
	require.NoError(t, err)
	assert.Equal(t, []string{"DEBUG", "500:0:/chunks:/seq/in.fa"}, chunks)
}
