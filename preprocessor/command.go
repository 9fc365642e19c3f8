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
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/aaronlmathis/seqprep/core"
)

// stderrTail bounds how much of a failed tool's stderr is kept in errors.
const stderrTail = 4096

// Invocation is one external command run.
type Invocation struct {
	// Command is a shell command line.
	Command string
	// Stdin is written to the command's standard input.
	Stdin string
	// Stdout receives the command's output. When nil the output is captured
	// and returned by Run.
	Stdout io.Writer
}

// Runner executes external tools.
type Runner interface {
	Run(ctx context.Context, inv Invocation) ([]byte, error)
}

// ShellRunner runs command lines through a POSIX shell.
type ShellRunner struct {
	Shell  string
	Env    []string
	Logger *slog.Logger
}

// NewShellRunner creates a runner using shell, or /bin/sh when empty.
func NewShellRunner(shell string, logger *slog.Logger) *ShellRunner {
	if shell == "" {
		shell = "/bin/sh"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ShellRunner{Shell: shell, Logger: logger}
}

// Run executes inv.Command with "-c". A non-zero exit is reported as a
// *core.ToolError carrying the tail of stderr.
func (r *ShellRunner) Run(ctx context.Context, inv Invocation) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Shell, "-c", inv.Command)
	if len(r.Env) > 0 {
		cmd.Env = r.Env
	}
	cmd.Stdin = strings.NewReader(inv.Stdin)

	var captured bytes.Buffer
	if inv.Stdout != nil {
		cmd.Stdout = inv.Stdout
	} else {
		cmd.Stdout = &captured
	}
	stderr := &tailBuffer{limit: stderrTail}
	cmd.Stderr = stderr

	r.Logger.Debug("running tool", "command", inv.Command)
	if err := cmd.Run(); err != nil {
		toolErr := &core.ToolError{Command: inv.Command, ExitCode: -1, Stderr: strings.TrimSpace(stderr.String()), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			toolErr.ExitCode = exitErr.ExitCode()
		}
		return nil, toolErr
	}
	return captured.Bytes(), nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }

// Substitute fills a stage command template. Replacements are applied in a
// fixed order: input path, output path, temp dir, then sampled proportion.
// Paths are double-quoted.
func Substitute(template, inFile, outFile, tempDir string, proportion float64) string {
	line := strings.ReplaceAll(template, PlaceholderInFile, quote(inFile))
	line = strings.ReplaceAll(line, PlaceholderOutFile, quote(outFile))
	line = strings.ReplaceAll(line, PlaceholderTempDir, quote(tempDir))
	return strings.ReplaceAll(line, PlaceholderProportion, FormatProportion(proportion))
}

// FormatProportion renders p the way stage commands expect it: shortest
// decimal form, always with a fractional part ("1.0", "0.5").
func FormatProportion(p float64) string {
	s := strconv.FormatFloat(p, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	return "\"" + s + "\""
}
