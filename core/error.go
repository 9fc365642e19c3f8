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
	"errors"
	"fmt"
)

// Package core defines the error handling types for the SeqPrep library.
//
// This file contains the error taxonomy shared by the preprocessing tasks, the
// experiment descriptor and the report pipeline.

// ErrorHandler defines how errors are handled while streaming report records.
type ErrorHandler interface {
	// HandleError processes an error that occurred for a record.
	// Returning a non-nil error will stop the pipeline; returning nil will continue.
	HandleError(ctx context.Context, record Record, err error) error
}

// ErrorStrategy defines how to handle record errors in a report pipeline.
type ErrorStrategy int

const (
	// FailFast stops processing on the first error encountered.
	FailFast ErrorStrategy = iota
	// SkipErrors continues processing, skipping failed records.
	SkipErrors
)

// ErrorHandlerFunc is a function adapter for the ErrorHandler interface.
type ErrorHandlerFunc func(ctx context.Context, record Record, err error) error

// HandleError implements the ErrorHandler interface for ErrorHandlerFunc.
func (f ErrorHandlerFunc) HandleError(ctx context.Context, record Record, err error) error {
	return f(ctx, record, err)
}

// ConfigError reports a malformed stage file or experiment descriptor, an
// unknown database type, or a sequence/tree count mismatch.
type ConfigError struct {
	Source string
	Msg    string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Msg
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("config error: %s: %v", msg, e.Err)
	}
	return "config error: " + msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError builds a ConfigError with a formatted message.
func NewConfigError(source, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Source: source, Msg: fmt.Sprintf(format, args...)}
}

// ToolError reports a failed external command: the chunker, a per-chunk
// preprocessing command, or the merge tool.
type ToolError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	s := fmt.Sprintf("tool %q exited with status %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		s += ": " + e.Stderr
	}
	if e.Err != nil && e.ExitCode < 0 {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ToolError) Unwrap() error { return e.Err }

// PreconditionError reports a state the pipeline refuses to run in, such as an
// input path equal to its output path or an output directory that cannot be made.
type PreconditionError struct {
	Op   string
	Path string
	Err  error
}

func (e *PreconditionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("precondition %s failed for %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("precondition %s failed: %v", e.Op, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// IsFatal reports whether err must not be retried. Configuration and
// precondition errors are fatal; tool errors are not.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConfigError
	var pe *PreconditionError
	return errors.As(err, &ce) || errors.As(err, &pe)
}
