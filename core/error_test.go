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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"config", NewConfigError("stages.xml", "chunkSize must be positive"), true},
		{"wrapped config", fmt.Errorf("load: %w", NewConfigError("exp.xml", "bad tree")), true},
		{"precondition", &PreconditionError{Op: "link", Path: "a.fa", Err: os.ErrExist}, true},
		{"tool", &ToolError{Command: "mask", ExitCode: 1}, false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "config error: exp.xml: bad tree", NewConfigError("exp.xml", "bad tree").Error())
	assert.Equal(t, "config error: missing stages", (&ConfigError{Msg: "missing stages"}).Error())

	cause := errors.New("unexpected EOF")
	ce := &ConfigError{Source: "stages.xml", Msg: "parse", Err: cause}
	assert.Equal(t, "config error: stages.xml: parse: unexpected EOF", ce.Error())
	assert.ErrorIs(t, ce, cause)

	te := &ToolError{Command: "mask IN OUT", ExitCode: 2, Stderr: "no such file"}
	assert.Equal(t, `tool "mask IN OUT" exited with status 2: no such file`, te.Error())

	te = &ToolError{Command: "mask", ExitCode: -1, Err: errors.New("signal: killed")}
	assert.Equal(t, `tool "mask" exited with status -1: signal: killed`, te.Error())

	pe := &PreconditionError{Op: "create output directory", Path: "/out", Err: os.ErrPermission}
	assert.Equal(t, "precondition create output directory failed for /out: permission denied", pe.Error())
	assert.ErrorIs(t, pe, os.ErrPermission)
}

func TestErrorHandlerFunc(t *testing.T) {
	var seen Record
	h := ErrorHandlerFunc(func(ctx context.Context, record Record, err error) error {
		seen = record
		return nil
	})
	assert.NoError(t, h.HandleError(context.Background(), Record{"task_id": "x"}, errors.New("bad")))
	assert.Equal(t, Record{"task_id": "x"}, seen)
}
