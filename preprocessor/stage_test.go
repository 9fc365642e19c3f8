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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/dag/tasks"
)

func TestParseStages(t *testing.T) {
	doc := `<cactus_workflow_config>
	<constants defaultMemory="100"/>
	<preprocessor preprocessorString="mask IN_FILE OUT_FILE" chunkSize="10000" memory="2000000000" cpu="4" check="1" proportionToSample="0.2"/>
	<preprocessor preprocessorString="filter IN_FILE OUT_FILE TEMP_DIR"/>
</cactus_workflow_config>`

	stages, err := ParseStages(strings.NewReader(doc), "config.xml")
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.Equal(t, StageConfig{
		Command:            "mask IN_FILE OUT_FILE",
		ChunkSize:          10000,
		Resources:          tasks.Resources{Memory: 2000000000, CPU: 4},
		Check:              true,
		ProportionToSample: 0.2,
	}, stages[0])
	assert.True(t, stages[0].Chunked())

	assert.Equal(t, DefaultStage("filter IN_FILE OUT_FILE TEMP_DIR"), stages[1])
	assert.Equal(t, -1, stages[1].ChunkSize)
	assert.Equal(t, 1.0, stages[1].ProportionToSample)
	assert.Equal(t, tasks.Resources{}, stages[1].Resources)
	assert.False(t, stages[1].Chunked())
}

func TestParseStages_NoStages(t *testing.T) {
	stages, err := ParseStages(strings.NewReader(`<config><other/></config>`), "empty.xml")
	require.NoError(t, err)
	assert.Empty(t, stages)
}

func TestParseStages_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing command":    `<c><preprocessor chunkSize="10"/></c>`,
		"bad chunk size":     `<c><preprocessor preprocessorString="x" chunkSize="ten"/></c>`,
		"negative cpu":       `<c><preprocessor preprocessorString="x" cpu="-2"/></c>`,
		"zero proportion":    `<c><preprocessor preprocessorString="x" proportionToSample="0"/></c>`,
		"proportion above 1": `<c><preprocessor preprocessorString="x" proportionToSample="1.5"/></c>`,
		"bad check":          `<c><preprocessor preprocessorString="x" check="maybe"/></c>`,
		"malformed xml":      `<c><preprocessor`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStages(strings.NewReader(doc), "bad.xml")
			require.Error(t, err)
			var ce *core.ConfigError
			assert.True(t, errors.As(err, &ce))
			assert.True(t, core.IsFatal(err))
		})
	}
}

func TestLoadStages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.xml")
	require.NoError(t, os.WriteFile(path, []byte(`<c><preprocessor preprocessorString="x" check="true"/></c>`), 0o644))

	stages, err := LoadStages(path)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.True(t, stages[0].Check)

	_, err = LoadStages(filepath.Join(t.TempDir(), "missing.xml"))
	assert.Error(t, err)
}
