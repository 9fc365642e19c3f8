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
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// Placeholders substituted into a stage command line.
const (
	PlaceholderInFile     = "IN_FILE"
	PlaceholderOutFile    = "OUT_FILE"
	PlaceholderTempDir    = "TEMP_DIR"
	PlaceholderProportion = "PROPORTION_SAMPLED"
)

// StageConfig describes one preprocessing stage.
type StageConfig struct {
	// Command is the shell command template run once per chunk.
	Command string
	// ChunkSize is the target chunk size in bases. Zero or negative processes
	// the whole input as one chunk.
	ChunkSize int
	// Resources are the memory and CPU hints for the stage's tasks.
	Resources tasks.Resources
	// Check copies each input chunk over its output after the command runs.
	Check bool
	// ProportionToSample is the fraction of chunks handed to the command as
	// context, in (0, 1].
	ProportionToSample float64
}

// DefaultStage returns a stage with every optional field at its default.
func DefaultStage(command string) StageConfig {
	return StageConfig{
		Command:            command,
		ChunkSize:          -1,
		ProportionToSample: 1.0,
	}
}

// Chunked reports whether the stage splits its input.
func (s StageConfig) Chunked() bool {
	return s.ChunkSize > 0
}

// Validate checks the stage's fields.
func (s StageConfig) Validate() error {
	if strings.TrimSpace(s.Command) == "" {
		return fmt.Errorf("preprocessorString is required")
	}
	if s.Resources.Memory < 0 {
		return fmt.Errorf("memory must not be negative, got %d", s.Resources.Memory)
	}
	if s.Resources.CPU < 0 {
		return fmt.Errorf("cpu must not be negative, got %d", s.Resources.CPU)
	}
	if !(s.ProportionToSample > 0 && s.ProportionToSample <= 1) {
		return fmt.Errorf("proportionToSample must be in (0, 1], got %v", s.ProportionToSample)
	}
	return nil
}

type stageDocument struct {
	XMLName       xml.Name
	Preprocessors []stageElement `xml:"preprocessor"`
}

type stageElement struct {
	Command    *string `xml:"preprocessorString,attr"`
	ChunkSize  *string `xml:"chunkSize,attr"`
	Memory     *string `xml:"memory,attr"`
	CPU        *string `xml:"cpu,attr"`
	Check      *string `xml:"check,attr"`
	Proportion *string `xml:"proportionToSample,attr"`
}

// LoadStages reads the ordered stage list from an XML configuration file.
func LoadStages(path string) ([]StageConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &core.ConfigError{Source: path, Msg: "open stage configuration", Err: err}
	}
	defer f.Close()
	return ParseStages(f, path)
}

// ParseStages reads every <preprocessor> child of the document root, in
// document order. source names the input in errors.
func ParseStages(r io.Reader, source string) ([]StageConfig, error) {
	var doc stageDocument
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &core.ConfigError{Source: source, Msg: "parse stage configuration", Err: err}
	}

	stages := make([]StageConfig, 0, len(doc.Preprocessors))
	for i, el := range doc.Preprocessors {
		stage, err := el.toStage()
		if err != nil {
			return nil, &core.ConfigError{Source: source, Msg: fmt.Sprintf("preprocessor %d", i), Err: err}
		}
		stages = append(stages, stage)
	}
	return stages, nil
}

func (el stageElement) toStage() (StageConfig, error) {
	var cmd string
	if el.Command != nil {
		cmd = *el.Command
	}
	s := DefaultStage(cmd)

	var err error
	if el.ChunkSize != nil {
		if s.ChunkSize, err = strconv.Atoi(strings.TrimSpace(*el.ChunkSize)); err != nil {
			return s, fmt.Errorf("chunkSize: %w", err)
		}
	}
	if el.Memory != nil {
		if s.Resources.Memory, err = strconv.ParseInt(strings.TrimSpace(*el.Memory), 10, 64); err != nil {
			return s, fmt.Errorf("memory: %w", err)
		}
	}
	if el.CPU != nil {
		if s.Resources.CPU, err = strconv.Atoi(strings.TrimSpace(*el.CPU)); err != nil {
			return s, fmt.Errorf("cpu: %w", err)
		}
	}
	if el.Check != nil {
		if s.Check, err = parseFlag(*el.Check); err != nil {
			return s, fmt.Errorf("check: %w", err)
		}
	}
	if el.Proportion != nil {
		if s.ProportionToSample, err = strconv.ParseFloat(strings.TrimSpace(*el.Proportion), 64); err != nil {
			return s, fmt.Errorf("proportionToSample: %w", err)
		}
	}
	return s, s.Validate()
}

// parseFlag accepts integer flags ("0", "1", ...) as well as true/false.
func parseFlag(v string) (bool, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return n != 0, nil
	}
	return strconv.ParseBool(v)
}
