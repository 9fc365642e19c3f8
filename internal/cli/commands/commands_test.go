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

package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/seqprep/experiment"
	"github.com/aaronlmathis/seqprep/internal/cli/ui"
)

// execute runs the root command with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	ui.Out = &out
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		ui.Out = os.Stdout
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		configPath = ""
		preprocessExperiment, preprocessExperimentOut, preprocessReport = "", "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestChunkThenMerge(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, filepath.Join(dir, "in.fa"), ">a\nACGTAC\n>b\nGGGTTT\n")

	out, err := execute(t, "chunk", "INFO", "10", "0", filepath.Join(dir, "chunks"), input)
	require.NoError(t, err)
	paths := strings.Fields(out)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "chunks", "chunk_0.fa"), paths[0])

	rootCmd.SetIn(strings.NewReader(strings.Join(paths, " ")))
	merged, err := execute(t, "merge")
	require.NoError(t, err)
	assert.Equal(t, ">a\nACGTAC\n>b\nGGGT\nTT\n", merged)
}

func TestChunk_BadArguments(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "chunk", "INFO", "ten", "0", dir, filepath.Join(dir, "in.fa"))
	assert.ErrorContains(t, err, "invalid chunk size")

	input := writeFile(t, filepath.Join(dir, "in.fa"), ">a\nACGT\n")
	_, err = execute(t, "chunk", "INFO", "10", "5", dir, input)
	assert.Error(t, err)
}

func TestExperimentCommands(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "exp.xml")
	human := writeFile(t, filepath.Join(dir, "human.fa"), ">h\nACGT\n")
	chimp := writeFile(t, filepath.Join(dir, "chimp.fa"), ">c\nACGT\n")

	out, err := execute(t, "experiment", "create", "(human:0.1,chimp:0.2)anc;", filepath.Join(dir, "work"), file, human, chimp)
	require.NoError(t, err)
	assert.Contains(t, out, file)

	exp, err := experiment.Load(file)
	require.NoError(t, err)
	seq, ok := exp.Sequence("chimp")
	require.True(t, ok)
	assert.Equal(t, chimp, seq)

	out, err = execute(t, "experiment", "show", file)
	require.NoError(t, err)
	assert.Contains(t, out, "human")
	assert.Contains(t, out, "anc")

	out, err = execute(t, "experiment", "check", file)
	require.NoError(t, err)
	assert.Contains(t, out, "2 sequences")

	require.NoError(t, os.Remove(chimp))
	_, err = execute(t, "experiment", "check", file)
	assert.ErrorContains(t, err, "1 of 2 sequences")
}

func TestExperimentCreate_SequenceMismatch(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "experiment", "create", "(a,b)r;", dir, filepath.Join(dir, "exp.xml"), "a.fa")
	assert.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "exp.xml"))
}

func TestPreprocess_LedgerAndReport(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "in", "a.fa"), ">a\nacgt\n")
	b := writeFile(t, filepath.Join(dir, "in", "b.fa"), ">b\nttga\n")
	stages := writeFile(t, filepath.Join(dir, "stages.xml"),
		`<config><preprocessor preprocessorString="tr a-z A-Z &lt; IN_FILE &gt; OUT_FILE"/></config>`)
	cfg := writeFile(t, filepath.Join(dir, "seqprep.yaml"), strings.Join([]string{
		"log:",
		"  level: error",
		"engine:",
		"  retries: 0",
		"  work_dir: " + filepath.Join(dir, "work"),
		"ledger:",
		"  path: " + filepath.Join(dir, "ledger.db"),
		"report:",
		"  sink: " + filepath.Join(dir, "report.jsonl"),
	}, "\n")+"\n")
	outDir := filepath.Join(dir, "out")

	out, err := execute(t, "--config", cfg, "preprocess", outDir, stages, a, b)
	require.NoError(t, err)
	assert.Contains(t, out, "preprocessed 2 sequences")

	data, err := os.ReadFile(filepath.Join(outDir, "a.fa"))
	require.NoError(t, err)
	assert.Equal(t, ">A\nACGT\n", string(data))
	data, err = os.ReadFile(filepath.Join(outDir, "b.fa"))
	require.NoError(t, err)
	assert.Equal(t, ">B\nTTGA\n", string(data))

	out, err = execute(t, "--config", cfg, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")

	out, err = execute(t, "--config", cfg, "report", "summary", filepath.Join(dir, "report.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, out, "preprocess_chunk")
	assert.Contains(t, out, "total")

	out, err = execute(t, "--config", cfg, "report", "check", filepath.Join(dir, "report.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, out, "rows valid")

	csvPath := filepath.Join(dir, "chunks.csv")
	_, err = execute(t, "--config", cfg, "report", "export", filepath.Join(dir, "report.jsonl"), csvPath,
		"--type", "preprocess_chunk", "--fields", "task_id,success")
	require.NoError(t, err)
	data, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "task_id,success", lines[0])
	assert.Len(t, lines, 3)

	// Outputs exist now, so a second run skips both sequences.
	_, err = execute(t, "--config", cfg, "preprocess", outDir, stages, a, b)
	require.NoError(t, err)
}

func TestPreprocess_ExperimentOut(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	a := writeFile(t, filepath.Join(dir, "in", "a.fa"), ">a\nAC\n")
	b := writeFile(t, filepath.Join(dir, "in", "b.fa"), ">b\nGT\n")
	stages := writeFile(t, filepath.Join(dir, "stages.xml"), `<config/>`)
	expPath := filepath.Join(dir, "exp.xml")
	_, err := execute(t, "experiment", "create", "(a,b)r;", filepath.Join(dir, "work"), expPath, a, b)
	require.NoError(t, err)

	outDir := filepath.Join(dir, "out")
	nextPath := filepath.Join(dir, "exp.next.xml")
	_, err = execute(t, "preprocess", outDir, stages, "--experiment", expPath, "--experiment-out", nextPath)
	require.NoError(t, err)

	next, err := experiment.Load(nextPath)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Version)
	assert.Equal(t, []string{filepath.Join(outDir, "a.fa"), filepath.Join(outDir, "b.fa")}, next.Sequences)
	assert.FileExists(t, filepath.Join(outDir, "a.fa"))
}

func TestPreprocess_ExperimentOutNeedsExperiment(t *testing.T) {
	_, err := execute(t, "preprocess", t.TempDir(), "stages.xml", "--experiment-out", "x.xml")
	assert.ErrorContains(t, err, "--experiment-out requires --experiment")
}
