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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seqprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
engine:
  max_workers: 8
  max_cpu: 16
  max_memory: 34359738368
  retries: 4
  retry_backoff: 500ms
  fail_fast: true
  work_dir: /scratch
tools:
  chunker: cactus_blast_chunkSequences
  merger: cactus_batch_mergeChunks
report:
  sink: s3://reports/run.parquet
ledger:
  path: /var/lib/seqprep/ledger.db
s3:
  region: us-west-2
  path_style: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stderr", cfg.Log.Output)
	assert.Equal(t, 8, cfg.Engine.MaxWorkers)
	assert.Equal(t, 16, cfg.Engine.MaxCPU)
	assert.Equal(t, int64(32<<30), cfg.Engine.MaxMemory)
	assert.Equal(t, 4, cfg.Engine.Retries)
	assert.Equal(t, 500*time.Millisecond, cfg.Engine.RetryBackoff)
	assert.True(t, cfg.Engine.FailFast)
	assert.Equal(t, "/scratch", cfg.Engine.WorkDir)
	assert.Equal(t, "cactus_blast_chunkSequences", cfg.Tools.Chunker)
	assert.Equal(t, "/bin/sh", cfg.Tools.Shell)
	assert.Equal(t, "s3://reports/run.parquet", cfg.Report.Sink)
	assert.Equal(t, "/var/lib/seqprep/ledger.db", cfg.Ledger.Path)
	assert.Equal(t, "us-west-2", cfg.S3.Region)
	assert.True(t, cfg.S3.PathStyle)
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 2, cfg.Engine.Retries)
	assert.Equal(t, 2*time.Second, cfg.Engine.RetryBackoff)
	assert.Equal(t, "INFO", cfg.Tools.LogLevel)
	assert.Empty(t, cfg.Report.Sink)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SEQPREP_ENGINE_MAX_WORKERS", "3")
	t.Setenv("SEQPREP_LOG_LEVEL", "warn")
	t.Setenv("SEQPREP_S3_ACCESS_KEY_ID", "AKIDEXAMPLE")
	t.Setenv("SEQPREP_S3_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Engine.MaxWorkers)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "AKIDEXAMPLE", cfg.S3.AccessKeyID)
	assert.Equal(t, "secret", cfg.S3.SecretAccessKey)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	tests := map[string]string{
		"log level":  "log:\n  level: loud\n",
		"log format": "log:\n  format: xml\n",
		"log file":   "log:\n  output: file\n",
		"workers":    "engine:\n  max_workers: -1\n",
		"retries":    "engine:\n  retries: -2\n",
		"shell":      "tools:\n  shell: \"\"\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, content))
			assert.ErrorContains(t, err, "config validation failed")
		})
	}
}
