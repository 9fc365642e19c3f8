package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/seqprep/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "json", slog.LevelInfo, false)
	require.NoError(t, err)

	WithError(WithRunID(logger, "run-1"), errors.New("boom")).Info("run failed")
	logger.Debug("hidden")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run failed", entry["msg"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{3}`, entry["time"])
}

func TestNew_Errors(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", slog.LevelInfo, false)
	assert.Error(t, err)

	_, err = parseLevel("loud")
	assert.Error(t, err)
}

func TestSetup_File(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	path := filepath.Join(t.TempDir(), "logs", "seqprep.log")
	logger, closer, err := Setup(config.LogConfig{Level: "debug", Format: "text", Output: "file", FilePath: path})
	require.NoError(t, err)

	logger.Debug("chunk scheduled", "chunk_index", 3)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "chunk_index=3")

	_, _, err = Setup(config.LogConfig{Level: "info", Format: "text", Output: "file"})
	assert.Error(t, err)
}

func TestContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, slog.Default(), FromContext(ctx))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	assert.Same(t, logger, FromContext(WithContext(ctx, logger)))
}
