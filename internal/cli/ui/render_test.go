package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aaronlmathis/seqprep/experiment"
	"github.com/aaronlmathis/seqprep/ledger"
	"github.com/aaronlmathis/seqprep/report"
)

func TestRenderSummary(t *testing.T) {
	out := RenderSummary([]report.Summary{
		{TaskType: "preprocess_chunk", Tasks: 4, Failed: 1, TotalDuration: 3 * time.Second, MaxDuration: time.Second, MaxAttempts: 3},
		{TaskType: "merge_chunks", Tasks: 1, TotalDuration: 200 * time.Millisecond, MaxDuration: 200 * time.Millisecond, MaxAttempts: 1},
	})
	assert.Contains(t, out, "preprocess_chunk")
	assert.Contains(t, out, "merge_chunks")
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "3.2s")
}

func TestRenderRuns(t *testing.T) {
	assert.Contains(t, RenderRuns(nil), "No runs recorded")

	out := RenderRuns([]ledger.Run{{ID: "run-1", Status: ledger.StatusSucceeded, OutDir: "/out", CreatedAt: time.Now(), UpdatedAt: time.Now()}})
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "succeeded")
}

func TestRenderExperiment(t *testing.T) {
	e, err := experiment.New("((human:0.1,chimp:0.2)anc1,gorilla)root;",
		[]string{"human.fa", "chimp.fa", "gorilla.fa"}, "/db")
	require.NoError(t, err)

	out := RenderExperiment(e)
	for _, want := range []string{"version", "tokyo_cabinet", "anc1", "human", "chimp.fa", "gorilla.fa", ":0.1"} {
		assert.Contains(t, out, want)
	}
}
