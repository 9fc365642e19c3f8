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

// Package ledger keeps a SQLite record of preprocessing runs and of what
// happened to every input sequence in them.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/aaronlmathis/seqprep/preprocessor"
)

// RunStatus is the state of a run.
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("run not found")

// Run is one invocation of the preprocessor.
type Run struct {
	ID        string
	OutDir    string
	Config    string
	Status    RunStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SequenceEntry records how one input was handled in a run.
type SequenceEntry struct {
	RunID     string
	Input     string
	Output    string
	Outcome   preprocessor.Outcome
	CreatedAt time.Time
}

// Ledger is a handle on the ledger database.
type Ledger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	out_dir TEXT,
	config TEXT,
	status TEXT,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS sequences (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT,
	input TEXT,
	output TEXT,
	outcome TEXT,
	created_at DATETIME
);
CREATE INDEX IF NOT EXISTS sequences_run ON sequences(run_id);
`

// Open opens the ledger at path, creating the file and its tables if needed.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger tables: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// StartRun records a new running run and returns it.
func (l *Ledger) StartRun(ctx context.Context, outDir, config string) (Run, error) {
	now := time.Now().UTC()
	run := Run{
		ID:        uuid.NewString(),
		OutDir:    outDir,
		Config:    config,
		Status:    StatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, out_dir, config, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.OutDir, run.Config, run.Status, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("start run: %w", err)
	}
	return run, nil
}

// FinishRun sets the final status of a run.
func (l *Ledger) FinishRun(ctx context.Context, id string, status RunStatus) error {
	res, err := l.db.ExecContext(ctx, `UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// GetRun fetches one run.
func (l *Ledger) GetRun(ctx context.Context, id string) (Run, error) {
	var run Run
	err := l.db.QueryRowContext(ctx,
		`SELECT id, out_dir, config, status, created_at, updated_at FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &run.OutDir, &run.Config, &run.Status, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, out_dir, config, status, created_at, updated_at FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.OutDir, &run.Config, &run.Status, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordSequence stores the outcome of one input in a run.
func (l *Ledger) RecordSequence(ctx context.Context, runID, input, output string, outcome preprocessor.Outcome) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO sequences (run_id, input, output, outcome, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, input, output, string(outcome), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record sequence %s: %w", input, err)
	}
	return nil
}

// ListSequences returns the inputs of a run in the order they were handled.
func (l *Ledger) ListSequences(ctx context.Context, runID string) ([]SequenceEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, input, output, outcome, created_at FROM sequences WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var entries []SequenceEntry
	for rows.Next() {
		var e SequenceEntry
		if err := rows.Scan(&e.RunID, &e.Input, &e.Output, &e.Outcome, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("list sequences: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Observer returns a preprocessor.SequenceObserver that records into runID.
func (l *Ledger) Observer(runID string) preprocessor.SequenceObserver {
	return &runObserver{ledger: l, runID: runID}
}

type runObserver struct {
	ledger *Ledger
	runID  string
}

func (o *runObserver) SequenceHandled(ctx context.Context, input, output string, outcome preprocessor.Outcome) error {
	return o.ledger.RecordSequence(ctx, o.runID, input, output, outcome)
}
