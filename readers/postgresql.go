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

package readers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/aaronlmathis/seqprep/core"
)

// PostgresReaderError provides structured error information for Postgres reader operations
type PostgresReaderError struct {
	Op  string // Operation that failed (e.g., "connect", "query", "scan", "read")
	Err error
}

func (e *PostgresReaderError) Error() string {
	return fmt.Sprintf("postgres reader %s: %v", e.Op, e.Err)
}

func (e *PostgresReaderError) Unwrap() error {
	return e.Err
}

// PostgresReaderOptions configures the Postgres reader
type PostgresReaderOptions struct {
	DSN          string
	Query        string
	Params       []interface{}
	QueryTimeout time.Duration // connect and ping timeout
	MaxOpenConns int
}

// PostgresReaderOption represents a configuration function for PostgresReaderOptions
type PostgresReaderOption func(*PostgresReaderOptions)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.DSN = dsn
	}
}

// WithPostgresQuery sets the SQL query and optional parameters.
func WithPostgresQuery(query string, params ...interface{}) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.Query = query
		opts.Params = append([]interface{}(nil), params...)
	}
}

// WithPostgresQueryTimeout sets the connection timeout.
func WithPostgresQueryTimeout(timeout time.Duration) PostgresReaderOption {
	return func(opts *PostgresReaderOptions) {
		opts.QueryTimeout = timeout
	}
}

// PostgresReader implements core.DataSource by streaming the rows of one
// query. Each row becomes a record keyed by column name.
type PostgresReader struct {
	mu      sync.Mutex
	db      *sql.DB
	rows    *sql.Rows
	columns []string
	read    int64
}

// NewPostgresReader connects, runs the query and returns a reader positioned
// before the first row.
func NewPostgresReader(ctx context.Context, options ...PostgresReaderOption) (*PostgresReader, error) {
	opts := PostgresReaderOptions{
		QueryTimeout: 30 * time.Second,
		MaxOpenConns: 2,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.DSN == "" {
		return nil, &PostgresReaderError{Op: "validate", Err: fmt.Errorf("dsn is required")}
	}
	if opts.Query == "" {
		return nil, &PostgresReaderError{Op: "validate", Err: fmt.Errorf("query is required")}
	}

	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, &PostgresReaderError{Op: "connect", Err: err}
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, opts.QueryTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, &PostgresReaderError{Op: "ping", Err: err}
	}

	rows, err := db.QueryContext(ctx, opts.Query, opts.Params...)
	if err != nil {
		db.Close()
		return nil, &PostgresReaderError{Op: "query", Err: err}
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		db.Close()
		return nil, &PostgresReaderError{Op: "columns", Err: err}
	}
	return &PostgresReader{db: db, rows: rows, columns: columns}, nil
}

// Read implements the core.DataSource interface.
func (p *PostgresReader) Read(ctx context.Context) (core.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, &PostgresReaderError{Op: "read", Err: err}
	}
	if p.rows == nil {
		return nil, io.EOF
	}
	if !p.rows.Next() {
		if err := p.rows.Err(); err != nil {
			return nil, &PostgresReaderError{Op: "read", Err: err}
		}
		return nil, io.EOF
	}

	values := make([]interface{}, len(p.columns))
	ptrs := make([]interface{}, len(p.columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := p.rows.Scan(ptrs...); err != nil {
		return nil, &PostgresReaderError{Op: "scan", Err: err}
	}

	record := make(core.Record, len(p.columns))
	for i, col := range p.columns {
		record[col] = convertSQLValue(values[i])
	}
	p.read++
	return record, nil
}

// RecordsRead returns the number of rows returned so far.
func (p *PostgresReader) RecordsRead() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.read
}

// Close implements the core.DataSource interface.
func (p *PostgresReader) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	if p.rows != nil {
		err = p.rows.Close()
		p.rows = nil
	}
	if p.db != nil {
		if cerr := p.db.Close(); err == nil {
			err = cerr
		}
		p.db = nil
	}
	if err != nil {
		return &PostgresReaderError{Op: "close", Err: err}
	}
	return nil
}

// convertSQLValue maps driver values onto record values: text comes back as
// string and every integer width as int64.
func convertSQLValue(value interface{}) interface{} {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case int32:
		return int64(v)
	case int:
		return int64(v)
	case float32:
		return float64(v)
	default:
		return v
	}
}
