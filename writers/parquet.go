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

package writers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/apache/arrow/go/v12/arrow"
	"github.com/apache/arrow/go/v12/arrow/array"
	"github.com/apache/arrow/go/v12/arrow/memory"
	"github.com/apache/arrow/go/v12/parquet"
	"github.com/apache/arrow/go/v12/parquet/compress"
	"github.com/apache/arrow/go/v12/parquet/pqarrow"

	"github.com/aaronlmathis/seqprep/core"
)

// ParquetWriterError wraps Parquet-specific write errors with context about the operation.
type ParquetWriterError struct {
	Op  string // Operation that failed (e.g., "schema", "write_batch", "open_file")
	Err error  // Underlying error
}

// Error returns the error string for ParquetWriterError.
func (e *ParquetWriterError) Error() string {
	return fmt.Sprintf("parquet writer %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for ParquetWriterError.
func (e *ParquetWriterError) Unwrap() error {
	return e.Err
}

// ParquetWriterOptions configures the Parquet writer.
type ParquetWriterOptions struct {
	BatchSize    int64                // Number of records to buffer before writing
	Schema       *arrow.Schema        // Pre-defined schema (optional)
	Compression  compress.Compression // Compression algorithm
	RowGroupSize int64
}

// WriterOption represents a configuration function for ParquetWriterOptions.
type WriterOption func(*ParquetWriterOptions)

// WithBatchSize sets the number of records to buffer before writing a batch.
func WithBatchSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.BatchSize = size
	}
}

// WithCompression sets the Parquet compression algorithm.
func WithCompression(compression compress.Compression) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Compression = compression
	}
}

// WithSchema fixes the Arrow schema. Without it the schema is inferred from
// the first record, with columns in sorted order.
func WithSchema(schema *arrow.Schema) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.Schema = schema
	}
}

// WithRowGroupSize sets the row group size for the Parquet file.
func WithRowGroupSize(size int64) WriterOption {
	return func(opts *ParquetWriterOptions) {
		opts.RowGroupSize = size
	}
}

// ParquetWriter implements core.DataSink for Parquet files.
type ParquetWriter struct {
	file         *os.File
	writer       *pqarrow.FileWriter
	schema       *arrow.Schema
	allocator    memory.Allocator
	opts         ParquetWriterOptions
	recordBuffer []core.Record
	written      int64
	closed       bool
	errorState   bool
	mu           sync.Mutex
}

// NewParquetWriter creates a new Parquet writer for a file.
func NewParquetWriter(filename string, options ...WriterOption) (*ParquetWriter, error) {
	opts := ParquetWriterOptions{
		BatchSize:    1000,
		RowGroupSize: 10000,
		Compression:  compress.Codecs.Snappy,
	}
	for _, option := range options {
		option(&opts)
	}

	if dir := filepath.Dir(filename); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &ParquetWriterError{Op: "create_directory", Err: err}
		}
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, &ParquetWriterError{Op: "open_file", Err: err}
	}

	p := &ParquetWriter{
		file:         file,
		allocator:    memory.NewGoAllocator(),
		opts:         opts,
		recordBuffer: make([]core.Record, 0, opts.BatchSize),
	}
	if opts.Schema != nil {
		if err := p.openWriter(opts.Schema); err != nil {
			file.Close()
			return nil, err
		}
	}
	return p, nil
}

// Write implements the core.DataSink interface.
func (p *ParquetWriter) Write(ctx context.Context, record core.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("parquet writer is closed")}
	}
	if p.errorState {
		return &ParquetWriterError{Op: "write", Err: fmt.Errorf("writer is in error state")}
	}

	if p.schema == nil {
		schema, err := inferSchema(record)
		if err != nil {
			p.errorState = true
			return err
		}
		if err := p.openWriter(schema); err != nil {
			p.errorState = true
			return err
		}
	}

	p.recordBuffer = append(p.recordBuffer, record)
	p.written++

	if int64(len(p.recordBuffer)) >= p.opts.BatchSize {
		if err := p.flushBatch(); err != nil {
			p.errorState = true
			return err
		}
	}
	return nil
}

// RecordsWritten returns the number of rows accepted so far.
func (p *ParquetWriter) RecordsWritten() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written
}

// Flush implements the core.DataSink interface.
func (p *ParquetWriter) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushBatch()
}

// Close implements the core.DataSink interface. A writer that never received
// a record still produces a valid file when its schema was given up front.
func (p *ParquetWriter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.flushBatch(); err != nil {
		return err
	}
	if p.writer == nil {
		return p.file.Close()
	}
	if err := p.writer.Close(); err != nil {
		return &ParquetWriterError{Op: "close_writer", Err: err}
	}
	return nil
}

func (p *ParquetWriter) openWriter(schema *arrow.Schema) error {
	props := parquet.NewWriterProperties(
		parquet.WithCompression(p.opts.Compression),
		parquet.WithMaxRowGroupLength(p.opts.RowGroupSize),
	)
	writer, err := pqarrow.NewFileWriter(schema, p.file, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return &ParquetWriterError{Op: "create_writer", Err: err}
	}
	p.schema = schema
	p.writer = writer
	return nil
}

// inferSchema creates an Arrow schema from the first record.
func inferSchema(record core.Record) (*arrow.Schema, error) {
	names := record.Keys()
	fields := make([]arrow.Field, 0, len(names))
	for _, name := range names {
		dataType, err := inferArrowType(record[name])
		if err != nil {
			return nil, &ParquetWriterError{Op: "schema", Err: fmt.Errorf("field %s: %w", name, err)}
		}
		fields = append(fields, arrow.Field{Name: name, Type: dataType, Nullable: true})
	}
	return arrow.NewSchema(fields, nil), nil
}

// inferArrowType infers the Arrow data type from a Go value.
func inferArrowType(value interface{}) (arrow.DataType, error) {
	switch value.(type) {
	case nil, string:
		return arrow.BinaryTypes.String, nil
	case bool:
		return arrow.FixedWidthTypes.Boolean, nil
	case int, int32, int64:
		return arrow.PrimitiveTypes.Int64, nil
	case float32, float64:
		return arrow.PrimitiveTypes.Float64, nil
	case time.Time:
		return arrow.FixedWidthTypes.Timestamp_us, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", value)
	}
}

// flushBatch writes the current buffer to the Parquet file.
func (p *ParquetWriter) flushBatch() error {
	if len(p.recordBuffer) == 0 || p.writer == nil {
		return nil
	}

	rec, err := p.buildRecord(p.recordBuffer)
	if err != nil {
		return err
	}
	defer rec.Release()

	if err := p.writer.Write(rec); err != nil {
		return &ParquetWriterError{Op: "write_batch", Err: err}
	}
	p.recordBuffer = p.recordBuffer[:0]
	return nil
}

// buildRecord converts buffered rows into one Arrow record batch.
func (p *ParquetWriter) buildRecord(records []core.Record) (arrow.Record, error) {
	b := array.NewRecordBuilder(p.allocator, p.schema)
	defer b.Release()

	for _, record := range records {
		for i, field := range p.schema.Fields() {
			if err := appendValue(b.Field(i), record[field.Name]); err != nil {
				return nil, &ParquetWriterError{Op: "append_value", Err: fmt.Errorf("field %s: %w", field.Name, err)}
			}
		}
	}
	return b.NewRecord(), nil
}

// appendValue appends a value to the matching Arrow builder. Values of
// another type are stored as null.
func appendValue(builder array.Builder, value interface{}) error {
	if value == nil {
		builder.AppendNull()
		return nil
	}

	switch b := builder.(type) {
	case *array.BooleanBuilder:
		if v, ok := value.(bool); ok {
			b.Append(v)
			return nil
		}
	case *array.Int64Builder:
		switch v := value.(type) {
		case int:
			b.Append(int64(v))
			return nil
		case int32:
			b.Append(int64(v))
			return nil
		case int64:
			b.Append(v)
			return nil
		}
	case *array.Float64Builder:
		switch v := value.(type) {
		case float64:
			b.Append(v)
			return nil
		case float32:
			b.Append(float64(v))
			return nil
		}
	case *array.StringBuilder:
		if v, ok := value.(string); ok {
			b.Append(v)
		} else {
			b.Append(fmt.Sprintf("%v", value))
		}
		return nil
	case *array.TimestampBuilder:
		if v, ok := value.(time.Time); ok {
			b.Append(arrow.Timestamp(v.UnixMicro()))
			return nil
		}
	default:
		return fmt.Errorf("unsupported builder %T", builder)
	}
	builder.AppendNull()
	return nil
}
