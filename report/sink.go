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

package report

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/storage"
	"github.com/aaronlmathis/seqprep/writers"
)

// DefaultTable is the table and collection report rows are stored in when a
// database location does not name one.
const DefaultTable = "seqprep_task_results"

// Format represents a supported report format.
type Format int

const (
	FormatJSON Format = iota
	FormatCSV
	FormatParquet
	FormatPostgres
	FormatMongo
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "jsonl"
	case FormatCSV:
		return "csv"
	case FormatParquet:
		return "parquet"
	case FormatPostgres:
		return "postgres"
	case FormatMongo:
		return "mongodb"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// FormatFromPath picks a file format from the extension of p.
func FormatFromPath(p string) (Format, error) {
	switch strings.ToLower(path.Ext(p)) {
	case ".jsonl", ".json", ".ndjson":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	default:
		return 0, fmt.Errorf("unsupported report format for %q", p)
	}
}

// Uploader stores a local file under an object storage URI.
type Uploader interface {
	Upload(ctx context.Context, src, uri string) error
}

// Downloader fetches an object storage URI into a local directory.
type Downloader interface {
	Fetch(ctx context.Context, uri, dir string) (string, error)
}

// LocationOptions configures OpenSink and OpenSource.
type LocationOptions struct {
	Columns    []string
	Table      string
	S3Options  []storage.S3Option
	Uploader   Uploader
	Downloader Downloader
}

// LocationOption is a functional option for LocationOptions.
type LocationOption func(*LocationOptions)

// WithReportColumns limits and orders the columns written by file and
// database sinks.
func WithReportColumns(columns ...string) LocationOption {
	return func(o *LocationOptions) {
		o.Columns = append([]string(nil), columns...)
	}
}

// WithTable sets the PostgreSQL table or MongoDB collection.
func WithTable(table string) LocationOption {
	return func(o *LocationOptions) {
		o.Table = table
	}
}

// WithS3Options configures the S3 client created for s3:// locations.
func WithS3Options(opts ...storage.S3Option) LocationOption {
	return func(o *LocationOptions) {
		o.S3Options = append(o.S3Options, opts...)
	}
}

// WithUploader replaces the S3 client used to upload s3:// sinks.
func WithUploader(u Uploader) LocationOption {
	return func(o *LocationOptions) {
		o.Uploader = u
	}
}

// WithDownloader replaces the S3 client used to fetch s3:// sources.
func WithDownloader(d Downloader) LocationOption {
	return func(o *LocationOptions) {
		o.Downloader = d
	}
}

func newLocationOptions(opts []LocationOption) LocationOptions {
	o := LocationOptions{Columns: Columns}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// OpenSink creates a DataSink for location. A location is a file path (or
// file:// URL) whose extension picks the format, an s3:// URI uploaded when
// the sink is closed, a postgres:// DSN, or mongodb://host/database/collection.
func OpenSink(ctx context.Context, location string, opts ...LocationOption) (core.DataSink, error) {
	o := newLocationOptions(opts)

	switch {
	case strings.HasPrefix(location, "postgres://"), strings.HasPrefix(location, "postgresql://"):
		return openPostgres(location, o)
	case strings.HasPrefix(location, "mongodb://"), strings.HasPrefix(location, "mongodb+srv://"):
		return openMongo(ctx, location, o)
	case storage.IsURI(location):
		return openS3Sink(ctx, location, o)
	default:
		p := strings.TrimPrefix(location, "file://")
		format, err := FormatFromPath(p)
		if err != nil {
			return nil, err
		}
		return openFileSink(p, format, o)
	}
}

func openFileSink(p string, format Format, o LocationOptions) (core.DataSink, error) {
	if format == FormatParquet {
		return writers.NewParquetWriter(p, writers.WithSchema(Schema(o.Columns...)))
	}

	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.Create(p)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return writers.NewCSVWriter(file, writers.WithHeaders(o.Columns), writers.WithCSVBatchSize(100))
	default:
		return writers.NewJSONWriter(file), nil
	}
}

func openPostgres(dsn string, o LocationOptions) (core.DataSink, error) {
	table := o.Table
	if table == "" {
		table = DefaultTable
	}
	return writers.NewPostgresWriter(
		writers.WithPostgresDSN(dsn),
		writers.WithTableName(table),
		writers.WithColumns(o.Columns),
		writers.WithColumnTypes(ColumnTypes),
		writers.WithCreateTable(true),
	)
}

// ParseMongoLocation splits mongodb://host/database/collection into a client
// URI, a database and a collection. The collection defaults to DefaultTable.
func ParseMongoLocation(location string) (uri, database, collection string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid mongodb location: %w", err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" || len(parts) > 2 {
		return "", "", "", fmt.Errorf("mongodb location %q must be mongodb://host/database[/collection]", location)
	}
	database = parts[0]
	collection = DefaultTable
	if len(parts) == 2 && parts[1] != "" {
		collection = parts[1]
	}
	u.Path = "/"
	return u.String(), database, collection, nil
}

func openMongo(ctx context.Context, location string, o LocationOptions) (core.DataSink, error) {
	uri, database, collection, err := ParseMongoLocation(location)
	if err != nil {
		return nil, err
	}
	if o.Table != "" {
		collection = o.Table
	}
	return writers.NewMongoWriter(ctx,
		writers.WithMongoURI(uri),
		writers.WithMongoDatabase(database),
		writers.WithMongoCollection(collection),
		writers.WithMongoBatchSize(100),
	)
}

// uploadSink writes to a local file and uploads it when closed.
type uploadSink struct {
	core.DataSink
	ctx      context.Context
	uploader Uploader
	dir      string
	filename string
	uri      string
}

func openS3Sink(ctx context.Context, uri string, o LocationOptions) (core.DataSink, error) {
	if _, _, err := storage.ParseURI(uri); err != nil {
		return nil, err
	}
	format, err := FormatFromPath(uri)
	if err != nil {
		return nil, err
	}

	uploader := o.Uploader
	if uploader == nil {
		client, err := storage.NewS3(ctx, o.S3Options...)
		if err != nil {
			return nil, err
		}
		uploader = client
	}

	dir, err := os.MkdirTemp("", "seqprep-report-")
	if err != nil {
		return nil, err
	}
	filename := filepath.Join(dir, path.Base(uri))
	sink, err := openFileSink(filename, format, o)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &uploadSink{DataSink: sink, ctx: ctx, uploader: uploader, dir: dir, filename: filename, uri: uri}, nil
}

func (s *uploadSink) Close() error {
	defer os.RemoveAll(s.dir)
	if err := s.DataSink.Close(); err != nil {
		return err
	}
	return s.uploader.Upload(s.ctx, s.filename, s.uri)
}
