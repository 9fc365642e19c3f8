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
	"strings"
	"time"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/readers"
	"github.com/aaronlmathis/seqprep/storage"
	"github.com/aaronlmathis/seqprep/transform"
)

// Normalizers restore report column types that a file format lost: JSON
// numbers decode as floats, and CSV cells are guessed from their text.
func Normalizers() []core.Transformer {
	return []core.Transformer{
		transform.ToString(stringColumns...),
		transform.ToInt(intColumns...),
		transform.ToFloat(ColProportion),
		transform.ToBool(ColSuccess),
		transform.ParseTime(time.RFC3339Nano, timeColumns...),
	}
}

// normalizedSource applies the normalizers to every record it reads.
type normalizedSource struct {
	core.DataSource
	transformers []core.Transformer
	cleanup      func()
}

func (s *normalizedSource) Read(ctx context.Context) (core.Record, error) {
	record, err := s.DataSource.Read(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range s.transformers {
		if record, err = t.Transform(ctx, record); err != nil {
			return nil, err
		}
	}
	return record, nil
}

func (s *normalizedSource) Close() error {
	err := s.DataSource.Close()
	if s.cleanup != nil {
		s.cleanup()
	}
	return err
}

// OpenSource opens a report written by OpenSink. Files and s3:// URIs in
// JSON lines, CSV or Parquet format are supported, as are http(s):// URLs
// serving JSON lines or CSV, PostgreSQL tables and MongoDB collections. s3
// objects are downloaded to a temporary directory that Close removes.
func OpenSource(ctx context.Context, location string, opts ...LocationOption) (core.DataSource, error) {
	o := newLocationOptions(opts)

	var src core.DataSource
	var cleanup func()
	var err error
	switch {
	case strings.HasPrefix(location, "postgres://"), strings.HasPrefix(location, "postgresql://"):
		src, err = openPostgresSource(ctx, location, o)
	case strings.HasPrefix(location, "mongodb://"), strings.HasPrefix(location, "mongodb+srv://"):
		src, err = openMongoSource(ctx, location, o)
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		src, err = openHTTPSource(ctx, location)
	case storage.IsURI(location):
		src, cleanup, err = openS3Source(ctx, location, o)
	default:
		p := strings.TrimPrefix(location, "file://")
		var format Format
		if format, err = FormatFromPath(p); err == nil {
			src, err = openFileSource(p, format)
		}
	}
	if err != nil {
		return nil, err
	}
	return &normalizedSource{DataSource: src, transformers: Normalizers(), cleanup: cleanup}, nil
}

func openS3Source(ctx context.Context, uri string, o LocationOptions) (core.DataSource, func(), error) {
	format, err := FormatFromPath(uri)
	if err != nil {
		return nil, nil, err
	}
	downloader := o.Downloader
	if downloader == nil {
		client, err := storage.NewS3(ctx, o.S3Options...)
		if err != nil {
			return nil, nil, err
		}
		downloader = client
	}
	dir, err := os.MkdirTemp("", "seqprep-report-")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	p, err := downloader.Fetch(ctx, uri, dir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	src, err := openFileSource(p, format)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return src, cleanup, nil
}

// openPostgresSource reads the report table in execution order.
func openPostgresSource(ctx context.Context, dsn string, o LocationOptions) (core.DataSource, error) {
	table := o.Table
	if table == "" {
		table = DefaultTable
	}
	quoted := make([]string, len(o.Columns))
	for i, col := range o.Columns {
		quoted[i] = pq.QuoteIdentifier(col)
	}
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(quoted, ", "), pq.QuoteIdentifier(table), pq.QuoteIdentifier(ColStartTime))
	return readers.NewPostgresReader(ctx,
		readers.WithPostgresDSN(dsn),
		readers.WithPostgresQuery(query),
	)
}

func openMongoSource(ctx context.Context, location string, o LocationOptions) (core.DataSource, error) {
	uri, database, collection, err := ParseMongoLocation(location)
	if err != nil {
		return nil, err
	}
	if o.Table != "" {
		collection = o.Table
	}
	return readers.NewMongoReader(ctx,
		readers.WithMongoURI(uri),
		readers.WithMongoDatabase(database),
		readers.WithMongoCollection(collection),
		readers.WithMongoSort(bson.D{{Key: ColStartTime, Value: 1}}),
	)
}

// openHTTPSource streams a JSON lines or CSV report. Parquet needs random
// access and is not read over HTTP.
func openHTTPSource(ctx context.Context, location string) (core.DataSource, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid report url: %w", err)
	}
	format, err := FormatFromPath(u.Path)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatCSV:
		return readers.NewHTTPReader(ctx, location, readers.WithHTTPResponseFormat("csv"))
	case FormatJSON:
		return readers.NewHTTPReader(ctx, location)
	default:
		return nil, fmt.Errorf("%s reports cannot be read over http", format)
	}
}

func openFileSource(p string, format Format) (core.DataSource, error) {
	if format == FormatParquet {
		return readers.NewParquetReader(p)
	}
	file, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	if format == FormatCSV {
		src, err := readers.NewCSVReader(file)
		if err != nil {
			file.Close()
			return nil, err
		}
		return src, nil
	}
	return readers.NewJSONReader(file), nil
}
