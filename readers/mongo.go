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
	"fmt"
	"io"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/aaronlmathis/seqprep/core"
)

// MongoReaderError provides structured error information for MongoDB reader operations
type MongoReaderError struct {
	Op         string // Operation that failed (e.g., "connect", "find", "decode")
	Collection string
	Err        error
}

func (e *MongoReaderError) Error() string {
	return fmt.Sprintf("mongo reader %s [%s]: %v", e.Op, e.Collection, e.Err)
}

func (e *MongoReaderError) Unwrap() error {
	return e.Err
}

// MongoReaderOptions configures the MongoDB reader
type MongoReaderOptions struct {
	URI        string
	Database   string
	Collection string
	Filter     bson.M
	Sort       bson.D
	Projection bson.M // _id is always excluded
	BatchSize  int32
	Timeout    time.Duration
}

// ReaderOptionMongo is a functional option for MongoReaderOptions
type ReaderOptionMongo func(*MongoReaderOptions)

func WithMongoURI(uri string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.URI = uri
	}
}

func WithMongoDatabase(database string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Database = database
	}
}

func WithMongoCollection(collection string) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Collection = collection
	}
}

// WithMongoFilter restricts the documents read.
func WithMongoFilter(filter bson.M) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Filter = filter
	}
}

// WithMongoSort sets the order documents are read in.
func WithMongoSort(sort bson.D) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Sort = sort
	}
}

func WithMongoTimeout(timeout time.Duration) ReaderOptionMongo {
	return func(opts *MongoReaderOptions) {
		opts.Timeout = timeout
	}
}

// MongoReader implements core.DataSource by iterating a find cursor.
type MongoReader struct {
	mu     sync.Mutex
	client *mongo.Client
	cursor *mongo.Cursor
	opts   MongoReaderOptions
	read   int64
}

// NewMongoReader connects and opens a cursor over the matching documents.
func NewMongoReader(ctx context.Context, options ...ReaderOptionMongo) (*MongoReader, error) {
	opts := MongoReaderOptions{
		Filter:    bson.M{},
		BatchSize: 500,
		Timeout:   30 * time.Second,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.URI == "" || opts.Database == "" || opts.Collection == "" {
		return nil, &MongoReaderError{Op: "validate", Collection: opts.Collection,
			Err: fmt.Errorf("uri, database and collection are required")}
	}

	client, err := mongo.Connect(ctx, buildClientOptions(opts))
	if err != nil {
		return nil, &MongoReaderError{Op: "connect", Collection: opts.Collection, Err: err}
	}
	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, &MongoReaderError{Op: "ping", Collection: opts.Collection, Err: err}
	}

	cursor, err := client.Database(opts.Database).Collection(opts.Collection).
		Find(ctx, opts.Filter, buildFindOptions(opts))
	if err != nil {
		client.Disconnect(ctx)
		return nil, &MongoReaderError{Op: "find", Collection: opts.Collection, Err: err}
	}
	return &MongoReader{client: client, cursor: cursor, opts: opts}, nil
}

func buildClientOptions(opts MongoReaderOptions) *options.ClientOptions {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout)
	}
	return clientOpts
}

func buildFindOptions(opts MongoReaderOptions) *options.FindOptions {
	projection := bson.M{"_id": 0}
	for k, v := range opts.Projection {
		if k != "_id" {
			projection[k] = v
		}
	}
	find := options.Find().SetProjection(projection)
	if opts.BatchSize > 0 {
		find.SetBatchSize(opts.BatchSize)
	}
	if len(opts.Sort) > 0 {
		find.SetSort(opts.Sort)
	}
	return find
}

// Read implements the core.DataSource interface.
func (m *MongoReader) Read(ctx context.Context) (core.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cursor == nil {
		return nil, io.EOF
	}
	if !m.cursor.Next(ctx) {
		if err := m.cursor.Err(); err != nil {
			return nil, &MongoReaderError{Op: "read", Collection: m.opts.Collection, Err: err}
		}
		return nil, io.EOF
	}

	var doc bson.M
	if err := m.cursor.Decode(&doc); err != nil {
		return nil, &MongoReaderError{Op: "decode", Collection: m.opts.Collection, Err: err}
	}
	m.read++
	return fromDocument(doc), nil
}

// Close implements the core.DataSource interface.
func (m *MongoReader) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.Timeout)
	defer cancel()

	var err error
	if m.cursor != nil {
		err = m.cursor.Close(ctx)
		m.cursor = nil
	}
	if m.client != nil {
		if derr := m.client.Disconnect(ctx); err == nil {
			err = derr
		}
		m.client = nil
	}
	if err != nil {
		return &MongoReaderError{Op: "close", Collection: m.opts.Collection, Err: err}
	}
	return nil
}

// fromDocument converts BSON values to the types the rest of the pipeline
// works with.
func fromDocument(doc bson.M) core.Record {
	record := make(core.Record, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case primitive.DateTime:
			record[k] = val.Time().UTC()
		case int32:
			record[k] = int64(val)
		case primitive.Null, primitive.Undefined:
			record[k] = nil
		default:
			record[k] = val
		}
	}
	return record
}
