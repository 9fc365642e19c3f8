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
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/aaronlmathis/seqprep/core"
)

// MongoWriterError provides structured error information for MongoDB writer operations
type MongoWriterError struct {
	Op         string // Operation that failed (e.g., "connect", "insert")
	Collection string
	Err        error
}

func (e *MongoWriterError) Error() string {
	return fmt.Sprintf("mongo writer %s [%s]: %v", e.Op, e.Collection, e.Err)
}

func (e *MongoWriterError) Unwrap() error {
	return e.Err
}

// MongoWriterOptions configures the MongoDB writer.
type MongoWriterOptions struct {
	URI         string
	Database    string
	Collection  string
	BatchSize   int
	Timeout     time.Duration
	MaxPoolSize uint64
}

// WriterOptionMongo is a functional option for MongoWriterOptions.
type WriterOptionMongo func(*MongoWriterOptions)

func WithMongoURI(uri string) WriterOptionMongo {
	return func(opts *MongoWriterOptions) {
		opts.URI = uri
	}
}

func WithMongoDatabase(database string) WriterOptionMongo {
	return func(opts *MongoWriterOptions) {
		opts.Database = database
	}
}

func WithMongoCollection(collection string) WriterOptionMongo {
	return func(opts *MongoWriterOptions) {
		opts.Collection = collection
	}
}

func WithMongoBatchSize(size int) WriterOptionMongo {
	return func(opts *MongoWriterOptions) {
		opts.BatchSize = size
	}
}

func WithMongoTimeout(timeout time.Duration) WriterOptionMongo {
	return func(opts *MongoWriterOptions) {
		opts.Timeout = timeout
	}
}

// MongoWriter implements core.DataSink by inserting records as documents.
type MongoWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
	opts       MongoWriterOptions
	buffer     []interface{}
	written    int64
	mu         sync.Mutex
}

// NewMongoWriter connects to MongoDB and returns a writer for one collection.
func NewMongoWriter(ctx context.Context, options ...WriterOptionMongo) (*MongoWriter, error) {
	opts := MongoWriterOptions{
		BatchSize:   500,
		Timeout:     30 * time.Second,
		MaxPoolSize: 10,
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.URI == "" || opts.Database == "" || opts.Collection == "" {
		return nil, &MongoWriterError{Op: "validate", Collection: opts.Collection,
			Err: fmt.Errorf("uri, database and collection are required")}
	}

	client, err := mongo.Connect(ctx, buildClientOptions(opts))
	if err != nil {
		return nil, &MongoWriterError{Op: "connect", Collection: opts.Collection, Err: err}
	}
	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, &MongoWriterError{Op: "ping", Collection: opts.Collection, Err: err}
	}

	return &MongoWriter{
		client:     client,
		collection: client.Database(opts.Database).Collection(opts.Collection),
		opts:       opts,
		buffer:     make([]interface{}, 0, opts.BatchSize),
	}, nil
}

func buildClientOptions(opts MongoWriterOptions) *options.ClientOptions {
	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout)
	}
	return clientOpts
}

// toDocument converts a record into a BSON document.
func toDocument(record core.Record) bson.M {
	doc := make(bson.M, len(record))
	for k, v := range record {
		doc[k] = v
	}
	return doc
}

// Write implements the core.DataSink interface.
func (m *MongoWriter) Write(ctx context.Context, record core.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.buffer = append(m.buffer, toDocument(record))
	m.written++
	if len(m.buffer) >= m.opts.BatchSize {
		return m.flushUnsafe(ctx)
	}
	return nil
}

// Flush implements the core.DataSink interface.
func (m *MongoWriter) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.Timeout)
	defer cancel()
	return m.flushUnsafe(ctx)
}

func (m *MongoWriter) flushUnsafe(ctx context.Context) error {
	if len(m.buffer) == 0 {
		return nil
	}
	if _, err := m.collection.InsertMany(ctx, m.buffer); err != nil {
		return &MongoWriterError{Op: "insert", Collection: m.opts.Collection, Err: err}
	}
	m.buffer = m.buffer[:0]
	return nil
}

// Close implements the core.DataSink interface.
func (m *MongoWriter) Close() error {
	flushErr := m.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.Timeout)
	defer cancel()
	if err := m.client.Disconnect(ctx); err != nil && flushErr == nil {
		return &MongoWriterError{Op: "disconnect", Collection: m.opts.Collection, Err: err}
	}
	return flushErr
}
