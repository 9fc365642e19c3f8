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
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aaronlmathis/seqprep/core"
)

func TestHTTPReader(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky.jsonl":
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			w.Write([]byte(`{"task_id":"preprocess"}` + "\n" + `{"task_id":"merge"}` + "\n"))
		case "/report.csv":
			w.Write([]byte("task_id,attempts\nchunk_0,3\n"))
		case "/headers.jsonl":
			assert.Equal(t, "run-7", r.Header.Get("X-Seqprep-Run"))
			w.Write([]byte(`{"task_id":"merge"}` + "\n"))
		case "/slow.jsonl":
			time.Sleep(200 * time.Millisecond)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	r, err := NewHTTPReader(ctx, srv.URL+"/flaky.jsonl",
		WithHTTPBearerToken("secret"), WithHTTPRetry(2, time.Millisecond))
	require.NoError(t, err)
	records := readAll(t, r)
	require.Len(t, records, 2)
	assert.Equal(t, "merge", records[1]["task_id"])
	assert.Equal(t, int32(2), calls.Load())

	r, err = NewHTTPReader(ctx, srv.URL+"/report.csv", WithHTTPResponseFormat("csv"))
	require.NoError(t, err)
	assert.Equal(t, []core.Record{{"task_id": "chunk_0", "attempts": 3}}, readAll(t, r))

	_, err = NewHTTPReader(ctx, srv.URL+"/missing.jsonl", WithHTTPRetry(3, time.Millisecond))
	var httpErr *HTTPReaderError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)

	_, err = NewHTTPReader(ctx, srv.URL+"/report.xml", WithHTTPResponseFormat("xml"))
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "validate", httpErr.Op)

	r, err = NewHTTPReader(ctx, srv.URL+"/headers.jsonl",
		WithHTTPClient(srv.Client()),
		WithHTTPHeaders(map[string]string{"X-Seqprep-Run": "run-7"}))
	require.NoError(t, err)
	assert.Len(t, readAll(t, r), 1)

	_, err = NewHTTPReader(ctx, srv.URL+"/slow.jsonl",
		WithHTTPTimeout(20*time.Millisecond), WithHTTPRetry(0, time.Millisecond))
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "request", httpErr.Op)
}

func TestNewPostgresReader_Validate(t *testing.T) {
	_, err := NewPostgresReader(context.Background(), WithPostgresQuery("SELECT 1"))
	var pgErr *PostgresReaderError
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "validate", pgErr.Op)

	_, err = NewPostgresReader(context.Background(), WithPostgresDSN("postgres://localhost/db"))
	require.True(t, errors.As(err, &pgErr))
	assert.Equal(t, "validate", pgErr.Op)
}

func TestConvertSQLValue(t *testing.T) {
	assert.Equal(t, "chunk_0", convertSQLValue([]byte("chunk_0")))
	assert.Equal(t, int64(7), convertSQLValue(int32(7)))
	assert.Equal(t, int64(7), convertSQLValue(int64(7)))
	assert.Equal(t, 0.5, convertSQLValue(float32(0.5)))
	assert.Nil(t, convertSQLValue(nil))
}

func TestNewMongoReader_Validate(t *testing.T) {
	_, err := NewMongoReader(context.Background(), WithMongoURI("mongodb://localhost"), WithMongoCollection("runs"))
	var mErr *MongoReaderError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, "validate", mErr.Op)
}

func TestFromDocument(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	record := fromDocument(bson.M{
		"task_id":    "merge",
		"attempts":   int32(2),
		"start_time": primitive.NewDateTimeFromTime(start),
		"error":      primitive.Null{},
	})
	assert.Equal(t, core.Record{
		"task_id":    "merge",
		"attempts":   int64(2),
		"start_time": start,
		"error":      nil,
	}, record)
}

func TestBuildFindOptions(t *testing.T) {
	find := buildFindOptions(MongoReaderOptions{
		Projection: bson.M{"_id": 1, "task_id": 1},
		Sort:       bson.D{{Key: "start_time", Value: 1}},
		BatchSize:  10,
	})
	assert.Equal(t, bson.M{"_id": 0, "task_id": 1}, find.Projection)
	assert.Equal(t, bson.D{{Key: "start_time", Value: 1}}, find.Sort)
	require.NotNil(t, find.BatchSize)
	assert.Equal(t, int32(10), *find.BatchSize)
}
