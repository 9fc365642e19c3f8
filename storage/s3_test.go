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

package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBucket struct {
	objects map[string][]byte
}

func (m *memoryBucket) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("no such key")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (m *memoryBucket) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestParseURI(t *testing.T) {
	bucket, key, err := ParseURI("s3://genomes/v2/human.fa.gz")
	require.NoError(t, err)
	assert.Equal(t, "genomes", bucket)
	assert.Equal(t, "v2/human.fa.gz", key)

	for _, bad := range []string{"/local/file", "s3://bucket", "s3://bucket/", "s3:///key", "s3://bucket/dir/"} {
		_, _, err := ParseURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestS3FetchAndUpload(t *testing.T) {
	bucket := &memoryBucket{objects: map[string][]byte{"genomes/v2/human.fa": []byte(">chr1\nACGT\n")}}
	s := NewS3WithClient(bucket)
	ctx := context.Background()
	dir := t.TempDir()

	assert.True(t, s.Handles("s3://genomes/v2/human.fa"))
	assert.False(t, s.Handles("human.fa"))
	assert.Equal(t, "human.fa", s.BaseName("s3://genomes/v2/human.fa"))

	local, err := s.Fetch(ctx, "s3://genomes/v2/human.fa", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "human.fa"), local)
	data, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, ">chr1\nACGT\n", string(data))

	require.NoError(t, s.Upload(ctx, local, "s3://results/out/human.fa"))
	assert.Equal(t, ">chr1\nACGT\n", string(bucket.objects["results/out/human.fa"]))

	_, err = s.Fetch(ctx, "s3://genomes/missing.fa", dir)
	var s3Err *S3Error
	require.True(t, errors.As(err, &s3Err))
	assert.Equal(t, "get_object", s3Err.Op)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
