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

// Package storage stages files between local disk and S3-compatible object
// stores.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Scheme is the URI scheme of S3 objects.
const Scheme = "s3://"

// S3Error provides structured error information for S3 operations
type S3Error struct {
	Op  string // Operation that failed (e.g., "get_object", "put_object")
	URI string
	Err error
}

func (e *S3Error) Error() string {
	return fmt.Sprintf("s3 %s %s: %v", e.Op, e.URI, e.Err)
}

func (e *S3Error) Unwrap() error {
	return e.Err
}

// S3Options configures the S3 client.
type S3Options struct {
	Region         string          // AWS region
	Profile        string          // AWS profile to use
	Credentials    aws.Credentials // Explicit credentials
	EndpointURL    string          // Custom S3 endpoint (for S3-compatible services)
	ForcePathStyle bool            // Use path-style addressing
}

// S3Option represents a configuration function for S3
type S3Option func(*S3Options)

func WithRegion(region string) S3Option {
	return func(opts *S3Options) {
		opts.Region = region
	}
}

func WithProfile(profile string) S3Option {
	return func(opts *S3Options) {
		opts.Profile = profile
	}
}

func WithCredentials(creds aws.Credentials) S3Option {
	return func(opts *S3Options) {
		opts.Credentials = creds
	}
}

func WithEndpoint(endpoint string) S3Option {
	return func(opts *S3Options) {
		opts.EndpointURL = endpoint
	}
}

func WithPathStyle(pathStyle bool) S3Option {
	return func(opts *S3Options) {
		opts.ForcePathStyle = pathStyle
	}
}

// ObjectAPI is the subset of the S3 client used here.
type ObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 downloads and uploads whole objects addressed by s3://bucket/key URIs.
type S3 struct {
	client ObjectAPI
}

// NewS3 creates an S3 stager from the default AWS configuration chain.
func NewS3(ctx context.Context, options ...S3Option) (*S3, error) {
	var opts S3Options
	for _, option := range options {
		option(&opts)
	}

	cfg, err := createAWSConfig(ctx, opts)
	if err != nil {
		return nil, &S3Error{Op: "create_aws_config", Err: err}
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.EndpointURL != "" {
			o.BaseEndpoint = aws.String(opts.EndpointURL)
		}
		o.UsePathStyle = opts.ForcePathStyle
	})
	return &S3{client: client}, nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client ObjectAPI) *S3 {
	return &S3{client: client}
}

// createAWSConfig creates AWS configuration from options
func createAWSConfig(ctx context.Context, opts S3Options) (aws.Config, error) {
	configOpts := []func(*config.LoadOptions) error{}

	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}

	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, err
	}

	if opts.Credentials.AccessKeyID != "" {
		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(
				opts.Credentials.AccessKeyID,
				opts.Credentials.SecretAccessKey,
				opts.Credentials.SessionToken,
			),
		)
	}

	return cfg, nil
}

// IsURI reports whether uri names an S3 object.
func IsURI(uri string) bool {
	return strings.HasPrefix(uri, Scheme)
}

// ParseURI splits s3://bucket/key into its bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("not an s3 uri: %q", uri)
	}
	rest := strings.TrimPrefix(uri, Scheme)
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("s3 uri %q must name a bucket and an object key", uri)
	}
	return bucket, key, nil
}

// Handles reports whether uri names an S3 object.
func (s *S3) Handles(uri string) bool {
	return IsURI(uri)
}

// BaseName returns the last element of the object key.
func (s *S3) BaseName(uri string) string {
	_, key, err := ParseURI(uri)
	if err != nil {
		return filepath.Base(uri)
	}
	return path.Base(key)
}

// Fetch downloads the object at uri into dir and returns the local path.
func (s *S3) Fetch(ctx context.Context, uri, dir string) (string, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return "", &S3Error{Op: "parse_uri", URI: uri, Err: err}
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", &S3Error{Op: "get_object", URI: uri, Err: err}
	}
	defer out.Body.Close()

	local := filepath.Join(dir, path.Base(key))
	f, err := os.CreateTemp(dir, "."+path.Base(key)+".")
	if err != nil {
		return "", &S3Error{Op: "create_file", URI: uri, Err: err}
	}
	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", &S3Error{Op: "read", URI: uri, Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", &S3Error{Op: "write", URI: uri, Err: err}
	}
	if err := os.Rename(f.Name(), local); err != nil {
		os.Remove(f.Name())
		return "", &S3Error{Op: "rename", URI: uri, Err: err}
	}
	return local, nil
}

// Upload stores the local file src as the object at uri.
func (s *S3) Upload(ctx context.Context, src, uri string) error {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return &S3Error{Op: "parse_uri", URI: uri, Err: err}
	}
	f, err := os.Open(src)
	if err != nil {
		return &S3Error{Op: "open", URI: uri, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return &S3Error{Op: "stat", URI: uri, Err: err}
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return &S3Error{Op: "put_object", URI: uri, Err: err}
	}
	return nil
}
