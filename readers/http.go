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
	"net/http"
	"time"

	"github.com/aaronlmathis/seqprep/core"
)

// HTTPReaderError provides structured error information for HTTP reader operations
type HTTPReaderError struct {
	Op         string // Operation that failed (e.g., "request", "status", "parse")
	StatusCode int
	URL        string
	Err        error
}

func (e *HTTPReaderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("http reader %s [%d] %s: %v", e.Op, e.StatusCode, e.URL, e.Err)
	}
	return fmt.Sprintf("http reader %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *HTTPReaderError) Unwrap() error {
	return e.Err
}

// HTTPReaderOptions configures the HTTP reader
type HTTPReaderOptions struct {
	Headers        map[string]string
	BearerToken    string
	Timeout        time.Duration // per request, body included
	RetryAttempts  int
	RetryDelay     time.Duration // doubled after every attempt
	ResponseFormat string        // "jsonl" or "csv"
	Client         *http.Client
}

// ReaderOptionHTTP is a functional option for HTTPReaderOptions
type ReaderOptionHTTP func(*HTTPReaderOptions)

func WithHTTPHeaders(headers map[string]string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		if opts.Headers == nil {
			opts.Headers = make(map[string]string)
		}
		for k, v := range headers {
			opts.Headers[k] = v
		}
	}
}

func WithHTTPBearerToken(token string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.BearerToken = token
	}
}

func WithHTTPTimeout(timeout time.Duration) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.Timeout = timeout
	}
}

// WithHTTPRetry retries transport errors and 5xx responses.
func WithHTTPRetry(attempts int, delay time.Duration) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.RetryAttempts = attempts
		opts.RetryDelay = delay
	}
}

// WithHTTPResponseFormat sets how the body is decoded: "jsonl" (default) or "csv".
func WithHTTPResponseFormat(format string) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.ResponseFormat = format
	}
}

func WithHTTPClient(client *http.Client) ReaderOptionHTTP {
	return func(opts *HTTPReaderOptions) {
		opts.Client = client
	}
}

// HTTPReader implements core.DataSource for a JSON lines or CSV document
// served over HTTP. The body is streamed, not buffered.
type HTTPReader struct {
	core.DataSource
	url    string
	cancel context.CancelFunc
}

// NewHTTPReader GETs url and returns a reader over the response body.
func NewHTTPReader(ctx context.Context, url string, options ...ReaderOptionHTTP) (*HTTPReader, error) {
	opts := HTTPReaderOptions{
		Timeout:        5 * time.Minute,
		RetryAttempts:  2,
		RetryDelay:     time.Second,
		ResponseFormat: "jsonl",
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.ResponseFormat != "jsonl" && opts.ResponseFormat != "csv" {
		return nil, &HTTPReaderError{Op: "validate", URL: url,
			Err: fmt.Errorf("unsupported response format %q", opts.ResponseFormat)}
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	reqCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	body, err := fetch(reqCtx, client, url, opts)
	if err != nil {
		cancel()
		return nil, err
	}

	var src core.DataSource
	if opts.ResponseFormat == "csv" {
		src, err = NewCSVReader(body)
		if err != nil {
			body.Close()
			cancel()
			return nil, &HTTPReaderError{Op: "parse", URL: url, Err: err}
		}
	} else {
		src = NewJSONReader(body)
	}
	return &HTTPReader{DataSource: src, url: url, cancel: cancel}, nil
}

func fetch(ctx context.Context, client *http.Client, url string, opts HTTPReaderOptions) (io.ReadCloser, error) {
	delay := opts.RetryDelay
	var lastErr error
	for attempt := 0; attempt <= opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &HTTPReaderError{Op: "request", URL: url, Err: ctx.Err()}
			}
			delay *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, &HTTPReaderError{Op: "request", URL: url, Err: err}
		}
		for k, v := range opts.Headers {
			req.Header.Set(k, v)
		}
		if opts.BearerToken != "" {
			req.Header.Set("Authorization", "Bearer "+opts.BearerToken)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = &HTTPReaderError{Op: "request", URL: url, Err: err}
			continue
		}
		if resp.StatusCode == http.StatusOK {
			return resp.Body, nil
		}
		resp.Body.Close()
		lastErr = &HTTPReaderError{Op: "status", StatusCode: resp.StatusCode, URL: url, Err: fmt.Errorf("%s", http.StatusText(resp.StatusCode))}
		if resp.StatusCode < 500 {
			break
		}
	}
	return nil, lastErr
}

// Close implements the core.DataSource interface.
func (h *HTTPReader) Close() error {
	defer h.cancel()
	if err := h.DataSource.Close(); err != nil {
		return &HTTPReaderError{Op: "close", URL: h.url, Err: err}
	}
	return nil
}
