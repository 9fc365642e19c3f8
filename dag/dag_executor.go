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

// dag_executor.go - dynamic task graph execution with children and follow-ons
package dag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// Executor runs a root task and everything it schedules. A task's children run
// in parallel once the task returns; its follow-on runs after every child
// subtree has finished.
type Executor struct {
	maxWorkers   int
	maxCPU       int
	maxMemory    int64
	retryBackoff tasks.BackoffStrategy
	defaultRetry *tasks.RetryConfig
	failFast     bool
	workDir      string
	keepScratch  bool
	runID        string
	logger       *slog.Logger
	observers    []Observer
}

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithMaxWorkers sets the maximum number of tasks running at once
func WithMaxWorkers(workers int) ExecutorOption {
	return func(e *Executor) {
		if workers > 0 {
			e.maxWorkers = workers
		}
	}
}

// WithMaxCPU sets the CPU capacity that task hints are admitted against
func WithMaxCPU(cpu int) ExecutorOption {
	return func(e *Executor) {
		if cpu > 0 {
			e.maxCPU = cpu
		}
	}
}

// WithMaxMemory sets the memory capacity in bytes; zero disables memory admission
func WithMaxMemory(bytes int64) ExecutorOption {
	return func(e *Executor) {
		if bytes >= 0 {
			e.maxMemory = bytes
		}
	}
}

// WithBackoffStrategy sets the backoff used when a task's RetryConfig has none
func WithBackoffStrategy(strategy tasks.BackoffStrategy) ExecutorOption {
	return func(e *Executor) {
		e.retryBackoff = strategy
	}
}

// WithDefaultRetries applies to tasks that do not carry their own RetryConfig
func WithDefaultRetries(config *tasks.RetryConfig) ExecutorOption {
	return func(e *Executor) {
		e.defaultRetry = config
	}
}

// WithFailFast cancels sibling subtrees as soon as one fails
func WithFailFast(failFast bool) ExecutorOption {
	return func(e *Executor) {
		e.failFast = failFast
	}
}

// WithWorkDir sets the directory scratch space is created under
func WithWorkDir(dir string) ExecutorOption {
	return func(e *Executor) {
		e.workDir = dir
	}
}

// WithKeepScratch leaves the scratch tree on disk after the run
func WithKeepScratch(keep bool) ExecutorOption {
	return func(e *Executor) {
		e.keepScratch = keep
	}
}

// WithRunID sets the identifier of the realized DAG
func WithRunID(id string) ExecutorOption {
	return func(e *Executor) {
		e.runID = id
	}
}

// WithLogger sets the logger handed to tasks
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithObserver registers an observer for task completions
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// NewExecutor creates a new executor with options
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		maxWorkers: runtime.NumCPU(),
		maxCPU:     runtime.NumCPU(),
		retryBackoff: &tasks.ExponentialBackoff{
			BaseDelay: time.Second,
			MaxDelay:  time.Minute,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs root and its whole subtree. The returned result is never nil;
// when the run fails its Error matches the returned error.
func (e *Executor) Execute(ctx context.Context, root tasks.Task) (*DAGResult, error) {
	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	start := time.Now()
	sc, err := newScratch(e.workDir, e.keepScratch)
	if err != nil {
		return &DAGResult{StartTime: start, EndTime: time.Now(), Error: err}, err
	}

	r := &run{
		e: e,
		graph: newDAG(runID, root.Name(), DAGMetadata{
			MaxParallelism: e.maxWorkers,
			DefaultRetries: e.defaultRetry,
			ScratchRoot:    sc.root,
		}),
		scratch: sc,
		workers: semaphore.NewWeighted(int64(e.maxWorkers)),
		cpu:     semaphore.NewWeighted(int64(e.maxCPU)),
		results: make(map[string]tasks.TaskResult),
	}
	if e.maxMemory > 0 {
		r.mem = semaphore.NewWeighted(e.maxMemory)
	}

	e.logger.Info("run started", "run_id", runID, "root", root.Name(), "scratch", sc.root)
	_, runErr := r.execute(ctx, root, "", tasks.RelationRoot, nil)

	if cerr := sc.cleanup(); cerr != nil {
		e.logger.Warn("scratch cleanup failed", "run_id", runID, "error", cerr)
	}

	result := &DAGResult{
		Success:     runErr == nil,
		StartTime:   start,
		EndTime:     time.Now(),
		TaskResults: r.snapshot(),
		Graph:       r.graph,
		Error:       runErr,
	}
	r.graph.PrintDAGStructure(e.logger)
	if runErr != nil {
		e.logger.Error("run failed", "run_id", runID, "error", runErr, "elapsed", result.EndTime.Sub(start))
		return result, runErr
	}
	metrics := r.graph.GetDAGMetrics()
	e.logger.Info("run completed",
		"run_id", runID,
		"tasks", metrics["total_tasks"],
		"max_depth", metrics["max_depth"],
		"elapsed", result.EndTime.Sub(start))
	return result, nil
}

// run holds state during one execution
type run struct {
	e       *Executor
	graph   *DAG
	scratch *scratch
	workers *semaphore.Weighted
	cpu     *semaphore.Weighted
	mem     *semaphore.Weighted

	mu      sync.Mutex
	results map[string]tasks.TaskResult
	obsMu   sync.Mutex
}

func (r *run) snapshot() map[string]tasks.TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]tasks.TaskResult, len(r.results))
	for k, v := range r.results {
		out[k] = v
	}
	return out
}

// execute runs t, then its children, then its follow-on chain. It returns the
// ID assigned to t.
func (r *run) execute(ctx context.Context, t tasks.Task, parentID string, rel tasks.Relation, deps []string) (string, error) {
	base := t.Name()
	if parentID != "" {
		base = parentID + "/" + base
	}
	id := r.graph.reserveID(base)
	r.graph.addNode(Node{ID: id, ParentID: parentID, Relation: rel, Metadata: t.Metadata()}, deps)

	sc, err := r.executeTaskWithRetry(ctx, t, id, parentID, rel)
	if err != nil {
		return id, err
	}

	childIDs, err := r.executeChildren(ctx, id, sc.children)
	if err != nil {
		return id, err
	}

	if sc.followOn != nil {
		followDeps := append([]string{id}, childIDs...)
		if _, err := r.execute(ctx, sc.followOn, parentID, tasks.RelationFollowOn, followDeps); err != nil {
			return id, err
		}
	}
	return id, nil
}

// executeChildren runs children concurrently and returns their IDs in
// declaration order
func (r *run) executeChildren(ctx context.Context, parentID string, children []tasks.Task) ([]string, error) {
	if len(children) == 0 {
		return nil, nil
	}

	ids := make([]string, len(children))
	g := new(errgroup.Group)
	gctx := ctx
	if r.e.failFast {
		g, gctx = errgroup.WithContext(ctx)
	}

	for i, child := range children {
		i, child := i, child
		g.Go(func() error {
			id, err := r.execute(gctx, child, parentID, tasks.RelationChild, []string{parentID})
			ids[i] = id
			return err
		})
	}

	err := g.Wait()
	return ids, err
}

// executeTaskWithRetry executes a single task with retry logic
func (r *run) executeTaskWithRetry(ctx context.Context, t tasks.Task, id, parentID string, rel tasks.Relation) (*scope, error) {
	metadata := t.Metadata()

	retry := metadata.RetryConfig
	if retry == nil {
		retry = r.e.defaultRetry
	}
	maxRetries := 0
	if retry != nil {
		maxRetries = retry.MaxRetries
	}

	result := tasks.TaskResult{
		TaskID:    id,
		ParentID:  parentID,
		Name:      metadata.Name,
		TaskType:  metadata.TaskType,
		Relation:  rel,
		StartTime: time.Now(),
		Fields:    make(map[string]interface{}, len(metadata.CustomFields)),
	}
	for k, v := range metadata.CustomFields {
		result.Fields[k] = v
	}

	logger := r.e.logger.With("task", id, "type", metadata.TaskType)

	var sc *scope
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		result.AttemptCount = attempt + 1
		sc = &scope{scratch: r.scratch, logger: logger}
		lastErr = r.attempt(ctx, t, sc, metadata)
		if lastErr == nil {
			break
		}

		if ctx.Err() != nil || attempt == maxRetries || core.IsFatal(lastErr) || !shouldRetryError(lastErr, retry) {
			break
		}

		delay := r.e.retryBackoff.Delay(attempt)
		if retry.Strategy != nil || retry.Backoff > 0 {
			delay = retry.GetDelay(attempt)
		}
		logger.Warn("task attempt failed, retrying",
			"attempt", attempt+1,
			"delay", delay,
			"error", lastErr)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			lastErr = ctx.Err()
			attempt = maxRetries
		}
	}

	result.EndTime = time.Now()
	result.Success = lastErr == nil
	result.Error = lastErr
	r.record(result)

	if lastErr != nil {
		logger.Error("task failed", "attempts", result.AttemptCount, "error", lastErr)
		return nil, &TaskError{TaskID: id, Err: lastErr}
	}
	logger.Debug("task completed",
		"children", len(sc.children),
		"follow_on", sc.followOn != nil,
		"elapsed", result.Duration())
	return sc, nil
}

// attempt runs one try of t while holding its admission weights
func (r *run) attempt(ctx context.Context, t tasks.Task, sc *scope, metadata tasks.TaskMetadata) error {
	release, err := r.admit(ctx, metadata.Resources)
	if err != nil {
		return err
	}
	defer release()
	defer sc.cleanup()

	taskCtx := ctx
	if metadata.Timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, metadata.Timeout)
		defer cancel()
	}
	return t.Run(taskCtx, sc)
}

// admit acquires a worker slot and the task's CPU and memory weights. An
// unbounded CPU hint weighs one core; an unbounded memory hint weighs nothing.
func (r *run) admit(ctx context.Context, res tasks.Resources) (func(), error) {
	if err := r.workers.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	cpu := int64(1)
	if res.CPU > 0 {
		cpu = int64(min(res.CPU, r.e.maxCPU))
	}
	if err := r.cpu.Acquire(ctx, cpu); err != nil {
		r.workers.Release(1)
		return nil, err
	}

	var mem int64
	if r.mem != nil && res.Memory > 0 {
		mem = min(res.Memory, r.e.maxMemory)
		if err := r.mem.Acquire(ctx, mem); err != nil {
			r.cpu.Release(cpu)
			r.workers.Release(1)
			return nil, err
		}
	}

	return func() {
		if mem > 0 {
			r.mem.Release(mem)
		}
		r.cpu.Release(cpu)
		r.workers.Release(1)
	}, nil
}

func (r *run) record(result tasks.TaskResult) {
	r.mu.Lock()
	r.results[result.TaskID] = result
	r.mu.Unlock()

	r.obsMu.Lock()
	defer r.obsMu.Unlock()
	for _, o := range r.e.observers {
		o.TaskCompleted(result)
	}
}

// shouldRetryError determines if an error should trigger a retry
func shouldRetryError(err error, config *tasks.RetryConfig) bool {
	if config == nil {
		return false
	}
	if len(config.RetryOn) == 0 {
		return true
	}
	for _, retryErr := range config.RetryOn {
		if errors.Is(err, retryErr) || err.Error() == retryErr.Error() {
			return true
		}
	}
	return false
}

// scope is the tasks.Scope handed to one task attempt
type scope struct {
	scratch *scratch
	logger  *slog.Logger

	mu       sync.Mutex
	children []tasks.Task
	followOn tasks.Task
	localDir string
}

func (s *scope) AddChild(t tasks.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, t)
}

func (s *scope) SetFollowOn(t tasks.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.followOn = t
}

func (s *scope) LocalTempDir() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.localDir != "" {
		return s.localDir, nil
	}
	dir, err := s.scratch.local()
	if err != nil {
		return "", fmt.Errorf("create local temp dir: %w", err)
	}
	s.localDir = dir
	return dir, nil
}

func (s *scope) GlobalTempDir() (string, error) {
	dir, err := s.scratch.global()
	if err != nil {
		return "", fmt.Errorf("create global temp dir: %w", err)
	}
	return dir, nil
}

func (s *scope) Logger() *slog.Logger {
	return s.logger
}

func (s *scope) cleanup() {
	s.mu.Lock()
	dir := s.localDir
	s.localDir = ""
	s.mu.Unlock()
	if dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("local temp cleanup failed", "dir", dir, "error", err)
		}
	}
}
