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

// base.go - Task interface, scheduling scope and base types
package tasks

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// TaskType names the kind of work a task performs. The executor treats it as an
// opaque label; the preprocessor package defines its own values.
type TaskType string

// Relation records how a task entered the graph.
type Relation string

const (
	RelationRoot     Relation = "root"
	RelationChild    Relation = "child"
	RelationFollowOn Relation = "follow_on"
)

// Unbounded is the zero resource hint: the task declares no ceiling.
const Unbounded = 0

// Resources are the scheduling hints a task declares.
type Resources struct {
	Memory int64 // bytes, Unbounded when zero
	CPU    int   // cores, Unbounded when zero
}

// BackoffStrategy interface for advanced retry strategies
type BackoffStrategy interface {
	Delay(attempt int) time.Duration
}

// RetryConfig defines retry behavior for tasks
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration   // Simple backoff duration
	Strategy   BackoffStrategy // Advanced backoff strategy (optional)
	RetryOn    []error         // Specific errors to retry on
}

// GetDelay returns the delay for a given attempt
func (rc *RetryConfig) GetDelay(attempt int) time.Duration {
	if rc.Strategy != nil {
		return rc.Strategy.Delay(attempt)
	}
	return rc.Backoff
}

// ExponentialBackoff implements BackoffStrategy
type ExponentialBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (eb *ExponentialBackoff) Delay(attempt int) time.Duration {
	delay := eb.BaseDelay * time.Duration(1<<uint(attempt))
	if delay > eb.MaxDelay {
		delay = eb.MaxDelay
	}
	return delay
}

// LinearBackoff implements linear backoff strategy
type LinearBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func (lb *LinearBackoff) Delay(attempt int) time.Duration {
	delay := lb.BaseDelay * time.Duration(attempt)
	if delay > lb.MaxDelay {
		delay = lb.MaxDelay
	}
	return delay
}

// FixedBackoff implements fixed delay backoff strategy
type FixedBackoff struct {
	FixedDelay time.Duration
}

func (fb *FixedBackoff) Delay(attempt int) time.Duration {
	return fb.FixedDelay
}

// JitteredBackoff adds randomness to exponential backoff
type JitteredBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Jitter    float64 // 0.0 to 1.0
}

func (jb *JitteredBackoff) Delay(attempt int) time.Duration {
	delay := jb.BaseDelay * time.Duration(1<<uint(attempt))
	if delay > jb.MaxDelay {
		delay = jb.MaxDelay
	}
	if jb.Jitter > 0 {
		jitterAmount := float64(delay) * jb.Jitter * (rand.Float64() - 0.5)
		delay += time.Duration(jitterAmount)
	}
	return delay
}

// NoBackoff implements no delay strategy
type NoBackoff struct{}

func (nb *NoBackoff) Delay(attempt int) time.Duration {
	return 0
}

// TaskMetadata holds metadata about a task
type TaskMetadata struct {
	Name         string
	Description  string
	TaskType     TaskType
	RetryConfig  *RetryConfig
	Timeout      time.Duration
	Resources    Resources
	Tags         []string
	CustomFields map[string]interface{}
}

// TaskResult holds the outcome of one executed task.
type TaskResult struct {
	TaskID       string
	ParentID     string
	Name         string
	TaskType     TaskType
	Relation     Relation
	StartTime    time.Time
	EndTime      time.Time
	Success      bool
	Error        error
	AttemptCount int
	Fields       map[string]interface{}
}

// Duration returns the wall time of the task, retries included.
func (r TaskResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Scope is the scheduler handle a running task uses to declare further work
// and to obtain scratch space.
type Scope interface {
	// AddChild schedules t to run, in parallel with the task's other children,
	// after the current task returns successfully.
	AddChild(t Task)
	// SetFollowOn schedules t to run once the current task and every child
	// subtree have completed. A later call replaces an earlier one.
	SetFollowOn(t Task)
	// LocalTempDir returns a private directory removed when the task returns.
	LocalTempDir() (string, error)
	// GlobalTempDir returns a fresh directory that outlives the task and is
	// visible to the tasks it schedules.
	GlobalTempDir() (string, error)
	// Logger returns a logger annotated with the task's identity.
	Logger() *slog.Logger
}

// Task defines the interface that all tasks must implement
type Task interface {
	Name() string
	Run(ctx context.Context, scope Scope) error
	Metadata() TaskMetadata
	SetRetryConfig(config *RetryConfig)
	SetTimeout(timeout time.Duration)
	SetResources(res Resources)
	SetDescription(description string)
	SetTags(tags ...string)
	SetCustomField(key string, value interface{})
}

// BaseTask carries the metadata and setters shared by every task. Concrete
// tasks embed it and add Run.
type BaseTask struct {
	metadata TaskMetadata
}

// NewBaseTask creates a BaseTask with the given name and type.
func NewBaseTask(name string, taskType TaskType) BaseTask {
	return BaseTask{metadata: TaskMetadata{
		Name:         name,
		TaskType:     taskType,
		CustomFields: make(map[string]interface{}),
	}}
}

func (b *BaseTask) Name() string           { return b.metadata.Name }
func (b *BaseTask) Metadata() TaskMetadata { return b.metadata }

func (b *BaseTask) SetRetryConfig(config *RetryConfig) { b.metadata.RetryConfig = config }
func (b *BaseTask) SetTimeout(timeout time.Duration)   { b.metadata.Timeout = timeout }
func (b *BaseTask) SetResources(res Resources)         { b.metadata.Resources = res }
func (b *BaseTask) SetDescription(description string)  { b.metadata.Description = description }
func (b *BaseTask) SetTags(tags ...string)             { b.metadata.Tags = append(b.metadata.Tags, tags...) }

func (b *BaseTask) SetCustomField(key string, value interface{}) {
	if b.metadata.CustomFields == nil {
		b.metadata.CustomFields = make(map[string]interface{})
	}
	b.metadata.CustomFields[key] = value
}

// TaskOption is a functional option for configuring tasks
type TaskOption func(Task)

// Apply runs each option against t.
func Apply(t Task, opts ...TaskOption) {
	for _, opt := range opts {
		opt(t)
	}
}

// WithRetries sets the retry configuration for a task
func WithRetries(maxRetries int, backoff time.Duration) TaskOption {
	return func(t Task) {
		t.SetRetryConfig(&RetryConfig{
			MaxRetries: maxRetries,
			Backoff:    backoff,
		})
	}
}

// WithRetryConfig sets the retry configuration for a task
func WithRetryConfig(config *RetryConfig) TaskOption {
	return func(t Task) {
		t.SetRetryConfig(config)
	}
}

// WithTimeout sets the timeout for a task
func WithTimeout(timeout time.Duration) TaskOption {
	return func(t Task) {
		t.SetTimeout(timeout)
	}
}

// WithResources sets the memory and CPU hints for a task
func WithResources(res Resources) TaskOption {
	return func(t Task) {
		t.SetResources(res)
	}
}

// WithDescription sets the description for a task
func WithDescription(description string) TaskOption {
	return func(t Task) {
		t.SetDescription(description)
	}
}

// WithTags adds tags to a task
func WithTags(tags ...string) TaskOption {
	return func(t Task) {
		t.SetTags(tags...)
	}
}

// WithCustomField adds a custom field to a task
func WithCustomField(key string, value interface{}) TaskOption {
	return func(t Task) {
		t.SetCustomField(key, value)
	}
}

// Func adapts a function into a Task. It is mostly useful in tests and for
// small glue steps.
type Func struct {
	BaseTask
	fn func(ctx context.Context, scope Scope) error
}

// NewFunc creates a Task that runs fn.
func NewFunc(name string, taskType TaskType, fn func(ctx context.Context, scope Scope) error, opts ...TaskOption) *Func {
	t := &Func{BaseTask: NewBaseTask(name, taskType), fn: fn}
	Apply(t, opts...)
	return t
}

func (f *Func) Run(ctx context.Context, scope Scope) error {
	return f.fn(ctx, scope)
}
