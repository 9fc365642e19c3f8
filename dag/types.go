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

package dag

import (
	"fmt"
	"sync"
	"time"

	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// DAG is the task graph realized by one execution. Tasks declare their
// children and follow-ons while they run, so the graph grows as the run
// proceeds; once Execute returns it is a complete trace.
type DAG struct {
	id           string
	name         string
	nodes        map[string]Node
	dependencies map[string][]string
	order        []string
	metadata     DAGMetadata
	mu           sync.RWMutex
}

// Node is one executed task in the graph.
type Node struct {
	ID       string
	ParentID string
	Relation tasks.Relation
	Metadata tasks.TaskMetadata
}

// DAGMetadata contains DAG-level configuration
type DAGMetadata struct {
	Description    string
	MaxParallelism int
	DefaultRetries *tasks.RetryConfig
	ScratchRoot    string
}

// DAGResult contains the results of DAG execution
type DAGResult struct {
	Success     bool
	StartTime   time.Time
	EndTime     time.Time
	TaskResults map[string]tasks.TaskResult
	Graph       *DAG
	Error       error
}

// FailedTasks returns the results of every task that did not succeed.
func (r *DAGResult) FailedTasks() []tasks.TaskResult {
	var failed []tasks.TaskResult
	for _, id := range r.Graph.Order() {
		if res, ok := r.TaskResults[id]; ok && !res.Success {
			failed = append(failed, res)
		}
	}
	return failed
}

// TaskError identifies the task whose failure ended a subtree.
type TaskError struct {
	TaskID string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %s failed: %v", e.TaskID, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Observer is notified once for every task that finishes, successfully or not.
// Calls are serialized.
type Observer interface {
	TaskCompleted(result tasks.TaskResult)
}

// ObserverFunc is a function adapter for the Observer interface.
type ObserverFunc func(result tasks.TaskResult)

// TaskCompleted implements Observer.
func (f ObserverFunc) TaskCompleted(result tasks.TaskResult) { f(result) }

func newDAG(id, name string, metadata DAGMetadata) *DAG {
	return &DAG{
		id:           id,
		name:         name,
		nodes:        make(map[string]Node),
		dependencies: make(map[string][]string),
		metadata:     metadata,
	}
}

func (d *DAG) addNode(n Node, deps []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nodes[n.ID] = n
	d.order = append(d.order, n.ID)
	if len(deps) > 0 {
		d.dependencies[n.ID] = append([]string(nil), deps...)
	}
}

// reserveID returns base, or base with a numeric suffix if base is taken.
func (d *DAG) reserveID(base string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := base
	for n := 2; ; n++ {
		if _, taken := d.nodes[id]; !taken {
			d.nodes[id] = Node{ID: id}
			return id
		}
		id = fmt.Sprintf("%s#%d", base, n)
	}
}
