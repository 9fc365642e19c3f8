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
	"container/heap"
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// GetNodes returns a copy of every node in the DAG
func (d *DAG) GetNodes() map[string]Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]Node, len(d.nodes))
	for id, n := range d.nodes {
		out[id] = n
	}
	return out
}

// GetNode returns a single node
func (d *DAG) GetNode(taskID string) (Node, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.nodes[taskID]
	return n, ok
}

// Order returns task IDs in the order the executor admitted them.
func (d *DAG) Order() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}

// GetDependencies returns the dependencies for a specific task
func (d *DAG) GetDependencies(taskID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if deps, exists := d.dependencies[taskID]; exists {
		return append([]string(nil), deps...)
	}
	return []string{}
}

// GetTasksByType returns the IDs of tasks of the given type, sorted
func (d *DAG) GetTasksByType(taskType tasks.TaskType) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var ids []string
	for id, n := range d.nodes {
		if n.Metadata.TaskType == taskType {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// GetChildren returns the tasks scheduled as children of taskID, sorted
func (d *DAG) GetChildren(taskID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var ids []string
	for id, n := range d.nodes {
		if n.ParentID == taskID && n.Relation == tasks.RelationChild {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// GetTaskCount returns the total number of tasks
func (d *DAG) GetTaskCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.nodes)
}

// HasTask checks if a task exists in the DAG
func (d *DAG) HasTask(taskID string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, exists := d.nodes[taskID]
	return exists
}

// GetUpstreamTasks returns all tasks that this task depends on
func (d *DAG) GetUpstreamTasks(taskID string) []string {
	return d.GetDependencies(taskID)
}

// GetDownstreamTasks returns all tasks that depend on this task
func (d *DAG) GetDownstreamTasks(taskID string) []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.dependentsLocked()[taskID]
}

// dependentsLocked inverts the dependency edges. Each list is sorted.
// Callers hold d.mu.
func (d *DAG) dependentsLocked() map[string][]string {
	dependents := make(map[string][]string)
	for id, deps := range d.dependencies {
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], id)
		}
	}
	for _, ids := range dependents {
		sort.Strings(ids)
	}
	return dependents
}

// GetMetadata returns the DAG's metadata
func (d *DAG) GetMetadata() DAGMetadata {
	return d.metadata
}

// GetID returns the DAG's unique identifier
func (d *DAG) GetID() string {
	return d.id
}

// GetName returns the DAG's name
func (d *DAG) GetName() string {
	return d.name
}

// PrintDAGStructure logs a human-readable DAG structure for debugging
func (d *DAG) PrintDAGStructure(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	d.mu.RLock()
	dependents := d.dependentsLocked()
	d.mu.RUnlock()

	logger.Debug("task graph",
		"dag", d.GetName(),
		"id", d.GetID(),
		"tasks", d.GetTaskCount(),
		"max_parallelism", d.metadata.MaxParallelism)

	for _, id := range d.Order() {
		n, _ := d.GetNode(id)
		attrs := []any{"task", id, "type", n.Metadata.TaskType, "relation", n.Relation}
		if deps := d.GetDependencies(id); len(deps) > 0 {
			attrs = append(attrs, "depends_on", deps)
		}
		if downstream := dependents[id]; len(downstream) > 0 {
			attrs = append(attrs, "triggers", downstream)
		}
		if n.Metadata.RetryConfig != nil {
			attrs = append(attrs, "retries", n.Metadata.RetryConfig.MaxRetries)
		}
		logger.Debug("task node", attrs...)
	}
}

// GetDAGMetrics returns counts per task type and structural measures
func (d *DAG) GetDAGMetrics() map[string]interface{} {
	byType := make(map[string]int)
	for _, n := range d.GetNodes() {
		byType[string(n.Metadata.TaskType)]++
	}
	return map[string]interface{}{
		"dag_id":          d.id,
		"dag_name":        d.name,
		"total_tasks":     d.GetTaskCount(),
		"tasks_by_type":   byType,
		"max_depth":       d.calculateMaxDepth(),
		"execution_order": d.getExecutionOrderSafe(),
	}
}

// GetExecutionOrder returns tasks in topological execution order
func (d *DAG) GetExecutionOrder() ([]string, error) {
	return d.topologicalSort()
}

func (d *DAG) getExecutionOrderSafe() []string {
	if order, err := d.GetExecutionOrder(); err == nil {
		return order
	}
	return []string{}
}

func (d *DAG) calculateMaxDepth() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	depths := make(map[string]int)

	var calculateDepth func(taskID string) int
	calculateDepth = func(taskID string) int {
		if depth, exists := depths[taskID]; exists {
			return depth
		}
		maxDepth := 0
		for _, dep := range d.dependencies[taskID] {
			if depDepth := calculateDepth(dep); depDepth > maxDepth {
				maxDepth = depDepth
			}
		}
		depths[taskID] = maxDepth + 1
		return depths[taskID]
	}

	maxOverall := 0
	for taskID := range d.nodes {
		if depth := calculateDepth(taskID); depth > maxOverall {
			maxOverall = depth
		}
	}
	return maxOverall
}

// topologicalSort performs Kahn's algorithm, breaking ties by admission order
func (d *DAG) topologicalSort() ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rank := make(map[string]int, len(d.order))
	for i, id := range d.order {
		rank[id] = i
	}

	inDegree := make(map[string]int, len(d.nodes))
	dependents := make(map[string][]string)
	for taskID := range d.nodes {
		inDegree[taskID] = len(d.dependencies[taskID])
		for _, dep := range d.dependencies[taskID] {
			dependents[dep] = append(dependents[dep], taskID)
		}
	}

	ready := &rankHeap{}
	for taskID, degree := range inDegree {
		if degree == 0 {
			heap.Push(ready, rank[taskID])
		}
	}

	result := make([]string, 0, len(d.nodes))
	for ready.Len() > 0 {
		current := d.order[heap.Pop(ready).(int)]
		result = append(result, current)

		for _, taskID := range dependents[current] {
			inDegree[taskID]--
			if inDegree[taskID] == 0 {
				heap.Push(ready, rank[taskID])
			}
		}
	}

	if len(result) != len(d.nodes) {
		return nil, fmt.Errorf("DAG contains cycles")
	}
	return result, nil
}

// rankHeap is a min-heap of admission ranks.
type rankHeap []int

func (h rankHeap) Len() int           { return len(h) }
func (h rankHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h rankHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *rankHeap) Push(x any) { *h = append(*h, x.(int)) }

func (h *rankHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
