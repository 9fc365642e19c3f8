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

// Package report turns executed tasks into run report rows and moves those
// rows between files, object storage and databases.
//
// One row is written per task the executor ran, whether it succeeded or not.
// Rows are core.Records keyed by the column names below, so every sink, source,
// filter and transformer in the module can handle them.
package report

import (
	"github.com/apache/arrow/go/v12/arrow"

	"github.com/aaronlmathis/seqprep/core"
	"github.com/aaronlmathis/seqprep/dag/tasks"
)

// Report columns.
const (
	ColRunID      = "run_id"
	ColTaskID     = "task_id"
	ColParentID   = "parent_id"
	ColTaskType   = "task_type"
	ColName       = "name"
	ColRelation   = "relation"
	ColStage      = "stage"
	ColSequence   = "sequence"
	ColOutput     = "output"
	ColChunkIndex = "chunk_index"
	ColWindowSize = "window_size"
	ColProportion = "proportion"
	ColAttempts   = "attempts"
	ColSuccess    = "success"
	ColError      = "error"
	ColStartTime  = "start_time"
	ColEndTime    = "end_time"
	ColDurationMS = "duration_ms"
)

// Columns lists the report columns in output order.
var Columns = []string{
	ColRunID, ColTaskID, ColParentID, ColTaskType, ColName, ColRelation,
	ColStage, ColSequence, ColOutput, ColChunkIndex, ColWindowSize, ColProportion,
	ColAttempts, ColSuccess, ColError, ColStartTime, ColEndTime, ColDurationMS,
}

var (
	stringColumns = []string{ColRunID, ColTaskID, ColParentID, ColTaskType, ColName, ColRelation, ColSequence, ColOutput, ColError}
	intColumns    = []string{ColStage, ColChunkIndex, ColWindowSize, ColAttempts, ColDurationMS}
	timeColumns   = []string{ColStartTime, ColEndTime}
)

// ColumnTypes are the PostgreSQL types of the report table.
var ColumnTypes = map[string]string{
	ColRunID:      "TEXT",
	ColTaskID:     "TEXT",
	ColParentID:   "TEXT",
	ColTaskType:   "TEXT",
	ColName:       "TEXT",
	ColRelation:   "TEXT",
	ColStage:      "BIGINT",
	ColSequence:   "TEXT",
	ColOutput:     "TEXT",
	ColChunkIndex: "BIGINT",
	ColWindowSize: "BIGINT",
	ColProportion: "DOUBLE PRECISION",
	ColAttempts:   "BIGINT",
	ColSuccess:    "BOOLEAN",
	ColError:      "TEXT",
	ColStartTime:  "TIMESTAMPTZ",
	ColEndTime:    "TIMESTAMPTZ",
	ColDurationMS: "BIGINT",
}

// Schema returns the Arrow schema of the named columns, or of every report
// column when none are named. Unknown columns are typed as strings.
func Schema(columns ...string) *arrow.Schema {
	if len(columns) == 0 {
		columns = Columns
	}
	fields := make([]arrow.Field, len(columns))
	for i, col := range columns {
		fields[i] = arrow.Field{Name: col, Type: arrowType(col), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

func arrowType(column string) arrow.DataType {
	switch ColumnTypes[column] {
	case "BIGINT":
		return arrow.PrimitiveTypes.Int64
	case "DOUBLE PRECISION":
		return arrow.PrimitiveTypes.Float64
	case "BOOLEAN":
		return arrow.FixedWidthTypes.Boolean
	case "TIMESTAMPTZ":
		return arrow.FixedWidthTypes.Timestamp_us
	default:
		return arrow.BinaryTypes.String
	}
}

// FromResult converts one task result into a report row. Columns the task
// did not set are nil.
func FromResult(runID string, result tasks.TaskResult) core.Record {
	record := make(core.Record, len(Columns))
	for _, col := range Columns {
		record[col] = nil
	}

	record[ColRunID] = runID
	record[ColTaskID] = result.TaskID
	if result.ParentID != "" {
		record[ColParentID] = result.ParentID
	}
	record[ColTaskType] = string(result.TaskType)
	record[ColName] = result.Name
	record[ColRelation] = string(result.Relation)
	record[ColAttempts] = int64(result.AttemptCount)
	record[ColSuccess] = result.Success
	if result.Error != nil {
		record[ColError] = result.Error.Error()
	}
	if !result.StartTime.IsZero() {
		record[ColStartTime] = result.StartTime.UTC()
	}
	if !result.EndTime.IsZero() {
		record[ColEndTime] = result.EndTime.UTC()
	}
	record[ColDurationMS] = result.Duration().Milliseconds()

	for _, col := range []string{ColStage, ColChunkIndex, ColWindowSize} {
		if v, ok := asInt64(result.Fields[col]); ok {
			record[col] = v
		}
	}
	if v, ok := result.Fields[ColProportion].(float64); ok {
		record[ColProportion] = v
	}
	for _, col := range []string{ColSequence, ColOutput} {
		if v, ok := result.Fields[col].(string); ok {
			record[col] = v
		}
	}
	return record
}

func asInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
