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

// Package validators checks the quality of report records.
package validators

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/aaronlmathis/seqprep/core"
)

// DataQualityValidator checks record counts, required fields, null value
// rates and per-field rules.
type DataQualityValidator struct {
	MinRecords      int                       // Minimum number of records required
	MaxRecords      int                       // Maximum number of records allowed (0 = unlimited)
	MaxNullRate     float64                   // Maximum allowed null rate per field (0.0-1.0, 0 = unchecked)
	RequiredFields  []string                  // Fields that must be present and non-nil in all records
	FieldValidators map[string]FieldValidator // Per-field validation rules
}

// FieldValidator defines validation rules for individual fields
type FieldValidator struct {
	DataType      FieldDataType  // Expected data type
	Pattern       *regexp.Regexp // Regex pattern for string fields
	MinValue      *float64       // Minimum value (for numeric fields)
	MaxValue      *float64       // Maximum value (for numeric fields)
	AllowedValues []interface{}  // Whitelist of allowed values
}

// FieldDataType represents expected data types for validation
type FieldDataType string

const (
	FieldTypeString FieldDataType = "string"
	FieldTypeInt    FieldDataType = "int"
	FieldTypeFloat  FieldDataType = "float"
	FieldTypeNumber FieldDataType = "number"
	FieldTypeBool   FieldDataType = "bool"
	FieldTypeTime   FieldDataType = "time"
	FieldTypeAny    FieldDataType = "any"
)

// ValidationError reports the first rule a record broke.
type ValidationError struct {
	Record int // Index of the record, -1 for checks over the whole set
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Record < 0 {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	if e.Field == "" {
		return fmt.Sprintf("validation: record %d: %s", e.Record, e.Reason)
	}
	return fmt.Sprintf("validation: record %d field %s: %s", e.Record, e.Field, e.Reason)
}

// DataQualityOption is a functional option for configuring DataQualityValidator
type DataQualityOption func(*DataQualityValidator)

// WithMaxRecords sets the maximum record count
func WithMaxRecords(max int) DataQualityOption {
	return func(dqv *DataQualityValidator) {
		dqv.MaxRecords = max
	}
}

// WithMaxNullRate sets the maximum null value rate
func WithMaxNullRate(rate float64) DataQualityOption {
	return func(dqv *DataQualityValidator) {
		dqv.MaxNullRate = rate
	}
}

// WithFieldValidator adds a field-specific validator
func WithFieldValidator(fieldName string, validator FieldValidator) DataQualityOption {
	return func(dqv *DataQualityValidator) {
		dqv.FieldValidators[fieldName] = validator
	}
}

// NewDataQualityValidator creates a validator with functional options
func NewDataQualityValidator(minRecords int, requiredFields []string, options ...DataQualityOption) *DataQualityValidator {
	dqv := &DataQualityValidator{
		MinRecords:      minRecords,
		RequiredFields:  append([]string(nil), requiredFields...),
		FieldValidators: make(map[string]FieldValidator),
	}
	for _, opt := range options {
		opt(dqv)
	}
	return dqv
}

// Range returns the bounds pointer pair for FieldValidator.
func Range(min, max float64) (*float64, *float64) {
	return &min, &max
}

// Evaluate validates a whole set of records.
func (dqv *DataQualityValidator) Evaluate(records []core.Record) error {
	n := len(records)
	if n < dqv.MinRecords {
		return &ValidationError{Record: -1, Reason: fmt.Sprintf("%d records, at least %d required", n, dqv.MinRecords)}
	}
	if dqv.MaxRecords > 0 && n > dqv.MaxRecords {
		return &ValidationError{Record: -1, Reason: fmt.Sprintf("%d records, at most %d allowed", n, dqv.MaxRecords)}
	}
	for i, record := range records {
		if err := dqv.check(i, record); err != nil {
			return err
		}
	}
	return dqv.validateNullRates(records)
}

// ValidateRecord applies the per-record rules to one record.
func (dqv *DataQualityValidator) ValidateRecord(record core.Record) error {
	return dqv.check(0, record)
}

// Transformer returns a transformer that passes valid records through and
// fails on invalid ones.
func (dqv *DataQualityValidator) Transformer() core.Transformer {
	var index int
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		err := dqv.check(index, record)
		index++
		if err != nil {
			return nil, err
		}
		return record, nil
	})
}

func (dqv *DataQualityValidator) check(index int, record core.Record) error {
	for _, field := range dqv.RequiredFields {
		if record[field] == nil {
			return &ValidationError{Record: index, Field: field, Reason: "required field is missing"}
		}
	}
	for field, validator := range dqv.FieldValidators {
		value, ok := record[field]
		if !ok || value == nil {
			continue
		}
		if reason := validateValue(value, validator); reason != "" {
			return &ValidationError{Record: index, Field: field, Reason: reason}
		}
	}
	return nil
}

// validateNullRates checks null value rates across all records
func (dqv *DataQualityValidator) validateNullRates(records []core.Record) error {
	if dqv.MaxNullRate <= 0 || len(records) == 0 {
		return nil
	}
	nulls := make(map[string]int)
	for _, record := range records {
		for field, value := range record {
			if value == nil {
				nulls[field]++
			}
		}
	}
	for field, count := range nulls {
		rate := float64(count) / float64(len(records))
		if rate > dqv.MaxNullRate {
			return &ValidationError{Record: -1, Field: field,
				Reason: fmt.Sprintf("field %s null rate %.2f exceeds %.2f", field, rate, dqv.MaxNullRate)}
		}
	}
	return nil
}

// validateValue returns why value breaks validator, or "" when it does not.
func validateValue(value interface{}, validator FieldValidator) string {
	if !validateDataType(value, validator.DataType) {
		return fmt.Sprintf("has type %T, expected %s", value, validator.DataType)
	}

	if validator.Pattern != nil {
		if str, ok := value.(string); ok && !validator.Pattern.MatchString(str) {
			return fmt.Sprintf("value %q does not match pattern", str)
		}
	}

	if num, ok := toFloat64(value); ok {
		if validator.MinValue != nil && num < *validator.MinValue {
			return fmt.Sprintf("value %v below minimum %v", value, *validator.MinValue)
		}
		if validator.MaxValue != nil && num > *validator.MaxValue {
			return fmt.Sprintf("value %v above maximum %v", value, *validator.MaxValue)
		}
	}

	if len(validator.AllowedValues) > 0 {
		for _, allowed := range validator.AllowedValues {
			if value == allowed {
				return ""
			}
		}
		return fmt.Sprintf("value %v not in allowed values", value)
	}
	return ""
}

// validateDataType checks if a value matches the expected data type
func validateDataType(value interface{}, expectedType FieldDataType) bool {
	switch expectedType {
	case FieldTypeString:
		_, ok := value.(string)
		return ok
	case FieldTypeInt:
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case FieldTypeFloat:
		switch value.(type) {
		case float32, float64:
			return true
		}
		return false
	case FieldTypeNumber:
		_, ok := toFloat64(value)
		return ok
	case FieldTypeBool:
		_, ok := value.(bool)
		return ok
	case FieldTypeTime:
		switch v := value.(type) {
		case time.Time:
			return true
		case string:
			_, err := time.Parse(time.RFC3339Nano, v)
			return err == nil
		}
		return false
	default:
		return true
	}
}

// toFloat64 converts numeric types to float64 for comparison
func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
