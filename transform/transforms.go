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

package transform

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aaronlmathis/seqprep/core"
)

// Package transform provides composable record transformations for run reports.
//
// Every transformer returns a new record; the input is never modified. Nil
// values pass through the type conversions unchanged.

// Select creates a transformer that selects only the specified fields from each record.
// Fields not listed are omitted from the output record.
func Select(fields ...string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := make(core.Record, len(fields))
		for _, field := range fields {
			if value, exists := record[field]; exists {
				result[field] = value
			}
		}
		return result, nil
	})
}

// Rename creates a transformer that renames fields according to the provided mapping.
// Keys are original field names, values are new field names.
func Rename(mapping map[string]string) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := make(core.Record, len(record))
		for key, value := range record {
			if newKey, exists := mapping[key]; exists {
				result[newKey] = value
			} else {
				result[key] = value
			}
		}
		return result, nil
	})
}

// AddField creates a transformer that adds a new field with a computed value to each record.
func AddField(field string, fn func(core.Record) interface{}) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := record.Clone(1)
		result[field] = fn(record)
		return result, nil
	})
}

// RemoveFields creates a transformer that removes the specified fields from each record.
func RemoveFields(fields ...string) core.Transformer {
	fieldsToRemove := make(map[string]bool, len(fields))
	for _, field := range fields {
		fieldsToRemove[field] = true
	}

	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := make(core.Record, len(record))
		for k, v := range record {
			if !fieldsToRemove[k] {
				result[k] = v
			}
		}
		return result, nil
	})
}

// ToInt converts the named fields to int64.
func ToInt(fields ...string) core.Transformer {
	return convert(fields, func(v interface{}) (interface{}, error) { return convertToInt(v) })
}

// ToFloat converts the named fields to float64.
func ToFloat(fields ...string) core.Transformer {
	return convert(fields, func(v interface{}) (interface{}, error) { return convertToFloat(v) })
}

// ToBool converts the named fields to bool.
func ToBool(fields ...string) core.Transformer {
	return convert(fields, func(v interface{}) (interface{}, error) { return convertToBool(v) })
}

// ToString converts the named fields to their string form.
func ToString(fields ...string) core.Transformer {
	return convert(fields, func(v interface{}) (interface{}, error) {
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprintf("%v", v), nil
	})
}

// ParseTime parses the named string fields into time.Time using layout.
func ParseTime(layout string, fields ...string) core.Transformer {
	return convert(fields, func(v interface{}) (interface{}, error) {
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case string:
			return time.Parse(layout, strings.TrimSpace(t))
		default:
			return nil, fmt.Errorf("cannot parse %T as time", v)
		}
	})
}

func convert(fields []string, fn func(interface{}) (interface{}, error)) core.Transformer {
	return core.TransformFunc(func(ctx context.Context, record core.Record) (core.Record, error) {
		result := record.Clone(1)
		for _, field := range fields {
			value, exists := record[field]
			if !exists || value == nil {
				continue
			}
			converted, err := fn(value)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", field, err)
			}
			result[field] = converted
		}
		return result, nil
	})
}

// convertToInt attempts to convert a value to int64. Floats must be whole.
func convertToInt(value interface{}) (int64, error) {
	switch v := value.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("%v is not a whole number", v)
		}
		return int64(v), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", value)
	}
}

// convertToFloat attempts to convert a value to float64.
func convertToFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}

// convertToBool attempts to convert a value to bool.
func convertToBool(value interface{}) (bool, error) {
	switch v := value.(type) {
	case string:
		return strconv.ParseBool(strings.TrimSpace(v))
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", value)
	}
}
