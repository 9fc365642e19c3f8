package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aaronlmathis/seqprep/core"
)

type output struct {
	field      string
	aggregator Aggregator
}

type group struct {
	values      []interface{}
	aggregators []Aggregator
}

// GroupBy groups records by the values of one or more fields and computes
// the configured aggregates for every group. Groups are returned in the
// order they were first seen.
type GroupBy struct {
	groupFields []string
	outputs     []output
}

// NewGroupBy creates a grouping over fields. With no fields every record
// falls into a single group.
func NewGroupBy(fields ...string) *GroupBy {
	return &GroupBy{groupFields: fields}
}

// With adds a custom aggregator under outputField.
func (g *GroupBy) With(outputField string, aggregator Aggregator) *GroupBy {
	g.outputs = append(g.outputs, output{field: outputField, aggregator: aggregator})
	return g
}

// Count adds a count aggregator for the specified output field
func (g *GroupBy) Count(outputField string) *GroupBy {
	return g.With(outputField, &CountAggregator{})
}

// CountWhere counts the records the filter includes.
func (g *GroupBy) CountWhere(outputField string, filter core.Filter) *GroupBy {
	return g.With(outputField, &CountAggregator{Filter: filter})
}

// Sum adds a sum aggregator for the specified field
func (g *GroupBy) Sum(field, outputField string) *GroupBy {
	return g.With(outputField, &SumAggregator{Field: field})
}

// Avg adds an average aggregator for the specified field
func (g *GroupBy) Avg(field, outputField string) *GroupBy {
	return g.With(outputField, &AvgAggregator{Field: field})
}

// Min adds a minimum aggregator for the specified field
func (g *GroupBy) Min(field, outputField string) *GroupBy {
	return g.With(outputField, &MinAggregator{Field: field})
}

// Max adds a maximum aggregator for the specified field
func (g *GroupBy) Max(field, outputField string) *GroupBy {
	return g.With(outputField, &MaxAggregator{Field: field})
}

type state struct {
	g      *GroupBy
	groups map[string]*group
	order  []string
}

func (g *GroupBy) newState() *state {
	return &state{g: g, groups: make(map[string]*group)}
}

func (s *state) add(ctx context.Context, record core.Record) error {
	key, values := s.g.groupKey(record)
	grp, ok := s.groups[key]
	if !ok {
		grp = &group{values: values}
		for _, out := range s.g.outputs {
			grp.aggregators = append(grp.aggregators, out.aggregator.Clone())
		}
		s.groups[key] = grp
		s.order = append(s.order, key)
	}
	for i, agg := range grp.aggregators {
		if err := agg.Add(ctx, record); err != nil {
			return fmt.Errorf("aggregation error for field %s: %w", s.g.outputs[i].field, err)
		}
	}
	return nil
}

func (s *state) results() []core.Record {
	results := make([]core.Record, 0, len(s.order))
	for _, key := range s.order {
		grp := s.groups[key]
		result := make(core.Record, len(s.g.groupFields)+len(s.g.outputs))
		for i, field := range s.g.groupFields {
			result[field] = grp.values[i]
		}
		for i, out := range s.g.outputs {
			result[out.field] = grp.aggregators[i].Result()
		}
		results = append(results, result)
	}
	return results
}

// Process aggregates records and returns the results
func (g *GroupBy) Process(ctx context.Context, records <-chan core.Record) ([]core.Record, error) {
	s := g.newState()
	for record := range records {
		if err := s.add(ctx, record); err != nil {
			return nil, err
		}
	}
	return s.results(), nil
}

// ProcessSource aggregates every record of src. src is not closed.
func (g *GroupBy) ProcessSource(ctx context.Context, src core.DataSource) ([]core.Record, error) {
	s := g.newState()
	for {
		record, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := s.add(ctx, record); err != nil {
			return nil, err
		}
	}
	return s.results(), nil
}

// groupKey encodes the group field values so that distinct values never
// collide.
func (g *GroupBy) groupKey(record core.Record) (string, []interface{}) {
	values := make([]interface{}, len(g.groupFields))
	var b strings.Builder
	for i, field := range g.groupFields {
		values[i] = record[field]
		fmt.Fprintf(&b, "%T:%q|", values[i], fmt.Sprint(values[i]))
	}
	return b.String(), values
}

// CountAggregator counts records, optionally only those a filter includes.
type CountAggregator struct {
	Filter core.Filter
	count  int
}

func (c *CountAggregator) Add(ctx context.Context, record core.Record) error {
	if c.Filter != nil {
		include, err := c.Filter.ShouldInclude(ctx, record)
		if err != nil || !include {
			return err
		}
	}
	c.count++
	return nil
}

func (c *CountAggregator) Result() interface{} { return c.count }
func (c *CountAggregator) Clone() Aggregator { return &CountAggregator{Filter: c.Filter} }

// SumAggregator sums numeric values
type SumAggregator struct {
	Field string
	sum   float64
}

func (s *SumAggregator) Add(ctx context.Context, record core.Record) error {
	if num, ok := numeric(record[s.Field]); ok {
		s.sum += num
	}
	return nil
}

func (s *SumAggregator) Result() interface{} { return s.sum }
func (s *SumAggregator) Clone() Aggregator { return &SumAggregator{Field: s.Field} }

// AvgAggregator calculates average of numeric values
type AvgAggregator struct {
	Field string
	sum   float64
	count int
}

func (a *AvgAggregator) Add(ctx context.Context, record core.Record) error {
	if num, ok := numeric(record[a.Field]); ok {
		a.sum += num
		a.count++
	}
	return nil
}

func (a *AvgAggregator) Result() interface{} {
	if a.count == 0 {
		return 0.0
	}
	return a.sum / float64(a.count)
}

func (a *AvgAggregator) Clone() Aggregator { return &AvgAggregator{Field: a.Field} }

// MinAggregator finds the minimum numeric value; nil when none was seen.
type MinAggregator struct {
	Field string
	min   float64
	set   bool
}

func (m *MinAggregator) Add(ctx context.Context, record core.Record) error {
	if num, ok := numeric(record[m.Field]); ok && (!m.set || num < m.min) {
		m.min = num
		m.set = true
	}
	return nil
}

func (m *MinAggregator) Result() interface{} {
	if !m.set {
		return nil
	}
	return m.min
}

func (m *MinAggregator) Clone() Aggregator { return &MinAggregator{Field: m.Field} }

// MaxAggregator finds the maximum numeric value; nil when none was seen.
type MaxAggregator struct {
	Field string
	max   float64
	set   bool
}

func (m *MaxAggregator) Add(ctx context.Context, record core.Record) error {
	if num, ok := numeric(record[m.Field]); ok && (!m.set || num > m.max) {
		m.max = num
		m.set = true
	}
	return nil
}

func (m *MaxAggregator) Result() interface{} {
	if !m.set {
		return nil
	}
	return m.max
}

func (m *MaxAggregator) Clone() Aggregator { return &MaxAggregator{Field: m.Field} }

// numeric converts numbers, and bools as 0 or 1, to float64.
func numeric(value interface{}) (float64, bool) {
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
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
