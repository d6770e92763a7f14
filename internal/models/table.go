package models

import (
	"math"
	"sort"
	"time"
)

// DeviceTableMap maps a device identity "{uName} ({serial})" to its table.
// A successful load produces a complete new map that replaces the previous
// one; maps are never merged.
type DeviceTableMap map[string]*Table

// Table is a time-indexed numeric table for one device. The index and every
// column have equal length; missing cells are NaN. The index is not
// guaranteed sorted or duplicate-free until SortByTime is applied.
type Table struct {
	Index   []time.Time
	Columns map[string][]float64
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{Columns: make(map[string][]float64)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Index)
}

// Fields returns the column names in lexical order.
func (t *Table) Fields() []string {
	fields := make([]string, 0, len(t.Columns))
	for name := range t.Columns {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// Column returns the values of one column.
func (t *Table) Column(name string) ([]float64, bool) {
	values, ok := t.Columns[name]
	return values, ok
}

// Series extracts one column together with the time index.
func (t *Table) Series(column string) (*Series, bool) {
	values, ok := t.Columns[column]
	if !ok {
		return nil, false
	}
	return &Series{
		Times:  append([]time.Time(nil), t.Index...),
		Values: append([]float64(nil), values...),
	}, true
}

// Bounds returns the observed minimum and maximum timestamps. The third
// result is false for an empty table.
func (t *Table) Bounds() (time.Time, time.Time, bool) {
	if len(t.Index) == 0 {
		return time.Time{}, time.Time{}, false
	}
	min, max := t.Index[0], t.Index[0]
	for _, ts := range t.Index[1:] {
		if ts.Before(min) {
			min = ts
		}
		if ts.After(max) {
			max = ts
		}
	}
	return min, max, true
}

// SortByTime returns a copy of the table with rows in ascending timestamp
// order. The sort is stable, so duplicate timestamps keep their ingest
// order.
func (t *Table) SortByTime() *Table {
	order := make([]int, len(t.Index))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return t.Index[order[a]].Before(t.Index[order[b]])
	})

	sorted := NewTable()
	sorted.Index = make([]time.Time, len(t.Index))
	for i, src := range order {
		sorted.Index[i] = t.Index[src]
	}
	for name, values := range t.Columns {
		column := make([]float64, len(values))
		for i, src := range order {
			column[i] = values[src]
		}
		sorted.Columns[name] = column
	}
	return sorted
}

// DateTime is a minute-resolution wall-clock instant, the granularity the
// date and time selectors operate at.
type DateTime struct {
	Year   int        `json:"year"`
	Month  time.Month `json:"month"`
	Day    int        `json:"day"`
	Hour   int        `json:"hour"`
	Minute int        `json:"minute"`
}

// Resolve converts the instant to a concrete UTC timestamp.
func (d DateTime) Resolve() time.Time {
	return time.Date(d.Year, d.Month, d.Day, d.Hour, d.Minute, 0, 0, time.UTC)
}

// FilterByWindow returns the rows of t whose timestamps fall inside the
// inclusive [start, end] window. Both edges are clamped inward to the
// table's observed span before the inversion check. The result is sorted
// by timestamp; duplicate timestamps are retained.
func FilterByWindow(t *Table, start, end *DateTime) (*Table, error) {
	if start == nil || end == nil {
		return nil, &FilterError{Reason: "invalid time range"}
	}

	startTS := start.Resolve()
	endTS := end.Resolve()

	if min, max, ok := t.Bounds(); ok {
		if startTS.Before(min) {
			startTS = min
		}
		if endTS.After(max) {
			endTS = max
		}
	}

	if startTS.After(endTS) {
		return nil, &FilterError{Reason: "inverted time range"}
	}

	sorted := t.SortByTime()
	filtered := NewTable()
	for name := range sorted.Columns {
		filtered.Columns[name] = nil
	}
	for i, ts := range sorted.Index {
		if ts.Before(startTS) || ts.After(endTS) {
			continue
		}
		filtered.Index = append(filtered.Index, ts)
		for name, values := range sorted.Columns {
			filtered.Columns[name] = append(filtered.Columns[name], values[i])
		}
	}
	return filtered, nil
}

// Series is one real-valued column over a time index. NaN marks a missing
// value.
type Series struct {
	Times  []time.Time
	Values []float64
}

// Len returns the number of points.
func (s *Series) Len() int {
	return len(s.Times)
}

// AllMissing reports whether every value of the series is NaN.
func (s *Series) AllMissing() bool {
	for _, v := range s.Values {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}
