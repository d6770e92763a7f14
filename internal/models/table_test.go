package models

import (
	"math"
	"testing"
	"time"
)

func ts(day, hour, minute int) time.Time {
	return time.Date(2023, 6, day, hour, minute, 0, 0, time.UTC)
}

func testTable() *Table {
	table := NewTable()
	table.Index = []time.Time{
		ts(1, 0, 0), ts(1, 6, 0), ts(1, 12, 0), ts(2, 0, 0), ts(2, 12, 0),
	}
	table.Columns["temp"] = []float64{10, 12, 14, 16, 18}
	table.Columns["humidity"] = []float64{50, 55, 60, math.NaN(), 70}
	return table
}

func TestFilterByWindow(t *testing.T) {
	tests := []struct {
		name      string
		start     *DateTime
		end       *DateTime
		wantLen   int
		wantErr   bool
		wantFirst time.Time
		wantLast  time.Time
	}{
		{
			name:      "full span",
			start:     &DateTime{Year: 2023, Month: 6, Day: 1},
			end:       &DateTime{Year: 2023, Month: 6, Day: 2, Hour: 12},
			wantLen:   5,
			wantFirst: ts(1, 0, 0),
			wantLast:  ts(2, 12, 0),
		},
		{
			name:      "inner window is inclusive on both edges",
			start:     &DateTime{Year: 2023, Month: 6, Day: 1, Hour: 6},
			end:       &DateTime{Year: 2023, Month: 6, Day: 2},
			wantLen:   3,
			wantFirst: ts(1, 6, 0),
			wantLast:  ts(2, 0, 0),
		},
		{
			name:      "edges outside the span are clamped inward",
			start:     &DateTime{Year: 2023, Month: 5, Day: 1},
			end:       &DateTime{Year: 2023, Month: 7, Day: 1},
			wantLen:   5,
			wantFirst: ts(1, 0, 0),
			wantLast:  ts(2, 12, 0),
		},
		{
			name:    "inverted window after clamping",
			start:   &DateTime{Year: 2023, Month: 6, Day: 2, Hour: 6},
			end:     &DateTime{Year: 2023, Month: 6, Day: 1, Hour: 6},
			wantErr: true,
		},
		{
			name:    "nil start edge",
			start:   nil,
			end:     &DateTime{Year: 2023, Month: 6, Day: 2},
			wantErr: true,
		},
		{
			name:    "nil end edge",
			start:   &DateTime{Year: 2023, Month: 6, Day: 1},
			end:     nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FilterByWindow(testTable(), tt.start, tt.end)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected FilterError, got nil")
				}
				if _, ok := err.(*FilterError); !ok {
					t.Fatalf("error type = %T, want *FilterError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Len() != tt.wantLen {
				t.Fatalf("Len() = %d, want %d", got.Len(), tt.wantLen)
			}
			if !got.Index[0].Equal(tt.wantFirst) {
				t.Errorf("first timestamp = %v, want %v", got.Index[0], tt.wantFirst)
			}
			if !got.Index[got.Len()-1].Equal(tt.wantLast) {
				t.Errorf("last timestamp = %v, want %v", got.Index[got.Len()-1], tt.wantLast)
			}
			for name, values := range got.Columns {
				if len(values) != got.Len() {
					t.Errorf("column %q length = %d, want %d", name, len(values), got.Len())
				}
			}
		})
	}
}

func TestFilterByWindowBothEdgesOutsideSameSide(t *testing.T) {
	// Both edges before the observed span: both clamp to the minimum and the
	// window degenerates to the first timestamp.
	start := &DateTime{Year: 2023, Month: 5, Day: 1}
	end := &DateTime{Year: 2023, Month: 5, Day: 2}

	got, err := FilterByWindow(testTable(), start, end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", got.Len())
	}
	if !got.Index[0].Equal(ts(1, 0, 0)) {
		t.Errorf("timestamp = %v, want %v", got.Index[0], ts(1, 0, 0))
	}
}

func TestSortByTimeStable(t *testing.T) {
	table := NewTable()
	table.Index = []time.Time{ts(2, 0, 0), ts(1, 0, 0), ts(1, 0, 0), ts(1, 12, 0)}
	table.Columns["v"] = []float64{4, 1, 2, 3}

	sorted := table.SortByTime()

	wantTimes := []time.Time{ts(1, 0, 0), ts(1, 0, 0), ts(1, 12, 0), ts(2, 0, 0)}
	wantValues := []float64{1, 2, 3, 4}
	for i := range wantTimes {
		if !sorted.Index[i].Equal(wantTimes[i]) {
			t.Errorf("Index[%d] = %v, want %v", i, sorted.Index[i], wantTimes[i])
		}
		if sorted.Columns["v"][i] != wantValues[i] {
			t.Errorf("v[%d] = %v, want %v (duplicate timestamps must keep ingest order)", i, sorted.Columns["v"][i], wantValues[i])
		}
	}

	// Original table is untouched.
	if !table.Index[0].Equal(ts(2, 0, 0)) {
		t.Error("SortByTime modified the original table")
	}
}

func TestBounds(t *testing.T) {
	table := testTable()
	min, max, ok := table.Bounds()
	if !ok {
		t.Fatal("Bounds() reported empty table")
	}
	if !min.Equal(ts(1, 0, 0)) || !max.Equal(ts(2, 12, 0)) {
		t.Errorf("Bounds() = (%v, %v), want (%v, %v)", min, max, ts(1, 0, 0), ts(2, 12, 0))
	}

	if _, _, ok := NewTable().Bounds(); ok {
		t.Error("Bounds() on empty table should report false")
	}
}

func TestSeriesAllMissing(t *testing.T) {
	s := &Series{
		Times:  []time.Time{ts(1, 0, 0), ts(1, 1, 0)},
		Values: []float64{math.NaN(), math.NaN()},
	}
	if !s.AllMissing() {
		t.Error("AllMissing() = false for all-NaN series")
	}

	s.Values[1] = 3.5
	if s.AllMissing() {
		t.Error("AllMissing() = true for series with one real value")
	}
}
