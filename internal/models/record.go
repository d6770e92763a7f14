package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// RawRecord is one entry of the input JSON log. All four fields are
// required; entries missing any of them are skipped during ingest.
type RawRecord struct {
	UName  string
	Serial string
	Date   string
	Data   map[string]interface{}
}

// recordDateLayouts lists the accepted timestamp formats, most common
// first.
var recordDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// DeviceKey returns the device identity string for grouping.
func (r *RawRecord) DeviceKey() string {
	return fmt.Sprintf("%s (%s)", r.UName, r.Serial)
}

// Timestamp parses the record's Date field as a UTC timestamp.
func (r *RawRecord) Timestamp() (time.Time, error) {
	for _, layout := range recordDateLayouts {
		if ts, err := time.ParseInLocation(layout, r.Date, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", r.Date)
}

// NumericData coerces the record's data fields to numbers. Null and
// non-numeric values (version strings and the like) become NaN.
func (r *RawRecord) NumericData() map[string]float64 {
	values := make(map[string]float64, len(r.Data))
	for field, raw := range r.Data {
		values[field] = coerceNumeric(raw)
	}
	return values
}

// coerceNumeric converts one decoded JSON value to a float64, NaN when the
// value carries no number.
func coerceNumeric(raw interface{}) float64 {
	switch v := raw.(type) {
	case float64:
		return v
	case string:
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return math.NaN()
}
