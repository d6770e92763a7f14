package models

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"
)

// TraceKind selects how the renderer draws a trace.
type TraceKind string

const (
	TraceLine    TraceKind = "line"
	TraceBar     TraceKind = "bar"
	TraceScatter TraceKind = "scatter"
	TraceStep    TraceKind = "step"
)

// ParseTraceKind validates a user-supplied chart kind.
func ParseTraceKind(s string) (TraceKind, error) {
	switch TraceKind(s) {
	case TraceLine, TraceBar, TraceScatter:
		return TraceKind(s), nil
	}
	return "", fmt.Errorf("unknown chart kind %q", s)
}

// Float is a float64 that serializes NaN as JSON null, mirroring the
// missing-value convention of the input log.
type Float float64

var jsonNull = []byte("null")

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) {
		return jsonNull, nil
	}
	return []byte(strconv.FormatFloat(float64(f), 'g', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler; null decodes to NaN.
func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Floats converts a value slice to the JSON-safe representation.
func Floats(values []float64) []Float {
	out := make([]Float, len(values))
	for i, v := range values {
		out[i] = Float(v)
	}
	return out
}

// TraceStyle carries renderer hints. Zero values mean "renderer default".
type TraceStyle struct {
	Dash       string  `json:"dash,omitempty"` // dash, dot, dashdot
	Width      float64 `json:"width,omitempty"`
	Step       bool    `json:"step,omitempty"`
	MarkerSize float64 `json:"marker_size,omitempty"`
	Opacity    float64 `json:"opacity,omitempty"`
}

// Trace is one drawable series handed to the external renderer. Exactly
// one of XTimes and XValues is populated, depending on whether the X axis
// is the time index or a plain numeric field.
type Trace struct {
	Kind        TraceKind   `json:"kind"`
	XTimes      []time.Time `json:"x_times,omitempty"`
	XValues     []Float     `json:"x_values,omitempty"`
	Y           []Float     `json:"y"`
	Label       string      `json:"label"`
	Color       string      `json:"color,omitempty"`
	LegendGroup string      `json:"legend_group,omitempty"`
	Style       TraceStyle  `json:"style"`
}

// XFieldDate is the synthetic X-axis field name that selects the time
// index instead of a data column.
const XFieldDate = "Date"

// ResolutionToggles enables aggregate overlay traces per resolution.
type ResolutionToggles struct {
	OneHour     bool `json:"one_hour"`
	ThreeHours  bool `json:"three_hours"`
	OneDay      bool `json:"one_day"`
	MinMaxDaily bool `json:"min_max_daily"`
}

// Any reports whether at least one resolution is enabled.
func (r ResolutionToggles) Any() bool {
	return r.OneHour || r.ThreeHours || r.OneDay || r.MinMaxDaily
}

// RenderOptions is the full configuration of one render request. It
// replaces the widget state the desktop UI reads implicitly: every
// pipeline call receives the options as a plain value.
type RenderOptions struct {
	Device            string            `json:"device"`
	XField            string            `json:"x_field"`
	YFields           []string          `json:"y_fields"`
	Kind              TraceKind         `json:"kind"`
	EffectiveTempMode bool              `json:"effective_temp_mode"`
	TempField         string            `json:"temp_field,omitempty"`
	HumidityField     string            `json:"humidity_field,omitempty"`
	FilterByDate      bool              `json:"filter_by_date"`
	WindowStart       *DateTime         `json:"window_start,omitempty"`
	WindowEnd         *DateTime         `json:"window_end,omitempty"`
	Resolutions       ResolutionToggles `json:"resolutions"`
}
