package services

import (
	"context"
	"fmt"
	"time"

	"telemetry-charts/internal/models"
	"telemetry-charts/pkg/logging"
	"telemetry-charts/pkg/metrics"
)

// ChartService runs the full render pipeline for one request: window
// filtering, optional effective-temperature derivation and segmenting,
// aggregation overlays, and assembly of the final trace list for the
// external renderer.
type ChartService struct {
	analysis    *AnalysisService
	aggregation *AggregationService
	logger      *logging.StructuredLogger
	metrics     *metrics.Collector
}

// NewChartService creates a new chart service
func NewChartService(analysis *AnalysisService, aggregation *AggregationService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ChartService {
	return &ChartService{
		analysis:    analysis,
		aggregation: aggregation,
		logger:      logger,
		metrics:     metricsCollector,
	}
}

// BuildTraces turns a device table and render options into an ordered
// trace list. Every failure leaves the inputs untouched; the caller may
// correct the options and retry.
func (s *ChartService) BuildTraces(ctx context.Context, table *models.Table, opts models.RenderOptions) ([]models.Trace, error) {
	startTime := time.Now()
	mode := "regular"
	if opts.EffectiveTempMode {
		mode = "effective_temp"
	}
	defer func() {
		s.metrics.RenderDuration.WithLabelValues(mode).Observe(time.Since(startTime).Seconds())
	}()

	working := table
	if opts.FilterByDate {
		filtered, err := models.FilterByWindow(table, opts.WindowStart, opts.WindowEnd)
		if err != nil {
			s.metrics.RecordRenderError("filter")
			return nil, err
		}
		working = filtered
	}

	var traces []models.Trace
	var err error
	if opts.EffectiveTempMode {
		traces, err = s.effectiveTempTraces(working, opts)
	} else {
		traces, err = s.regularTraces(working, opts)
	}
	if err != nil {
		s.metrics.RecordRenderError("no_data")
		return nil, err
	}

	for _, trace := range traces {
		s.metrics.TracesBuiltTotal.WithLabelValues(string(trace.Kind)).Inc()
	}
	s.logger.Debug(ctx, "[RENDER_COMPLETE] Trace list assembled", logging.Fields{
		"device":      opts.Device,
		"mode":        mode,
		"trace_count": len(traces),
		"row_count":   working.Len(),
	})
	return traces, nil
}

// effectiveTempTraces builds one trace per sensation category present in
// the segment list. Points of a category are concatenated across its
// segments in time order; categories are emitted in order of first
// appearance and share one legend entry via the legend group.
func (s *ChartService) effectiveTempTraces(table *models.Table, opts models.RenderOptions) ([]models.Trace, error) {
	series, categories := s.analysis.EffectiveTemperature(table, opts.TempField, opts.HumidityField)
	if series == nil {
		return nil, &models.NoDataError{Reason: "cannot compute effective temperature for the selected fields"}
	}

	valid, validCategories := s.analysis.DropMissing(series, categories)
	segments := s.analysis.BuildSegments(valid, validCategories)
	if len(segments) == 0 {
		return nil, &models.NoDataError{Reason: "no valid points for the sensation chart"}
	}

	byCategory := make(map[models.Sensation]int)
	traces := make([]models.Trace, 0, len(segments))
	for _, segment := range segments {
		idx, ok := byCategory[segment.Category]
		if !ok {
			traces = append(traces, models.Trace{
				Kind:        opts.Kind,
				Label:       fmt.Sprintf("%s (%s)", segment.Category, opts.Device),
				Color:       models.ColorFor(segment.Category),
				LegendGroup: string(segment.Category),
				Style:       baseStyle(opts.Kind),
			})
			idx = len(traces) - 1
			byCategory[segment.Category] = idx
		}
		trace := &traces[idx]
		trace.XTimes = append(trace.XTimes, segment.Times...)
		trace.Y = append(trace.Y, models.Floats(segment.Values)...)
	}
	return traces, nil
}

// regularTraces builds one trace per selected Y field, plus an overlay
// trace per field for each enabled aggregation resolution.
func (s *ChartService) regularTraces(table *models.Table, opts models.RenderOptions) ([]models.Trace, error) {
	if len(opts.YFields) == 0 {
		return nil, &models.NoDataError{Reason: "no Y fields selected"}
	}

	var xTimes []time.Time
	var xValues []models.Float
	if opts.XField == models.XFieldDate {
		xTimes = table.Index
	} else {
		column, ok := table.Column(opts.XField)
		if !ok {
			return nil, &models.NoDataError{Reason: fmt.Sprintf("X field %q not present for device", opts.XField)}
		}
		xValues = models.Floats(column)
	}

	var traces []models.Trace
	for _, field := range opts.YFields {
		column, ok := table.Column(field)
		if !ok {
			return nil, &models.NoDataError{Reason: fmt.Sprintf("Y field %q not present for device", field)}
		}
		traces = append(traces, models.Trace{
			Kind:    opts.Kind,
			XTimes:  xTimes,
			XValues: xValues,
			Y:       models.Floats(column),
			Label:   fmt.Sprintf("%s (%s)", field, opts.Device),
			Style:   baseStyle(opts.Kind),
		})
	}

	if !opts.Resolutions.Any() {
		return traces, nil
	}

	resolutions := enabledResolutions(opts.Resolutions)
	results := s.aggregation.Aggregate(table, opts.YFields, resolutions)

	meanStyles := map[models.Resolution]string{
		models.ResolutionHourly:      "dash",
		models.ResolutionThreeHourly: "dot",
		models.ResolutionDaily:       "dashdot",
	}
	for _, resolution := range []models.Resolution{models.ResolutionHourly, models.ResolutionThreeHourly, models.ResolutionDaily} {
		byColumn, ok := results[resolution]
		if !ok {
			continue
		}
		for _, field := range opts.YFields {
			series, ok := byColumn[field]
			if !ok {
				continue
			}
			traces = append(traces, models.Trace{
				Kind:   models.TraceLine,
				XTimes: series.Times,
				Y:      models.Floats(series.Values),
				Label:  fmt.Sprintf("%s %s (%s)", field, resolution.Label(), opts.Device),
				Style:  models.TraceStyle{Dash: meanStyles[resolution], Width: 1.5, Step: true},
			})
		}
	}

	if opts.Resolutions.MinMaxDaily {
		for _, field := range opts.YFields {
			if series, ok := results[models.ResolutionDailyMin][field]; ok {
				traces = append(traces, models.Trace{
					Kind:   models.TraceLine,
					XTimes: series.Times,
					Y:      models.Floats(series.Values),
					Label:  fmt.Sprintf("%s min 1д (%s)", field, opts.Device),
					Color:  "blue",
					Style:  models.TraceStyle{Dash: "dash", Width: 1, Step: true},
				})
			}
			if series, ok := results[models.ResolutionDailyMax][field]; ok {
				traces = append(traces, models.Trace{
					Kind:   models.TraceLine,
					XTimes: series.Times,
					Y:      models.Floats(series.Values),
					Label:  fmt.Sprintf("%s max 1д (%s)", field, opts.Device),
					Color:  "red",
					Style:  models.TraceStyle{Width: 1, Step: true},
				})
			}
		}
	}

	return traces, nil
}

// enabledResolutions expands the request toggles into the resolution list
// handed to the aggregation engine.
func enabledResolutions(toggles models.ResolutionToggles) []models.Resolution {
	var resolutions []models.Resolution
	if toggles.OneHour {
		resolutions = append(resolutions, models.ResolutionHourly)
	}
	if toggles.ThreeHours {
		resolutions = append(resolutions, models.ResolutionThreeHourly)
	}
	if toggles.OneDay {
		resolutions = append(resolutions, models.ResolutionDaily)
	}
	if toggles.MinMaxDaily {
		resolutions = append(resolutions, models.ResolutionDailyMin, models.ResolutionDailyMax)
	}
	return resolutions
}

// baseStyle returns the non-aggregated trace style for a chart kind.
func baseStyle(kind models.TraceKind) models.TraceStyle {
	switch kind {
	case models.TraceBar:
		return models.TraceStyle{Width: 0.1}
	case models.TraceScatter:
		return models.TraceStyle{MarkerSize: 8, Opacity: 0.7}
	default:
		return models.TraceStyle{Width: 2}
	}
}
