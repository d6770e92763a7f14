package services

import (
	"math"
	"time"

	"telemetry-charts/internal/models"
	"telemetry-charts/pkg/logging"
	"telemetry-charts/pkg/metrics"
)

// AnalysisService derives the effective-temperature series and its
// sensation classification from a device table.
type AnalysisService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AnalysisService {
	return &AnalysisService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// EffectiveTemperature computes the effective-temperature series
//
//	eff = t − 0.4·(t − 10)·(1 − h/100)
//
// pointwise over the temperature and humidity columns, together with the
// per-point sensation categories. The failure mode is soft: the result is
// (nil, nil) when either column name is empty, either column is absent,
// or every computed value is missing. A missing input at one timestamp
// yields a missing output at that timestamp only.
func (s *AnalysisService) EffectiveTemperature(table *models.Table, tempColumn, humidityColumn string) (*models.Series, []models.Sensation) {
	if tempColumn == "" || humidityColumn == "" {
		return nil, nil
	}

	temp, ok := table.Column(tempColumn)
	if !ok {
		return nil, nil
	}
	humidity, ok := table.Column(humidityColumn)
	if !ok {
		return nil, nil
	}

	values := make([]float64, table.Len())
	allMissing := true
	for i := range values {
		t, h := temp[i], humidity[i]
		if math.IsNaN(t) || math.IsNaN(h) {
			values[i] = math.NaN()
			continue
		}
		values[i] = t - 0.4*(t-10)*(1-h/100)
		allMissing = false
	}
	if allMissing {
		return nil, nil
	}

	series := &models.Series{
		Times:  append([]time.Time(nil), table.Index...),
		Values: values,
	}
	categories := make([]models.Sensation, len(values))
	for i, v := range values {
		categories[i] = models.Classify(v)
	}
	return series, categories
}

// DropMissing removes the points of a classified series whose value is
// missing (and therefore carry no category).
func (s *AnalysisService) DropMissing(series *models.Series, categories []models.Sensation) (*models.Series, []models.Sensation) {
	valid := &models.Series{}
	var validCategories []models.Sensation
	for i, v := range series.Values {
		if math.IsNaN(v) {
			continue
		}
		valid.Times = append(valid.Times, series.Times[i])
		valid.Values = append(valid.Values, v)
		validCategories = append(validCategories, categories[i])
	}
	return valid, validCategories
}

// BuildSegments partitions a classified series into maximal contiguous
// runs sharing one category. Points are visited in index order; a
// category change starts a new segment and equal consecutive categories
// extend the current one. The caller pre-drops uncategorized points;
// any remaining ones are skipped. Empty input yields empty output.
func (s *AnalysisService) BuildSegments(series *models.Series, categories []models.Sensation) []models.Segment {
	var segments []models.Segment
	for i := range series.Times {
		category := categories[i]
		if category == models.SensationNone {
			continue
		}
		if len(segments) == 0 || segments[len(segments)-1].Category != category {
			segments = append(segments, models.Segment{Category: category})
		}
		last := &segments[len(segments)-1]
		last.Times = append(last.Times, series.Times[i])
		last.Values = append(last.Values, series.Values[i])
	}
	return segments
}
