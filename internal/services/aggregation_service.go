package services

import (
	"math"
	"time"

	"telemetry-charts/internal/models"
	"telemetry-charts/pkg/logging"
	"telemetry-charts/pkg/metrics"
)

// AggregationService produces resampled aggregate series: hourly,
// 3-hourly and daily means plus the daily min/max envelope.
type AggregationService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewAggregationService creates a new aggregation service
func NewAggregationService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *AggregationService {
	return &AggregationService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Aggregate resamples the requested columns of the table at each
// resolution. Before resampling, one synthetic terminal row is appended
// at lastTimestamp + Δ (Δ = smallest observed inter-sample gap, one
// minute when fewer than two samples exist), carrying the last observed
// values forward so the final partial bucket reflects the true last
// value. A (resolution, column) result that is entirely missing is
// omitted; a resolution with no surviving columns is absent from the
// returned map.
func (s *AggregationService) Aggregate(table *models.Table, columns []string, resolutions []models.Resolution) map[models.Resolution]map[string]*models.Series {
	sorted := table.SortByTime()

	times := append([]time.Time(nil), sorted.Index...)
	working := make(map[string][]float64, len(columns))
	var present []string
	for _, column := range columns {
		values, ok := sorted.Column(column)
		if !ok {
			continue
		}
		present = append(present, column)
		working[column] = append([]float64(nil), values...)
	}

	if len(times) > 0 {
		terminal := times[len(times)-1].Add(minSampleGap(times))
		times = append(times, terminal)
		for _, column := range present {
			values := working[column]
			working[column] = append(values, values[len(values)-1])
		}
	}

	results := make(map[models.Resolution]map[string]*models.Series)
	for _, resolution := range resolutions {
		byColumn := make(map[string]*models.Series)
		for _, column := range present {
			series := resample(times, working[column], resolution)
			if series == nil || series.AllMissing() {
				continue
			}
			byColumn[column] = series
		}
		if len(byColumn) > 0 {
			results[resolution] = byColumn
		}
	}
	return results
}

// minSampleGap returns the smallest gap between consecutive samples of a
// sorted time index, one minute when fewer than two samples exist.
// Duplicate timestamps make the gap zero; that is preserved.
func minSampleGap(times []time.Time) time.Duration {
	if len(times) < 2 {
		return time.Minute
	}
	min := times[1].Sub(times[0])
	for i := 2; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < min {
			min = gap
		}
	}
	return min
}

// bucketStart truncates a timestamp to its bucket's left edge. Buckets
// are left-closed and anchored at midnight.
func bucketStart(ts time.Time, resolution models.Resolution) time.Time {
	switch resolution {
	case models.ResolutionHourly:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 0, 0, 0, ts.Location())
	case models.ResolutionThreeHourly:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour()/3*3, 0, 0, 0, ts.Location())
	default:
		return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	}
}

// nextBucket advances a bucket edge by one bucket width.
func nextBucket(bucket time.Time, resolution models.Resolution) time.Time {
	switch resolution {
	case models.ResolutionHourly:
		return bucket.Add(time.Hour)
	case models.ResolutionThreeHourly:
		return bucket.Add(3 * time.Hour)
	default:
		return bucket.AddDate(0, 0, 1)
	}
}

// resample aggregates one value slice into bucket-aligned output spanning
// the full input range. Buckets containing no non-missing sample yield
// NaN.
func resample(times []time.Time, values []float64, resolution models.Resolution) *models.Series {
	if len(times) == 0 {
		return nil
	}

	switch resolution {
	case models.ResolutionHourly, models.ResolutionThreeHourly, models.ResolutionDaily:
		return resampleMean(times, values, resolution)
	case models.ResolutionDailyMin:
		return resampleEnvelope(times, values, false)
	case models.ResolutionDailyMax:
		return resampleEnvelope(times, values, true)
	}
	return nil
}

func resampleMean(times []time.Time, values []float64, resolution models.Resolution) *models.Series {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for i, ts := range times {
		if math.IsNaN(values[i]) {
			continue
		}
		bucket := bucketStart(ts, resolution)
		sums[bucket] += values[i]
		counts[bucket]++
	}

	series := &models.Series{}
	start := bucketStart(times[0], resolution)
	end := bucketStart(times[len(times)-1], resolution)
	for bucket := start; !bucket.After(end); bucket = nextBucket(bucket, resolution) {
		value := math.NaN()
		if counts[bucket] > 0 {
			value = sums[bucket] / float64(counts[bucket])
		}
		series.Times = append(series.Times, bucket)
		series.Values = append(series.Values, value)
	}
	return series
}

func resampleEnvelope(times []time.Time, values []float64, max bool) *models.Series {
	extremes := make(map[time.Time]float64)
	for i, ts := range times {
		v := values[i]
		if math.IsNaN(v) {
			continue
		}
		bucket := bucketStart(ts, models.ResolutionDaily)
		current, ok := extremes[bucket]
		if !ok || (max && v > current) || (!max && v < current) {
			extremes[bucket] = v
		}
	}

	series := &models.Series{}
	start := bucketStart(times[0], models.ResolutionDaily)
	end := bucketStart(times[len(times)-1], models.ResolutionDaily)
	for bucket := start; !bucket.After(end); bucket = nextBucket(bucket, models.ResolutionDaily) {
		value := math.NaN()
		if v, ok := extremes[bucket]; ok {
			value = v
		}
		series.Times = append(series.Times, bucket)
		series.Values = append(series.Values, value)
	}

	// A step line stopping at the last day's midnight reads as if the day
	// had no data; when the series ends after 01:00:00, repeat the last
	// bucket one day later so the line extends across that final day.
	if afterOneAM(times[len(times)-1]) && len(series.Times) > 0 {
		lastBucket := series.Times[len(series.Times)-1]
		lastValue := series.Values[len(series.Values)-1]
		series.Times = append(series.Times, nextBucket(lastBucket, models.ResolutionDaily))
		series.Values = append(series.Values, lastValue)
	}
	return series
}

// afterOneAM reports whether the time-of-day is strictly after 01:00:00.
func afterOneAM(ts time.Time) bool {
	h, m, s := ts.Clock()
	return h > 1 || (h == 1 && (m > 0 || s > 0))
}
