package services

import (
	"math"
	"testing"
	"time"

	"telemetry-charts/internal/models"
)

func aggregationTable(points []struct {
	ts    time.Time
	value float64
}) *models.Table {
	table := models.NewTable()
	for _, p := range points {
		table.Index = append(table.Index, p.ts)
		table.Columns["temp"] = append(table.Columns["temp"], p.value)
	}
	return table
}

func day(d, hour, minute int) time.Time {
	return time.Date(2023, 6, d, hour, minute, 0, 0, time.UTC)
}

func TestAggregateHourlyMean(t *testing.T) {
	service := NewAggregationService(newTestLogger(), newTestMetrics(t))

	table := aggregationTable([]struct {
		ts    time.Time
		value float64
	}{
		{day(1, 10, 0), 10},
		{day(1, 10, 30), 20},
	})

	results := service.Aggregate(table, []string{"temp"}, []models.Resolution{models.ResolutionHourly})
	series := results[models.ResolutionHourly]["temp"]
	if series == nil {
		t.Fatal("missing hourly series")
	}

	// The smallest gap is 30 minutes, so a synthetic terminal lands at
	// 11:00 carrying the last value into its own bucket.
	if series.Len() != 2 {
		t.Fatalf("bucket count = %d, want 2", series.Len())
	}
	if !series.Times[0].Equal(day(1, 10, 0)) {
		t.Errorf("bucket edge = %v, want %v", series.Times[0], day(1, 10, 0))
	}
	if series.Values[0] != 15 {
		t.Errorf("mean of bucket 10:00 = %v, want 15", series.Values[0])
	}
	if series.Values[1] != 20 {
		t.Errorf("terminal bucket = %v, want 20 (last value carried forward)", series.Values[1])
	}
}

func TestAggregateEmptyBucketsAreMissingNotZero(t *testing.T) {
	service := NewAggregationService(newTestLogger(), newTestMetrics(t))

	table := aggregationTable([]struct {
		ts    time.Time
		value float64
	}{
		{day(1, 10, 0), 1},
		{day(1, 10, 10), 2},
		{day(1, 13, 0), 4},
	})

	results := service.Aggregate(table, []string{"temp"}, []models.Resolution{models.ResolutionHourly})
	series := results[models.ResolutionHourly]["temp"]
	if series == nil {
		t.Fatal("missing hourly series")
	}
	if series.Len() != 4 {
		t.Fatalf("bucket count = %d, want 4 (10:00 through 13:00)", series.Len())
	}
	if series.Values[0] != 1.5 {
		t.Errorf("bucket 10:00 = %v, want 1.5", series.Values[0])
	}
	if !math.IsNaN(series.Values[1]) || !math.IsNaN(series.Values[2]) {
		t.Errorf("empty buckets = %v, %v, want NaN (never zero)", series.Values[1], series.Values[2])
	}
	if series.Values[3] != 4 {
		t.Errorf("bucket 13:00 = %v, want 4", series.Values[3])
	}
}

func TestAggregateThreeHourlyAnchoredAtMidnight(t *testing.T) {
	service := NewAggregationService(newTestLogger(), newTestMetrics(t))

	table := aggregationTable([]struct {
		ts    time.Time
		value float64
	}{
		{day(1, 4, 0), 8},
		{day(1, 5, 0), 12},
	})

	results := service.Aggregate(table, []string{"temp"}, []models.Resolution{models.ResolutionThreeHourly})
	series := results[models.ResolutionThreeHourly]["temp"]
	if series == nil {
		t.Fatal("missing 3-hourly series")
	}
	if !series.Times[0].Equal(day(1, 3, 0)) {
		t.Errorf("first bucket edge = %v, want 03:00 (midnight-anchored)", series.Times[0])
	}
	if series.Values[0] != 10 {
		t.Errorf("bucket 03:00 = %v, want 10", series.Values[0])
	}
}

func TestAggregateDailyEnvelope(t *testing.T) {
	service := NewAggregationService(newTestLogger(), newTestMetrics(t))

	table := aggregationTable([]struct {
		ts    time.Time
		value float64
	}{
		{day(1, 10, 0), 5},
		{day(1, 12, 0), 15},
	})

	results := service.Aggregate(table, []string{"temp"}, []models.Resolution{
		models.ResolutionDailyMin, models.ResolutionDailyMax,
	})

	min := results[models.ResolutionDailyMin]["temp"]
	max := results[models.ResolutionDailyMax]["temp"]
	if min == nil || max == nil {
		t.Fatal("missing envelope series")
	}

	// The series ends after 01:00:00, so the last bucket is repeated one
	// day later to stretch the step line across the final day.
	if min.Len() != 2 || max.Len() != 2 {
		t.Fatalf("envelope lengths = %d/%d, want 2/2", min.Len(), max.Len())
	}
	if min.Values[0] != 5 || min.Values[1] != 5 {
		t.Errorf("min values = %v, want [5 5]", min.Values)
	}
	if max.Values[0] != 15 || max.Values[1] != 15 {
		t.Errorf("max values = %v, want [15 15]", max.Values)
	}
	if !min.Times[1].Equal(day(2, 0, 0)) {
		t.Errorf("extension bucket = %v, want %v", min.Times[1], day(2, 0, 0))
	}
}

func TestAggregateDailyEnvelopeNoEarlyMorningExtension(t *testing.T) {
	service := NewAggregationService(newTestLogger(), newTestMetrics(t))

	// Last sample at 00:30, gap 30 minutes: the synthetic terminal lands at
	// exactly 01:00:00, which does not trigger the extra-day extension.
	table := aggregationTable([]struct {
		ts    time.Time
		value float64
	}{
		{day(1, 0, 0), 5},
		{day(1, 0, 30), 7},
	})

	results := service.Aggregate(table, []string{"temp"}, []models.Resolution{models.ResolutionDailyMax})
	series := results[models.ResolutionDailyMax]["temp"]
	if series == nil {
		t.Fatal("missing max series")
	}
	if series.Len() != 1 {
		t.Fatalf("bucket count = %d, want 1 (no extension at 01:00:00 sharp)", series.Len())
	}
	if series.Values[0] != 7 {
		t.Errorf("max = %v, want 7", series.Values[0])
	}
}

func TestAggregateOmitsAllMissingColumns(t *testing.T) {
	service := NewAggregationService(newTestLogger(), newTestMetrics(t))

	table := models.NewTable()
	table.Index = []time.Time{day(1, 10, 0), day(1, 11, 0)}
	table.Columns["temp"] = []float64{10, 20}
	table.Columns["broken"] = []float64{math.NaN(), math.NaN()}

	results := service.Aggregate(table, []string{"temp", "broken", "absent"}, []models.Resolution{models.ResolutionHourly})
	byColumn := results[models.ResolutionHourly]
	if _, ok := byColumn["temp"]; !ok {
		t.Error("temp series missing")
	}
	if _, ok := byColumn["broken"]; ok {
		t.Error("all-missing column must be omitted")
	}
	if _, ok := byColumn["absent"]; ok {
		t.Error("absent column must be omitted")
	}
}

func TestAggregateEmptyTable(t *testing.T) {
	service := NewAggregationService(newTestLogger(), newTestMetrics(t))
	results := service.Aggregate(models.NewTable(), []string{"temp"}, []models.Resolution{models.ResolutionHourly})
	if len(results) != 0 {
		t.Errorf("results = %v, want empty map", results)
	}
}

func TestMinSampleGap(t *testing.T) {
	tests := []struct {
		name  string
		times []time.Time
		want  time.Duration
	}{
		{"no samples", nil, time.Minute},
		{"single sample", []time.Time{day(1, 0, 0)}, time.Minute},
		{
			"uneven gaps",
			[]time.Time{day(1, 0, 0), day(1, 0, 10), day(1, 3, 0)},
			10 * time.Minute,
		},
		{
			"duplicate timestamps give zero gap",
			[]time.Time{day(1, 0, 0), day(1, 0, 0), day(1, 1, 0)},
			0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := minSampleGap(tt.times); got != tt.want {
				t.Errorf("minSampleGap() = %v, want %v", got, tt.want)
			}
		})
	}
}
