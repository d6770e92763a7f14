package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"telemetry-charts/internal/models"
	"telemetry-charts/pkg/logging"
	"telemetry-charts/pkg/metrics"
)

func newTestRepository(t *testing.T) TableRepository {
	t.Helper()
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return NewTableRepository(logger, metrics.NewCollectorWith(prometheus.NewRegistry(), "test"))
}

func sampleTables() models.DeviceTableMap {
	table := models.NewTable()
	table.Index = []time.Time{
		time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	table.Columns["temp"] = []float64{20, 22}
	return models.DeviceTableMap{"balcony (A1)": table}
}

func TestTableRepositoryReplace(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if devices := repo.Devices(); len(devices) != 0 {
		t.Fatalf("fresh repository devices = %v, want none", devices)
	}

	repo.Replace(ctx, sampleTables())

	devices := repo.Devices()
	if len(devices) != 1 || devices[0] != "balcony (A1)" {
		t.Fatalf("devices = %v, want [balcony (A1)]", devices)
	}

	table, err := repo.Table("balcony (A1)")
	if err != nil {
		t.Fatalf("Table() error: %v", err)
	}
	if table.Len() != 2 {
		t.Errorf("table rows = %d, want 2", table.Len())
	}

	// A second load replaces the map wholesale, never merges.
	other := models.NewTable()
	other.Index = []time.Time{time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)}
	other.Columns["temp"] = []float64{30}
	repo.Replace(ctx, models.DeviceTableMap{"kitchen (B2)": other})

	if _, err := repo.Table("balcony (A1)"); err == nil {
		t.Error("old device survived the replace")
	}
	if _, err := repo.Table("kitchen (B2)"); err != nil {
		t.Errorf("new device missing: %v", err)
	}
}

func TestTableRepositoryNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Table("nope")
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}

	if _, _, err := repo.Bounds("nope"); err == nil {
		t.Error("Bounds() on unknown device should fail")
	}
}

func TestTableRepositoryBounds(t *testing.T) {
	repo := newTestRepository(t)
	repo.Replace(context.Background(), sampleTables())

	min, max, err := repo.Bounds("balcony (A1)")
	if err != nil {
		t.Fatalf("Bounds() error: %v", err)
	}
	wantMin := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	wantMax := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)
	if !min.Equal(wantMin) || !max.Equal(wantMax) {
		t.Errorf("Bounds() = (%v, %v), want (%v, %v)", min, max, wantMin, wantMax)
	}
}
