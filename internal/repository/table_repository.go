package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"telemetry-charts/internal/models"
	"telemetry-charts/pkg/logging"
	"telemetry-charts/pkg/metrics"
)

// TableRepository guards the current device-table map. A successful load
// replaces the whole map atomically; readers always observe a complete
// map, never a partially updated one.
type TableRepository interface {
	// Replace swaps in a freshly ingested map.
	Replace(ctx context.Context, tables models.DeviceTableMap)

	// Devices lists the known device identities in lexical order.
	Devices() []string

	// Table returns the table of one device.
	Table(device string) (*models.Table, error)

	// Bounds returns the observed time span of one device's table.
	Bounds(device string) (time.Time, time.Time, error)

	// Snapshot returns the current map. Tables are treated as immutable
	// after ingest, so the map may be read without copying.
	Snapshot() models.DeviceTableMap
}

// NotFoundError indicates a requested device is not in the current map.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// tableRepository implements TableRepository
type tableRepository struct {
	mu      sync.RWMutex
	tables  models.DeviceTableMap
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewTableRepository creates an empty in-memory table repository
func NewTableRepository(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) TableRepository {
	return &tableRepository{
		tables:  models.DeviceTableMap{},
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Replace swaps the current map for the freshly ingested one
func (r *tableRepository) Replace(ctx context.Context, tables models.DeviceTableMap) {
	r.mu.Lock()
	r.tables = tables
	r.mu.Unlock()

	r.metrics.DevicesLoaded.Set(float64(len(tables)))

	r.logger.Info(ctx, "[REPO_REPLACE] Device table map replaced", logging.Fields{
		"device_count": len(tables),
	})
}

// Devices lists known device identities
func (r *tableRepository) Devices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]string, 0, len(r.tables))
	for name := range r.tables {
		devices = append(devices, name)
	}
	sort.Strings(devices)
	return devices
}

// Table returns one device's table
func (r *tableRepository) Table(device string) (*models.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	table, ok := r.tables[device]
	if !ok {
		return nil, &NotFoundError{
			Resource: "device",
			ID:       device,
		}
	}
	return table, nil
}

// Bounds returns the observed time span of one device's table
func (r *tableRepository) Bounds(device string) (time.Time, time.Time, error) {
	table, err := r.Table(device)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	min, max, ok := table.Bounds()
	if !ok {
		return time.Time{}, time.Time{}, &NotFoundError{
			Resource: "observations for device",
			ID:       device,
		}
	}
	return min, max, nil
}

// Snapshot returns the current map
func (r *tableRepository) Snapshot() models.DeviceTableMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tables
}
