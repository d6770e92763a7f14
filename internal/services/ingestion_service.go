package services

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"sort"
	"time"

	"telemetry-charts/internal/models"
	"telemetry-charts/pkg/logging"
	"telemetry-charts/pkg/metrics"
)

// IngestionService parses raw telemetry JSON logs into per-device
// time-indexed tables.
type IngestionService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestResult contains ingestion statistics
type IngestResult struct {
	Tables         models.DeviceTableMap
	TotalRecords   int
	SkippedRecords int
	DroppedRows    int
	Duration       time.Duration
}

// ProgressFunc reports how many records of the total have been processed.
type ProgressFunc func(done, total int)

// NewIngestionService creates a new ingestion service
func NewIngestionService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// deviceRows accumulates the raw rows of one device before the table is
// assembled.
type deviceRows struct {
	times  []time.Time
	rows   []map[string]float64
	fields map[string]struct{}
}

// IngestJSON parses a telemetry log into a device-table map. The input is
// a JSON object whose values are records; records missing any of the
// required keys (uName, serial, Date, data) are skipped silently. The
// optional progress callback is invoked once per record.
func (s *IngestionService) IngestJSON(ctx context.Context, r io.Reader, progress ProgressFunc) (*IngestResult, error) {
	startTime := time.Now()

	var entries map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		s.metrics.RecordIngestError("malformed_json")
		return nil, &models.IngestError{Reason: "malformed JSON: " + err.Error()}
	}

	s.logger.Info(ctx, "[INGEST_START] Starting telemetry ingestion", logging.Fields{
		"entry_count": len(entries),
	})

	// Deterministic processing order for progress reporting and tests.
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	result := &IngestResult{TotalRecords: len(keys)}
	devices := make(map[string]*deviceRows)

	for i, key := range keys {
		if progress != nil {
			progress(i, len(keys))
		}

		record, reason := decodeRecord(entries[key])
		if record == nil {
			result.SkippedRecords++
			s.metrics.RecordIngestSkip(reason)
			continue
		}

		ts, err := record.Timestamp()
		if err != nil {
			result.SkippedRecords++
			s.metrics.RecordIngestSkip("bad_date")
			s.logger.Warn(ctx, "[INGEST_BAD_DATE] Skipping record with unparseable date", logging.Fields{
				"entry_key": key,
				"date":      record.Date,
			})
			continue
		}

		device := record.DeviceKey()
		rows, ok := devices[device]
		if !ok {
			rows = &deviceRows{fields: make(map[string]struct{})}
			devices[device] = rows
		}

		values := record.NumericData()
		rows.times = append(rows.times, ts)
		rows.rows = append(rows.rows, values)
		for field := range values {
			rows.fields[field] = struct{}{}
		}
		s.metrics.IngestRecordsTotal.Inc()
	}
	if progress != nil {
		progress(len(keys), len(keys))
	}

	if len(devices) == 0 {
		s.metrics.RecordIngestError("no_devices")
		return nil, &models.IngestError{Reason: "no usable device records in source"}
	}

	tables := make(models.DeviceTableMap, len(devices))
	for device, rows := range devices {
		table, dropped := buildTable(rows)
		tables[device] = table
		result.DroppedRows += dropped
	}
	result.Tables = tables
	result.Duration = time.Since(startTime)
	s.metrics.IngestDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Telemetry ingestion completed", logging.Fields{
		"device_count":     len(tables),
		"total_records":    result.TotalRecords,
		"skipped_records":  result.SkippedRecords,
		"dropped_rows":     result.DroppedRows,
		"duration_seconds": result.Duration.Seconds(),
	})

	return result, nil
}

// decodeRecord extracts a raw record, returning nil plus a skip reason
// when any of the four required keys is absent or mistyped.
func decodeRecord(raw json.RawMessage) (*models.RawRecord, string) {
	var entry map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, "malformed_entry"
	}

	for _, key := range []string{"uName", "serial", "Date", "data"} {
		if _, ok := entry[key]; !ok {
			return nil, "missing_keys"
		}
	}

	record := &models.RawRecord{}
	if err := json.Unmarshal(entry["uName"], &record.UName); err != nil {
		return nil, "malformed_entry"
	}
	if err := json.Unmarshal(entry["serial"], &record.Serial); err != nil {
		return nil, "malformed_entry"
	}
	if err := json.Unmarshal(entry["Date"], &record.Date); err != nil {
		return nil, "malformed_entry"
	}
	if err := json.Unmarshal(entry["data"], &record.Data); err != nil {
		return nil, "malformed_entry"
	}
	return record, ""
}

// buildTable assembles one device's rows into a table over the union of
// the device's fields. Rows that are missing across every column are
// dropped; the count of dropped rows is returned.
func buildTable(rows *deviceRows) (*models.Table, int) {
	fields := make([]string, 0, len(rows.fields))
	for field := range rows.fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	table := models.NewTable()
	for _, field := range fields {
		table.Columns[field] = nil
	}

	dropped := 0
	for i, row := range rows.rows {
		keep := false
		for _, field := range fields {
			if v, ok := row[field]; ok && !math.IsNaN(v) {
				keep = true
				break
			}
		}
		if !keep {
			dropped++
			continue
		}

		table.Index = append(table.Index, rows.times[i])
		for _, field := range fields {
			v, ok := row[field]
			if !ok {
				v = math.NaN()
			}
			table.Columns[field] = append(table.Columns[field], v)
		}
	}
	return table, dropped
}
