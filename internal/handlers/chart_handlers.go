package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"telemetry-charts/internal/models"
	"telemetry-charts/internal/repository"
	"telemetry-charts/internal/services"
	"telemetry-charts/pkg/logging"
	"telemetry-charts/pkg/metrics"
)

// ChartHandler handles the chart pipeline API endpoints
type ChartHandler struct {
	charts       *services.ChartService
	loader       *services.Loader
	repo         repository.TableRepository
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
	maxBodyBytes int64
	upgrader     websocket.Upgrader
}

// NewChartHandler creates a new chart handler
func NewChartHandler(
	charts *services.ChartService,
	loader *services.Loader,
	repo repository.TableRepository,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
	maxBodyBytes int64,
) *ChartHandler {
	return &ChartHandler{
		charts:       charts,
		loader:       loader,
		repo:         repo,
		logger:       logger,
		metrics:      metricsCollector,
		maxBodyBytes: maxBodyBytes,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// IngestResponse summarizes a completed load
type IngestResponse struct {
	Devices         []string `json:"devices"`
	TotalRecords    int      `json:"total_records"`
	SkippedRecords  int      `json:"skipped_records"`
	DroppedRows     int      `json:"dropped_rows"`
	DurationSeconds float64  `json:"duration_seconds"`
}

// FieldsResponse describes the plottable fields of one device
type FieldsResponse struct {
	Device             string    `json:"device"`
	Fields             []string  `json:"fields"`
	MinTime            time.Time `json:"min_time"`
	MaxTime            time.Time `json:"max_time"`
	TempCandidates     []string  `json:"temp_candidates"`
	HumidityCandidates []string  `json:"humidity_candidates"`
}

// TracesResponse carries the assembled trace list
type TracesResponse struct {
	Traces []models.Trace `json:"traces"`
	Count  int            `json:"count"`
}

// Ingest handles POST /api/ingest. The request body is the raw telemetry
// JSON log; the response is sent once the background load completes, so
// at most one load runs at a time while progress remains observable via
// the websocket feed.
func (h *ChartHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/ingest").Observe(duration.Seconds())
	}()

	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	resultCh, err := h.loader.Submit(ctx, body)
	if errors.Is(err, services.ErrLoadInProgress) {
		h.metrics.RecordAPIError("load_in_progress", "/api/ingest")
		h.sendError(w, r, "an ingestion is already in progress, retry later", http.StatusConflict)
		return
	}

	result := <-resultCh
	if result.Err != nil {
		var ingestErr *models.IngestError
		if errors.As(result.Err, &ingestErr) {
			h.metrics.RecordAPIError("ingest_error", "/api/ingest")
			h.sendError(w, r, result.Err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.logger.Error(ctx, "[API_INGEST_ERROR] Ingestion failed", logging.Fields{}, result.Err)
		h.metrics.RecordAPIError("internal_error", "/api/ingest")
		h.sendError(w, r, "ingestion failed", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/ingest", "POST", "200")
	h.sendJSON(w, IngestResponse{
		Devices:         h.repo.Devices(),
		TotalRecords:    result.Stats.TotalRecords,
		SkippedRecords:  result.Stats.SkippedRecords,
		DroppedRows:     result.Stats.DroppedRows,
		DurationSeconds: result.Stats.Duration.Seconds(),
	}, http.StatusOK)
}

// IngestProgress handles GET /api/ingest/progress, streaming load
// progress events over a websocket until the client disconnects.
func (h *ChartHandler) IngestProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error(ctx, "[API_PROGRESS_ERROR] Websocket upgrade failed", logging.Fields{}, err)
		return
	}
	defer conn.Close()

	events := h.loader.Subscribe()
	defer h.loader.Unsubscribe(events)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case event := <-events:
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		}
	}
}

// ListDevices handles GET /api/devices
func (h *ChartHandler) ListDevices(w http.ResponseWriter, r *http.Request) {
	h.metrics.RecordAPIRequest("/api/devices", "GET", "200")
	h.sendJSON(w, map[string][]string{"devices": h.repo.Devices()}, http.StatusOK)
}

// DeviceFields handles GET /api/devices/{device}/fields. Besides the
// plain field catalog it ranks temperature and humidity column candidates
// so a client can preselect sensible defaults.
func (h *ChartHandler) DeviceFields(w http.ResponseWriter, r *http.Request) {
	device := mux.Vars(r)["device"]

	table, err := h.repo.Table(device)
	if err != nil {
		h.metrics.RecordAPIError("not_found", "/api/devices/fields")
		h.sendError(w, r, "unknown device: "+device, http.StatusNotFound)
		return
	}

	minTime, maxTime, _ := table.Bounds()
	fields := table.Fields()

	h.metrics.RecordAPIRequest("/api/devices/fields", "GET", "200")
	h.sendJSON(w, FieldsResponse{
		Device:             device,
		Fields:             fields,
		MinTime:            minTime,
		MaxTime:            maxTime,
		TempCandidates:     rankCandidates(fields, tempPriority),
		HumidityCandidates: rankCandidates(fields, humidityPriority),
	}, http.StatusOK)
}

// BuildTraces handles POST /api/traces
func (h *ChartHandler) BuildTraces(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/api/traces").Observe(duration.Seconds())
	}()

	var opts models.RenderOptions
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		h.sendError(w, r, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if opts.Kind == "" {
		opts.Kind = models.TraceLine
	}
	if _, err := models.ParseTraceKind(string(opts.Kind)); err != nil {
		h.sendError(w, r, err.Error(), http.StatusBadRequest)
		return
	}
	if opts.XField == "" {
		opts.XField = models.XFieldDate
	}

	table, err := h.repo.Table(opts.Device)
	if err != nil {
		h.metrics.RecordAPIError("not_found", "/api/traces")
		h.sendError(w, r, "unknown device: "+opts.Device, http.StatusNotFound)
		return
	}

	traces, err := h.charts.BuildTraces(ctx, table, opts)
	if err != nil {
		var filterErr *models.FilterError
		var noDataErr *models.NoDataError
		switch {
		case errors.As(err, &filterErr):
			h.metrics.RecordAPIError("filter_error", "/api/traces")
			h.sendError(w, r, err.Error(), http.StatusBadRequest)
		case errors.As(err, &noDataErr):
			h.metrics.RecordAPIError("no_data", "/api/traces")
			h.sendError(w, r, err.Error(), http.StatusUnprocessableEntity)
		default:
			h.logger.Error(ctx, "[API_TRACES_ERROR] Failed to build traces", logging.Fields{
				"device": opts.Device,
			}, err)
			h.metrics.RecordAPIError("internal_error", "/api/traces")
			h.sendError(w, r, "failed to build traces", http.StatusInternalServerError)
		}
		return
	}

	h.metrics.RecordAPIRequest("/api/traces", "POST", "200")
	h.sendJSON(w, TracesResponse{Traces: traces, Count: len(traces)}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *ChartHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	h.sendJSON(w, status, http.StatusOK)
}

// sendJSON sends a JSON response
func (h *ChartHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *ChartHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all chart API routes
func (h *ChartHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/ingest", h.Ingest).Methods("POST")
	router.HandleFunc("/api/ingest/progress", h.IngestProgress).Methods("GET")
	router.HandleFunc("/api/devices", h.ListDevices).Methods("GET")
	router.HandleFunc("/api/devices/{device}/fields", h.DeviceFields).Methods("GET")
	router.HandleFunc("/api/traces", h.BuildTraces).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

// Field candidate priorities mirror the column names the supported
// sensor firmwares emit, preferred first.
var (
	tempPriority     = []string{"weather_temp", "BME280_temp", "temperature"}
	humidityPriority = []string{"weather_humidity", "BME280_humidity", "humidity"}
)

// rankCandidates orders fields with the priority hits first, keeping the
// remaining fields in their original order.
func rankCandidates(fields []string, priority []string) []string {
	present := make(map[string]bool, len(fields))
	for _, f := range fields {
		present[f] = true
	}

	ranked := make([]string, 0, len(fields))
	taken := make(map[string]bool, len(priority))
	for _, p := range priority {
		if present[p] {
			ranked = append(ranked, p)
			taken[p] = true
		}
	}
	for _, f := range fields {
		if !taken[f] {
			ranked = append(ranked, f)
		}
	}
	return ranked
}
