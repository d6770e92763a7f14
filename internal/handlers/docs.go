package handlers

import (
	"encoding/json"
	"net/http"
)

// OpenAPISpec returns the OpenAPI 3.0 specification for the Telemetry Charts API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Telemetry Charts API",
			"description": "Device telemetry visualization pipeline: JSON log ingestion, time-window filtering, effective-temperature analysis, and chart trace assembly",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/ingest": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Ingest a telemetry JSON log",
					"description": "Parses the request body into per-device time-indexed tables, replacing the current device map. At most one ingestion runs at a time.",
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Load complete; device list and statistics"},
						"409": map[string]string{"description": "Another ingestion is in progress"},
						"422": map[string]string{"description": "Malformed or empty source"},
					},
				},
			},
			"/api/ingest/progress": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Stream ingest progress",
					"description": "Upgrades to a websocket and streams {done, total, fraction} events while a load runs",
					"responses": map[string]interface{}{
						"101": map[string]string{"description": "Switching protocols"},
					},
				},
			},
			"/api/devices": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "List loaded device identities",
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Device identity list"},
					},
				},
			},
			"/api/devices/{device}/fields": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Describe one device's plottable fields",
					"description": "Field catalog, observed time bounds, and ranked temperature/humidity column candidates",
					"parameters": []map[string]interface{}{
						{
							"name":     "device",
							"in":       "path",
							"required": true,
							"schema":   map[string]string{"type": "string"},
						},
					},
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Field catalog"},
						"404": map[string]string{"description": "Unknown device"},
					},
				},
			},
			"/api/traces": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Build chart traces",
					"description": "Runs the render pipeline (window filter, optional effective-temperature mode, aggregation overlays) and returns the abstract trace list",
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Trace list"},
						"400": map[string]string{"description": "Invalid options or time window"},
						"404": map[string]string{"description": "Unknown device"},
						"422": map[string]string{"description": "No data to plot"},
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": map[string]string{"description": "Service healthy"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
