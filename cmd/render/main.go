package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"telemetry-charts/internal/models"
	"telemetry-charts/internal/services"
	"telemetry-charts/pkg/logging"
	"telemetry-charts/pkg/metrics"
)

const windowLayout = "2006-01-02 15:04"

func main() {
	// Parse command-line flags
	inputPath := flag.String("input", "", "Path to the telemetry JSON log")
	device := flag.String("device", "", "Device identity to plot (default: first device)")
	xField := flag.String("x", models.XFieldDate, "X-axis field (\"Date\" plots against the time index)")
	yFields := flag.String("y", "", "Comma-separated Y-axis fields")
	kind := flag.String("kind", "line", "Chart kind: line, bar, or scatter")
	effectiveTemp := flag.Bool("effective-temp", false, "Render the effective-temperature sensation chart")
	tempField := flag.String("temp-field", "", "Temperature column for effective-temperature mode")
	humidityField := flag.String("humidity-field", "", "Humidity column for effective-temperature mode")
	from := flag.String("from", "", "Window start, format \"2006-01-02 15:04\"")
	to := flag.String("to", "", "Window end, format \"2006-01-02 15:04\"")
	hourly := flag.Bool("hourly", false, "Overlay hourly means")
	threeHourly := flag.Bool("three-hourly", false, "Overlay 3-hourly means")
	daily := flag.Bool("daily", false, "Overlay daily means")
	minMax := flag.Bool("min-max", false, "Overlay daily min/max envelope")
	outPath := flag.String("out", "", "Write traces JSON to this file (default: stdout)")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "missing required -input flag")
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("charts-render", "1.0.0", logging.WarnLevel)

	ctx := context.Background()

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("charts_render")

	// Initialize services
	ingestionService := services.NewIngestionService(logger, metricsCollector)
	analysisService := services.NewAnalysisService(logger, metricsCollector)
	aggregationService := services.NewAggregationService(logger, metricsCollector)
	chartService := services.NewChartService(analysisService, aggregationService, logger, metricsCollector)

	// Ingest data
	file, err := os.Open(*inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open input: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	startTime := time.Now()
	result, err := ingestionService.IngestJSON(ctx, file, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ingestion failed: %v\n", err)
		os.Exit(1)
	}

	devices := make([]string, 0, len(result.Tables))
	for name := range result.Tables {
		devices = append(devices, name)
	}

	selected := *device
	if selected == "" {
		selected = devices[0]
		for _, name := range devices {
			if name < selected {
				selected = name
			}
		}
	}
	table, ok := result.Tables[selected]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown device %q; available: %s\n", selected, strings.Join(devices, ", "))
		os.Exit(1)
	}

	// Build render options
	chartKind, err := models.ParseTraceKind(*kind)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	opts := models.RenderOptions{
		Device:            selected,
		XField:            *xField,
		Kind:              chartKind,
		EffectiveTempMode: *effectiveTemp,
		TempField:         *tempField,
		HumidityField:     *humidityField,
		Resolutions: models.ResolutionToggles{
			OneHour:     *hourly,
			ThreeHours:  *threeHourly,
			OneDay:      *daily,
			MinMaxDaily: *minMax,
		},
	}
	if *yFields != "" {
		opts.YFields = strings.Split(*yFields, ",")
	}
	if *from != "" || *to != "" {
		opts.FilterByDate = true
		opts.WindowStart = parseWindowEdge(*from)
		opts.WindowEnd = parseWindowEdge(*to)
	}

	traces, err := chartService.BuildTraces(ctx, table, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		os.Exit(1)
	}

	// Emit traces
	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(traces); err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode traces: %v\n", err)
		os.Exit(1)
	}

	// Print summary
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 80))
	fmt.Fprintln(os.Stderr, "RENDER COMPLETE")
	fmt.Fprintln(os.Stderr, strings.Repeat("=", 80))
	fmt.Fprintf(os.Stderr, "Devices:            %d\n", len(result.Tables))
	fmt.Fprintf(os.Stderr, "Total Records:      %d\n", result.TotalRecords)
	fmt.Fprintf(os.Stderr, "Skipped Records:    %d\n", result.SkippedRecords)
	fmt.Fprintf(os.Stderr, "Dropped Rows:       %d\n", result.DroppedRows)
	fmt.Fprintf(os.Stderr, "Selected Device:    %s\n", selected)
	fmt.Fprintf(os.Stderr, "Traces:             %d\n", len(traces))
	fmt.Fprintf(os.Stderr, "Duration:           %v\n", time.Since(startTime))
}

// parseWindowEdge converts a flag value to a window edge; nil marks an
// absent or malformed edge, which the filter reports as an invalid range.
func parseWindowEdge(s string) *models.DateTime {
	ts, err := time.ParseInLocation(windowLayout, s, time.UTC)
	if err != nil {
		return nil
	}
	return &models.DateTime{
		Year:   ts.Year(),
		Month:  ts.Month(),
		Day:    ts.Day(),
		Hour:   ts.Hour(),
		Minute: ts.Minute(),
	}
}
