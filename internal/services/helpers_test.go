package services

import (
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"telemetry-charts/pkg/logging"
	"telemetry-charts/pkg/metrics"
)

// newTestLogger returns a silenced logger.
func newTestLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	return logger
}

// newTestMetrics returns a collector on a private registry so parallel
// tests never collide on metric registration.
func newTestMetrics(t *testing.T) *metrics.Collector {
	t.Helper()
	return metrics.NewCollectorWith(prometheus.NewRegistry(), "test")
}
