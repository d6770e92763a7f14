package services

import (
	"context"
	"errors"
	"io"
	"sync"

	"telemetry-charts/internal/models"
	"telemetry-charts/internal/repository"
	"telemetry-charts/pkg/logging"
	"telemetry-charts/pkg/metrics"
)

// ErrLoadInProgress is returned when an ingest is already running; loads
// never run concurrently against the shared table map.
var ErrLoadInProgress = errors.New("ingestion already in progress")

// LoadResult delivers the outcome of one background ingest: either the
// new device-table map or the error, never both.
type LoadResult struct {
	Tables models.DeviceTableMap
	Stats  *IngestResult
	Err    error
}

// Progress reports ingest progress as a fraction of records processed.
type Progress struct {
	Done     int     `json:"done"`
	Total    int     `json:"total"`
	Fraction float64 `json:"fraction"`
}

// Loader runs at most one ingest at a time on a background goroutine and
// replaces the repository's table map on success. Progress events are
// published to subscribers on a separate channel, keeping progress UI
// decoupled from the pure ingest transform.
type Loader struct {
	ingestion *IngestionService
	repo      repository.TableRepository
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector

	mu       sync.Mutex
	inFlight bool
	subs     map[chan Progress]struct{}
}

// NewLoader creates a new loader
func NewLoader(ingestion *IngestionService, repo repository.TableRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Loader {
	return &Loader{
		ingestion: ingestion,
		repo:      repo,
		logger:    logger,
		metrics:   metricsCollector,
		subs:      make(map[chan Progress]struct{}),
	}
}

// Submit starts a background ingest of r. The returned channel receives
// exactly one LoadResult. A second Submit while one ingest is in flight
// fails with ErrLoadInProgress.
func (l *Loader) Submit(ctx context.Context, r io.Reader) (<-chan LoadResult, error) {
	l.mu.Lock()
	if l.inFlight {
		l.mu.Unlock()
		return nil, ErrLoadInProgress
	}
	l.inFlight = true
	l.mu.Unlock()

	l.metrics.ActiveLoads.Set(1)
	out := make(chan LoadResult, 1)

	go func() {
		result, err := l.ingestion.IngestJSON(ctx, r, l.publish)
		if err == nil {
			l.repo.Replace(ctx, result.Tables)
		} else {
			l.logger.Error(ctx, "[LOAD_FAILED] Background ingest failed", logging.Fields{}, err)
		}

		// Release the slot before delivering the result so a caller that
		// receives it can resubmit immediately.
		l.mu.Lock()
		l.inFlight = false
		l.mu.Unlock()
		l.metrics.ActiveLoads.Set(0)

		if err != nil {
			out <- LoadResult{Err: err}
			return
		}
		out <- LoadResult{Tables: result.Tables, Stats: result}
	}()

	return out, nil
}

// InFlight reports whether an ingest is currently running.
func (l *Loader) InFlight() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight
}

// Subscribe registers a progress channel. The channel is buffered; events
// a slow subscriber misses are dropped rather than blocking the ingest.
func (l *Loader) Subscribe() chan Progress {
	ch := make(chan Progress, 16)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()
	return ch
}

// Unsubscribe removes a progress channel.
func (l *Loader) Unsubscribe(ch chan Progress) {
	l.mu.Lock()
	delete(l.subs, ch)
	l.mu.Unlock()
}

// publish fans a progress update out to all subscribers without blocking.
func (l *Loader) publish(done, total int) {
	event := Progress{Done: done, Total: total}
	if total > 0 {
		event.Fraction = float64(done) / float64(total)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
