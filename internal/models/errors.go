package models

import "fmt"

// IngestError reports a source that produced zero usable device tables
// (malformed JSON, empty file, or no record carrying the required keys).
type IngestError struct {
	Reason string
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest failed: %s", e.Reason)
}

// FilterError reports a time window that cannot be applied: either edge
// is absent or the clamped window is inverted.
type FilterError struct {
	Reason string
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("time filter failed: %s", e.Reason)
}

// NoDataError reports a render request that cannot produce any trace.
// The request itself is well-formed; the selection or the data is not.
type NoDataError struct {
	Reason string
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data to plot: %s", e.Reason)
}
