package metrics

import (
	"time"
)

// GCMetrics provides observability for the blob garbage collector.
type GCMetrics interface {
	// RecordRun records a completed collection cycle: how long it took, how
	// many orphan blobs it found and how many it reclaimed.
	RecordRun(duration time.Duration, orphans int, reclaimed int)

	// RecordError records a failed collection cycle.
	RecordError()
}

// noopGCMetrics discards everything.
type noopGCMetrics struct{}

// NewNoopGCMetrics returns a GCMetrics that does nothing.
func NewNoopGCMetrics() GCMetrics {
	return noopGCMetrics{}
}

func (noopGCMetrics) RecordRun(time.Duration, int, int) {}
func (noopGCMetrics) RecordError()                      {}
