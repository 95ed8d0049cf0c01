package metrics

import (
	"time"
)

// HTTPMetrics provides observability for the HTTP file API.
//
// This interface is optional: handlers given a nil or no-op implementation
// run with zero overhead.
type HTTPMetrics interface {
	// RecordRequest records a completed request with its verb (GET, PUT,
	// DELETE, MOVE, ...), the response status code and the duration.
	RecordRequest(verb string, status int, duration time.Duration)

	// RecordRequestStart increments the in-flight counter for a verb.
	RecordRequestStart(verb string)

	// RecordRequestEnd decrements the in-flight counter for a verb.
	RecordRequestEnd(verb string)

	// RecordBytesTransferred records snapshot bytes served ("read") or
	// accepted ("write").
	RecordBytesTransferred(direction string, bytes uint64)

	// RecordConflict records an optimistic concurrency rejection for a verb.
	// Conflicts are expected under contention; a sustained rate points at a
	// misbehaving client.
	RecordConflict(verb string)
}

// noopHTTPMetrics discards everything.
type noopHTTPMetrics struct{}

// NewNoopHTTPMetrics returns an HTTPMetrics that does nothing.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

func (noopHTTPMetrics) RecordRequest(string, int, time.Duration)  {}
func (noopHTTPMetrics) RecordRequestStart(string)                 {}
func (noopHTTPMetrics) RecordRequestEnd(string)                   {}
func (noopHTTPMetrics) RecordBytesTransferred(string, uint64)     {}
func (noopHTTPMetrics) RecordConflict(string)                     {}
