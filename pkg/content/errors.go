package content

import "errors"

// Standard content store errors.
//
// These give every backend a consistent way to signal common failures.
// Implementations wrap them with context:
//
//	if !exists {
//	    return fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
//	}
//
// and callers test with errors.Is.
var (
	// ErrContentNotFound indicates the requested blob does not exist.
	ErrContentNotFound = errors.New("content not found")

	// ErrStoreUnavailable indicates the backend cannot currently serve
	// requests (disconnected bucket, unmounted disk). Healthchecks map this
	// to an unhealthy status.
	ErrStoreUnavailable = errors.New("content store unavailable")
)
