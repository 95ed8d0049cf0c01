package vault

// StoreError represents a domain error from vault store operations.
//
// These are business logic failures (unknown path, stale token, occupied
// destination) as opposed to infrastructure errors (disk failure, database
// corruption). The HTTP layer translates the Code to a status code;
// infrastructure errors are wrapped normally and surface as 500s.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a vault store error.
type ErrorCode int

const (
	// ErrNotFound indicates the referenced path or version has no record.
	// A soft-deleted path reads the same as one that never existed.
	ErrNotFound ErrorCode = iota

	// ErrVersionConflict indicates the asserted token was absent when
	// required, or does not match the current version. The operation had no
	// effect; the caller must refresh and resubmit.
	ErrVersionConflict

	// ErrDestinationOccupied indicates a MOVE target already has a live
	// record.
	ErrDestinationOccupied

	// ErrBadRequest indicates malformed input: an invalid path, a
	// non-integer token, or a move onto itself.
	ErrBadRequest

	// ErrIO indicates the durability layer could not persist a mutation.
	// Nothing was committed; the caller may retry the whole operation.
	ErrIO
)

// CodeOf extracts the ErrorCode from an error, returning ErrIO for anything
// that is not a *StoreError (infrastructure failures).
func CodeOf(err error) ErrorCode {
	if se, ok := err.(*StoreError); ok {
		return se.Code
	}
	return ErrIO
}

// IsNotFound reports whether the error is a not-found store error.
func IsNotFound(err error) bool {
	se, ok := err.(*StoreError)
	return ok && se.Code == ErrNotFound
}

// IsVersionConflict reports whether the error is a version-conflict store error.
func IsVersionConflict(err error) bool {
	se, ok := err.(*StoreError)
	return ok && se.Code == ErrVersionConflict
}
