package service

import "errors"

var (
	// ErrNotFound is returned when a document does not exist, and also
	// stands in for permission denials at the outer edge so private
	// documents do not leak their existence.
	ErrNotFound = errors.New("page not found")
	// ErrPermissionDenied is returned when the caller may not read the
	// document. Expected and non-exceptional; logged at info level.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrCorrupted is returned when a document has neither a resolvable
	// current version nor recoverable content.
	ErrCorrupted = errors.New("document history is corrupted")
	// ErrValidation is returned for empty or unparseable content,
	// rejected before any write.
	ErrValidation = errors.New("content is empty or not parseable")
	// ErrUnavailable is returned when a store call failed or timed out.
	// The caller may retry; the service never retries internally.
	ErrUnavailable = errors.New("store temporarily unavailable")
	// ErrConflict is returned when a concurrent save advanced the
	// version pointer first.
	ErrConflict = errors.New("document was modified concurrently")
)
