package store

import (
	"errors"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrVersionNotFound  = errors.New("version not found")
	// ErrConflict is returned by SetCurrentVersion when another writer
	// advanced the pointer between our read and our write.
	ErrConflict = errors.New("current version pointer moved concurrently")
)

// IsNotFound reports whether err is either of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound) || errors.Is(err, ErrVersionNotFound)
}
