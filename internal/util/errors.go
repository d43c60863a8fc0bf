package util

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrNoLocalCopy indicates no local bulk dataset exists to fall back on
	ErrNoLocalCopy = errors.New("no local bulk dataset")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrOffline indicates a remote operation was requested in offline mode
	ErrOffline = errors.New("offline mode")
)

// SourceFormatError indicates the bulk dataset file could not be decoded in
// any attempted format. Fatal for the ingestion pass.
type SourceFormatError struct {
	Path     string
	Attempts []string // formats tried, in order
	Err      error
}

func (e *SourceFormatError) Error() string {
	return fmt.Sprintf("unreadable bulk dataset %s (tried %v): %v", e.Path, e.Attempts, e.Err)
}

func (e *SourceFormatError) Unwrap() error { return e.Err }

// HTTPStatusError indicates a request failed with a non-success status.
// Retry logic treats throttling and server-side statuses as transient.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// SchemaMismatchError indicates the persistent index was written by a
// different schema version than the code expects. Callers must rebuild the
// index; no query may run against a mismatched store.
type SchemaMismatchError struct {
	Stored   int
	Expected int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("card index schema version %d does not match expected %d: run 'cdx refresh --force' to rebuild",
		e.Stored, e.Expected)
}

// IsSchemaMismatch reports whether err is (or wraps) a SchemaMismatchError
func IsSchemaMismatch(err error) bool {
	var sm *SchemaMismatchError
	return errors.As(err, &sm)
}
