package watch

import (
	"fmt"
	"unicode/utf8"
)

// PreviewLimit bounds the raw-body excerpt attached to errors and documents.
const PreviewLimit = 500

// Preview returns the first PreviewLimit characters of body, valid UTF-8.
func Preview(body []byte) string {
	s := string(body)
	if len(s) <= PreviewLimit {
		return s
	}
	s = s[:PreviewLimit]
	// Back off a partially cut rune at the boundary.
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// FetchError reports a failed retrieval. Transient errors (timeouts,
// 5xx-class responses) are retryable; everything else fails the target.
// Attempts records how many requests were made before giving up.
type FetchError struct {
	URL        string
	StatusCode int
	Transient  bool
	Attempts   int
	Err        error
}

func (e *FetchError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch %s: %s failure (HTTP %d): %v", e.URL, kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s failure: %v", e.URL, kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ClassificationError reports a body the classifier could not resolve.
// Callers degrade to an html classification instead of failing the target.
type ClassificationError struct {
	Reason string
	Err    error
}

func (e *ClassificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classify: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("classify: %s", e.Reason)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// ParseError reports a format-specific decode or validation failure.
// Preview always carries the start of the raw body for diagnosis.
type ParseError struct {
	ContentType ContentType
	Reason      string
	Preview     string
	Err         error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.ContentType, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.ContentType, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError reports a snapshot gateway failure. Never retried; the
// target fails and the run continues.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("snapshot store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
