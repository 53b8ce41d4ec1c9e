package fhir

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a bundle source lookup whose subject does not exist.
// Bundle sources wrap their own not-found errors with this sentinel so the
// handler can answer 404 without knowing the domain error types.
var ErrNotFound = errors.New("resource not found")

// ParseError reports an import payload that is not a usable bundle.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse bundle: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse bundle: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ImportError reports the first bundle entry that failed to persist.
// The import aborts at that entry; nothing after it is attempted.
type ImportError struct {
	Index        int
	ResourceType string
	Err          error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import entry %d (%s): %v", e.Index, e.ResourceType, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }
