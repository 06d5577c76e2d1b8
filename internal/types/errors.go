package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for the run-level error taxonomy.
var (
	// ErrInputMissing indicates that a required input table is absent.
	ErrInputMissing = errors.New("input missing")

	// ErrTransform indicates an unexpected failure while building one output record.
	ErrTransform = errors.New("transform failed")

	// ErrTagLookup indicates the tag mapping lookup could not be used.
	ErrTagLookup = errors.New("tag lookup failed")
)

// InputMissingError reports a required input table that could not be found.
type InputMissingError struct {
	Table string
	Path  string
}

// Error implements the error interface
func (e *InputMissingError) Error() string {
	return fmt.Sprintf("required %s table not found: %s", e.Table, e.Path)
}

// Is implements errors.Is support
func (e *InputMissingError) Is(target error) bool {
	return target == ErrInputMissing
}

// TransformError wraps the cause of a failed constituent transform.
type TransformError struct {
	PatronID PatronID
	Row      int
	Err      error
}

// Error implements the error interface
func (e *TransformError) Error() string {
	return fmt.Sprintf("transforming constituent %q (row %d): %v", e.PatronID, e.Row, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransformError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransformError) Is(target error) bool {
	return target == ErrTransform
}

// TagLookupError describes why the tag mapping could not be fetched.
type TagLookupError struct {
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface
func (e *TagLookupError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("tag lookup %s returned status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("tag lookup %s: %v", e.URL, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TagLookupError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TagLookupError) Is(target error) bool {
	return target == ErrTagLookup
}
