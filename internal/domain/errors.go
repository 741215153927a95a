package domain

import (
	"errors"
	"fmt"
)

// Common domain errors. Per-entry and per-sheet conditions are non-fatal:
// the batch skips and counts them. Configuration errors abort before any
// sheet is processed.
var (
	// ErrNoScores indicates a student received no valid ratings. The caller
	// resolves it according to the configured no-data policy; it must never
	// silently become a zero grade.
	ErrNoScores = errors.New("no valid scores for student")

	// ErrNoSheets indicates the input directory contained no usable PDFs.
	ErrNoSheets = errors.New("no score sheets found")

	// ErrInvalidConfiguration indicates run configuration that fails
	// validation. Always fatal.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ConfigError wraps ErrInvalidConfiguration with the offending field.
type ConfigError struct {
	// Field names the configuration value that failed validation.
	Field string

	// Reason describes why the value was rejected.
	Reason string
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Unwrap makes ConfigError match ErrInvalidConfiguration with errors.Is.
func (e *ConfigError) Unwrap() error { return ErrInvalidConfiguration }

// NewConfigError creates a ConfigError for the given field.
func NewConfigError(field, reason string) *ConfigError {
	return &ConfigError{Field: field, Reason: reason}
}

// MalformedScoreError records one transcribed entry that was excluded from
// aggregation: a score outside MinScore..MaxScore or a row index off the
// form. It identifies the exact (sheet, row) pair for the audit trail.
type MalformedScoreError struct {
	SheetID string
	Row     int
	Score   int
	Reason  string
}

// Error implements the error interface for MalformedScoreError.
func (e *MalformedScoreError) Error() string {
	return fmt.Sprintf("malformed score on sheet %s row %d (value %d): %s",
		e.SheetID, e.Row, e.Score, e.Reason)
}

// TranscriptionError records a whole-sheet transcription failure: transport
// error, timeout, or an unparseable service response. The sheet contributes
// nothing to any StudentRecord and the batch continues.
type TranscriptionError struct {
	SheetID string
	Err     error
}

// Error implements the error interface for TranscriptionError.
func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed for sheet %s: %v", e.SheetID, e.Err)
}

// Unwrap returns the underlying cause for errors.Is / errors.As inspection.
func (e *TranscriptionError) Unwrap() error { return e.Err }
