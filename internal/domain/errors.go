package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("resource not found")
	ErrInvalidGSTIN          = errors.New("invalid gstin")
	ErrOversizedBucket       = errors.New("bucket exceeds max size")
	ErrRunTimeout            = errors.New("reconciliation run exceeded job deadline")
	ErrRunCanceled           = errors.New("reconciliation run canceled")
	ErrArchiveUnavailable    = errors.New("export archiving is not configured")
	ErrConservationViolation = errors.New("conservation violation: input value does not equal output value")
)

// NormalizationError reports a raw record that could not be canonicalized.
// The record is excluded from matching and surfaced in the run summary.
type NormalizationError struct {
	Field        string
	Value        string
	ProvenanceID string
	Err          error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("normalizing field %q (value %q): %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("normalizing field %q: missing or unparsable value %q", e.Field, e.Value)
}

func (e *NormalizationError) Unwrap() error { return e.Err }
