package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrExtraction covers OCR and storage read failures. Retryable.
	ErrExtraction = errors.New("extraction failed")
	// ErrClassification covers catalog unavailability and scorer failures. Retryable.
	ErrClassification = errors.New("classification failed")
	// ErrConflict marks concurrent confirmation mismatches. Surfaced to the
	// caller, never retried automatically.
	ErrConflict = errors.New("conflicting update")
	// ErrInvalidState marks an operation attempted against a document or item
	// outside the required pipeline state.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation marks malformed input rejected before any write.
	ErrValidation = errors.New("invalid input")

	ErrNotFound  = errors.New("not found")
	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Retryable reports whether the pipeline may re-enter processing after err.
func Retryable(err error) bool {
	return errors.Is(err, ErrExtraction) ||
		errors.Is(err, ErrClassification) ||
		errors.Is(err, ErrTemporary)
}
