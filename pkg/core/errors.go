// Package core provides the main EvoMem client and the adaptive memory
// operation surface.
package core

import (
	"errors"
	"fmt"

	"github.com/evomem-labs/evomem-go/pkg/memstate"
	"github.com/evomem-labs/evomem-go/pkg/privacy"
	"github.com/evomem-labs/evomem-go/pkg/similarity"
	"github.com/evomem-labs/evomem-go/pkg/storage"
)

// Predefined errors for common failure scenarios.
//
// Errors originating in inner packages are re-exported here so callers can
// match the whole taxonomy with errors.Is against a single package.
var (
	// ErrValidation indicates malformed or out-of-range input: bad content
	// length, out-of-range importance, empty attributes, unknown privacy
	// level. Always recoverable by the caller correcting the input.
	ErrValidation = errors.New("invalid input")

	// ErrDimensionMismatch indicates two vectors of unequal length.
	ErrDimensionMismatch = similarity.ErrDimensionMismatch

	// ErrNotFound indicates that a requested record was not found.
	ErrNotFound = storage.ErrNotFound

	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates that embedding generation failed.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrStorageOperation indicates that a storage operation failed.
	ErrStorageOperation = errors.New("storage operation failed")

	// ErrPrivacyBudgetExhausted indicates a release rejected because the
	// user's accumulated privacy loss would exceed the configured budget.
	ErrPrivacyBudgetExhausted = privacy.ErrBudgetExhausted
)

// MemoryError wraps errors with operation context.
//
// It records which client operation failed, making error messages more
// informative for debugging.
//
// Example:
//
//	err := &MemoryError{
//	    Op:  "SubmitEvent",
//	    Err: ErrValidation,
//	}
//	// Error() returns: "evomem: SubmitEvent: invalid input"
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "evomem: <Op>: <Err>"
func (e *MemoryError) Error() string {
	return fmt.Sprintf("evomem: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
//
// This allows using errors.Is() and errors.As() with MemoryError.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError creates a new MemoryError wrapping the given error.
//
// If err is nil, returns nil. This allows safe error wrapping:
//
//	if err != nil {
//	    return NewMemoryError("SubmitEvent", err)
//	}
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{Op: op, Err: err}
}

// validationError marks an error as caller-correctable input failure while
// preserving the original cause for errors.Is.
func validationError(err error) error {
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// engineValidation maps the memory engine's input validation failures onto
// ErrValidation so callers can match the whole taxonomy with one sentinel.
// Dimension mismatches keep their dedicated ErrDimensionMismatch.
func engineValidation(err error) error {
	if errors.Is(err, memstate.ErrInvalidSignificance) || errors.Is(err, memstate.ErrNonFiniteEmbedding) {
		return validationError(err)
	}
	return err
}
