// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Pipeline error taxonomy. ErrFatalInput is the only kind allowed to divert
// a run; the other kinds are always caught at the stage boundary, recorded
// as warnings, and replaced by fallback data.
var (
	// ErrFatalInput indicates a required input was missing or empty.
	ErrFatalInput = errors.New("fatal input error")
	// ErrCollaborator indicates an external collaborator call failed.
	ErrCollaborator = errors.New("collaborator failure")
	// ErrValidation indicates structured output failed shape checks.
	ErrValidation = errors.New("validation failure")

	// Catalog errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsFatalInput reports whether the error carries the fatal-input kind.
func IsFatalInput(err error) bool {
	return errors.Is(err, ErrFatalInput)
}

// IsCollaborator reports whether the error carries the collaborator kind.
func IsCollaborator(err error) bool {
	return errors.Is(err, ErrCollaborator)
}

// IsValidation reports whether the error carries the validation kind.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
