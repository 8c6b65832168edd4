package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStatus indicates a state transition not allowed.
	ErrInvalidStatus = errors.New("invalid status transition")
	// ErrValidation indicates rejected user input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a uniqueness or concurrency clash.
	ErrConflict = errors.New("conflict")
)
