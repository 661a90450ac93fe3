package job

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores and status queries for unknown job ids.
	ErrNotFound = errors.New("job not found")

	ErrInvalidTransition = errors.New("invalid job status transition")
)

// ValidationError is a bad or missing request parameter. It rejects the request.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// UnknownDatasetError names a species that is not loaded.
type UnknownDatasetError struct {
	Species string
}

func (e *UnknownDatasetError) Error() string {
	return fmt.Sprintf("no dataset loaded for species '%s'", e.Species)
}

// StoreError means the job store itself is unavailable. Unlike the other
// errors it is an operational fault, not a job outcome.
type StoreError struct {
	Op    string
	JobID string
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("job store %s %s: %v", e.Op, e.JobID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
