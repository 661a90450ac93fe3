package model

import (
	"fmt"
	"strings"
)

// UnknownSequenceError names a sequence id that is not a row of the distance matrix.
type UnknownSequenceError struct {
	ID string
}

func (e *UnknownSequenceError) Error() string {
	return fmt.Sprintf("sequence '%s' is not in the distance matrix", e.ID)
}

// ProfileNotFoundError lists requested ids without an allele profile row.
type ProfileNotFoundError struct {
	IDs []string
}

func (e *ProfileNotFoundError) Error() string {
	return fmt.Sprintf("no allele profile for: %s", strings.Join(e.IDs, ", "))
}

// ExternalToolError carries what the tree builder wrote to stderr, verbatim.
type ExternalToolError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExternalToolError) Error() string {
	if strings.TrimSpace(e.Stderr) != "" {
		return e.Stderr
	}
	return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
}
