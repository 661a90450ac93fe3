package dataset

import (
	"errors"
	"fmt"
)

var (
	ErrNotSquare        = errors.New("distance matrix is not square")
	ErrDuplicateID      = errors.New("duplicate identifier")
	ErrRaggedRow        = errors.New("row has the wrong number of fields")
	ErrEmptyFile        = errors.New("file has no data")
	ErrNegativeDistance = errors.New("negative distance")
	ErrNoDirectory      = errors.New("cgMLST directory does not exist")
)

// LoadError reports a species whose files are missing or malformed.
type LoadError struct {
	Species string
	Path    string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("dataset %s: %s: %v", e.Species, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
