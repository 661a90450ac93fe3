package job

import "context"

// Store persists whole job records keyed by job id. Put replaces the full
// record atomically (last writer wins); Get returns ErrNotFound for unknown ids.
// Implementations must hand out copies, never shared pointers.
type Store interface {
	Put(ctx context.Context, j *Job) error
	Get(ctx context.Context, id string) (*Job, error)
}
