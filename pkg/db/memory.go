package db

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/yumyai/cgcompare/pkg/job"
)

// MemoryStore is the ephemeral job status store: encoded records in a bounded
// LRU whose entries expire after ttl. Nothing survives a restart.
type MemoryStore struct {
	cache *expirable.LRU[string, []byte]
}

// NewMemoryStore keeps at most size records, each for at most ttl.
// A zero ttl disables expiry.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = 10000
	}
	return &MemoryStore{cache: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

func (s *MemoryStore) Put(ctx context.Context, j *job.Job) error {
	data, err := job.Encode(j)
	if err != nil {
		return &job.StoreError{Op: "put", JobID: j.ID, Err: err}
	}
	s.cache.Add(j.ID, data)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*job.Job, error) {
	data, ok := s.cache.Get(id)
	if !ok {
		return nil, job.ErrNotFound
	}
	j, err := job.Decode(data)
	if err != nil {
		return nil, &job.StoreError{Op: "get", JobID: id, Err: err}
	}
	return j, nil
}

// Len is the number of live records.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
