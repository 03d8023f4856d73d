package queue

import (
	"context"
	"sync"
)

const defaultMemoryStoreCapacity = 1024

// MemoryStore is a channel-backed Store for tests and single-process
// deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	jobs   chan Job
	closed bool
}

// NewMemoryStore builds an in-memory store with the given capacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = defaultMemoryStoreCapacity
	}
	return &MemoryStore{jobs: make(chan Job, capacity)}
}

// Push appends a job, failing when the buffer is full rather than blocking
// the caller indefinitely.
func (s *MemoryStore) Push(ctx context.Context, job Job) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrStoreClosed
	}

	select {
	case s.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pop blocks until a job arrives or the context ends.
func (s *MemoryStore) Pop(ctx context.Context) (Job, error) {
	select {
	case job, ok := <-s.jobs:
		if !ok {
			return Job{}, ErrStoreClosed
		}
		return job, nil
	case <-ctx.Done():
		return Job{}, ctx.Err()
	}
}

// Close marks the store closed and wakes blocked consumers.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	return nil
}
