package queue

import (
	"context"
	"errors"
)

// ErrStoreClosed is returned by store operations after Close.
var ErrStoreClosed = errors.New("job store closed")

// Store is the backing buffer feeding pending jobs to the worker pool. The
// in-memory implementation serves tests and single-process deployments; the
// Redis implementation survives restarts.
type Store interface {
	// Push appends a job to the pending buffer.
	Push(ctx context.Context, job Job) error
	// Pop blocks until a job is available, the context is cancelled, or the
	// store is closed.
	Pop(ctx context.Context) (Job, error)
	// Close releases the store. Pending jobs in a durable store remain for
	// the next process; in-memory jobs are lost.
	Close() error
}
