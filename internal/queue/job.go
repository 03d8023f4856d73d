package queue

import "time"

// Job is the queue's runtime representation of one attempt to grade a
// submission. Attempt is 1-based; at most one active job exists per
// submission at any time.
type Job struct {
	SubmissionID uint      `json:"submission_id"`
	Attempt      int       `json:"attempt"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}
