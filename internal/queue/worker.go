package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/models"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/observability"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/service"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/pkg/ai"
)

// worker pulls jobs until popCtx is cancelled. Jobs claimed before
// cancellation run to completion under jobCtx, which outlives popCtx for the
// shutdown grace period.
func (q *Queue) worker(popCtx, jobCtx context.Context, id int) {
	defer q.workerWG.Done()

	logger := q.logger.With().Int("worker", id).Logger()

	for {
		job, err := q.store.Pop(popCtx)
		if err != nil {
			if popCtx.Err() != nil || errors.Is(err, ErrStoreClosed) {
				return
			}
			logger.Error().Err(err).Msg("failed to pop job, backing off")
			select {
			case <-time.After(time.Second):
				continue
			case <-popCtx.Done():
				return
			}
		}

		q.process(jobCtx, job)
	}
}

// process runs one grading attempt. Every exit path records a terminal
// outcome or schedules a retry; a submission is never left in processing.
func (q *Queue) process(ctx context.Context, job Job) {
	observability.QueueJobsInFlight().Inc()
	start := time.Now()

	defer func() {
		observability.QueueJobsInFlight().Dec()
		observability.GradingDuration().Observe(time.Since(start).Seconds())

		if r := recover(); r != nil {
			q.logger.Error().
				Uint("submission_id", job.SubmissionID).
				Interface("panic", r).
				Msg("grading panicked")
			q.handleFailure(ctx, job, fmt.Errorf("grading panic: %v", r))
		}
	}()

	if err := q.submissions.UpdateStatus(ctx, job.SubmissionID, models.SubmissionStatusProcessing); err != nil {
		q.handleFailure(ctx, job, fmt.Errorf("mark processing: %w", err))
		return
	}

	if err := q.submissions.IncrementAttempts(ctx, job.SubmissionID); err != nil {
		q.logger.Warn().Err(err).Uint("submission_id", job.SubmissionID).Msg("failed to record attempt count")
	}

	submission, err := q.submissions.GetByID(ctx, job.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = service.ErrSubmissionNotFound
		}
		q.handleFailure(ctx, job, err)
		return
	}
	submission.Attempts = job.Attempt

	feedback, err := q.grader.Grade(ctx, submission)
	if err != nil {
		q.handleFailure(ctx, job, err)
		return
	}

	// Feedback must exist before the submission may read completed.
	if err := q.feedback.Create(ctx, &feedback); err != nil {
		q.handleFailure(ctx, job, fmt.Errorf("persist feedback: %w", err))
		return
	}

	if err := q.submissions.UpdateStatus(ctx, job.SubmissionID, models.SubmissionStatusCompleted); err != nil {
		q.logger.Error().Err(err).Uint("submission_id", job.SubmissionID).Msg("failed to mark submission completed")
	}

	q.release(job.SubmissionID)
	observability.QueueJobsCompleted().Inc()
	q.publishResult(job.SubmissionID, models.SubmissionStatusCompleted, feedback.Score)

	q.logger.Info().
		Uint("submission_id", job.SubmissionID).
		Int("attempt", job.Attempt).
		Int64("processing_time_ms", feedback.ProcessingTimeMs).
		Msg("submission graded")
}

// handleFailure routes one failed attempt: retryable failures below the
// attempt bound reschedule with exponential backoff, everything else is
// terminal.
func (q *Queue) handleFailure(ctx context.Context, job Job, cause error) {
	if isRetryable(cause) && job.Attempt < q.cfg.MaxAttempts {
		delay := backoffDelay(q.cfg.BackoffBase, job.Attempt)

		if err := q.submissions.UpdateStatus(ctx, job.SubmissionID, models.SubmissionStatusPending); err != nil {
			q.logger.Error().Err(err).Uint("submission_id", job.SubmissionID).Msg("failed to return submission to pending")
		}

		observability.QueueJobsRetried().Inc()
		q.logger.Warn().Err(cause).
			Uint("submission_id", job.SubmissionID).
			Int("attempt", job.Attempt).
			Dur("backoff", delay).
			Msg("grading attempt failed, retry scheduled")

		q.scheduleRetry(Job{
			SubmissionID: job.SubmissionID,
			Attempt:      job.Attempt + 1,
			EnqueuedAt:   job.EnqueuedAt,
		}, delay)
		return
	}

	if err := q.submissions.UpdateStatus(ctx, job.SubmissionID, models.SubmissionStatusFailed); err != nil {
		q.logger.Error().Err(err).Uint("submission_id", job.SubmissionID).Msg("failed to mark submission failed")
	}

	q.release(job.SubmissionID)
	observability.QueueJobsFailed().Inc()
	q.publishResult(job.SubmissionID, models.SubmissionStatusFailed, nil)

	q.logger.Error().Err(cause).
		Uint("submission_id", job.SubmissionID).
		Int("attempt", job.Attempt).
		Msg("submission failed permanently")
}

// scheduleRetry pushes the next attempt after the backoff delay. The dedup
// entry stays claimed for the whole wait, so a concurrent Enqueue remains a
// no-op. The next attempt is only pushed here, after this attempt's failure
// was recorded, keeping attempts strictly sequential per submission.
func (q *Queue) scheduleRetry(next Job, delay time.Duration) {
	q.timerWG.Add(1)
	time.AfterFunc(delay, func() {
		defer q.timerWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := q.store.Push(ctx, next); err != nil {
			q.logger.Error().Err(err).
				Uint("submission_id", next.SubmissionID).
				Msg("failed to push retry, marking submission failed")
			if updateErr := q.submissions.UpdateStatus(ctx, next.SubmissionID, models.SubmissionStatusFailed); updateErr != nil {
				q.logger.Error().Err(updateErr).Uint("submission_id", next.SubmissionID).Msg("failed to mark submission failed")
			}
			q.release(next.SubmissionID)
			observability.QueueJobsFailed().Inc()
		}
	})
}

// backoffDelay returns the exponential backoff after a failed 1-based
// attempt: base, 2*base, 4*base, ... capped.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// isRetryable classifies a failure per the error taxonomy: missing records
// and unparseable output are permanent, provider errors carry their own
// flag, and everything else (persistence, infrastructure) is presumed
// transient.
func isRetryable(err error) bool {
	if errors.Is(err, service.ErrSubmissionNotFound) || errors.Is(err, service.ErrAssignmentNotFound) {
		return false
	}

	var parseErr *service.ParseError
	if errors.As(err, &parseErr) {
		return false
	}

	var providerErr *ai.ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}

	return true
}

type resultEvent struct {
	SubmissionID uint      `json:"submission_id"`
	Status       string    `json:"status"`
	Score        *float64  `json:"score,omitempty"`
	Node         string    `json:"node"`
	At           time.Time `json:"at"`
}

// publishResult emits a terminal grading event for downstream consumers.
func (q *Queue) publishResult(submissionID uint, status string, score *float64) {
	if q.events == nil {
		return
	}

	payload, err := json.Marshal(resultEvent{
		SubmissionID: submissionID,
		Status:       status,
		Score:        score,
		Node:         q.nodeID,
		At:           time.Now().UTC(),
	})
	if err != nil {
		return
	}

	if err := q.events.Publish(q.cfg.EventSubject, payload); err != nil {
		q.logger.Warn().Err(err).Uint("submission_id", submissionID).Msg("failed to publish grading event")
	}
}
