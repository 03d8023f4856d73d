package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/models"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/observability"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/repository"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/service"
)

// ErrQueueClosed is returned by Enqueue once shutdown has begun.
var ErrQueueClosed = errors.New("queue is shutting down")

const (
	defaultWorkers      = 5
	defaultMaxAttempts  = 3
	defaultBackoffBase  = 5 * time.Second
	defaultEventSubject = "grading.completed"
	maxBackoff          = 5 * time.Minute
)

// Config tunes the queue and its worker pool.
type Config struct {
	Workers      int
	MaxAttempts  int
	BackoffBase  time.Duration
	EventSubject string
}

// Stats summarizes submissions per grading status for operators.
type Stats struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Total     int64 `json:"total"`
}

// Queue accepts submission ids, deduplicates active jobs, and feeds a
// bounded worker pool that grades submissions with retry and backoff. One
// Queue value is constructed at process start and shared by reference; the
// dedup map and worker accounting are its only mutable shared state.
type Queue struct {
	store       Store
	submissions repository.SubmissionRepository
	feedback    repository.FeedbackRepository
	grader      service.GradingService
	events      *nats.Conn
	cfg         Config
	logger      zerolog.Logger
	nodeID      string

	mu     sync.Mutex
	active map[uint]struct{}

	workerWG sync.WaitGroup
	timerWG  sync.WaitGroup

	stateMu   sync.Mutex
	accepting bool
	popCancel context.CancelFunc
	jobCancel context.CancelFunc
}

// New constructs a queue. The NATS connection is optional; a nil connection
// disables result events.
func New(store Store, submissions repository.SubmissionRepository, feedback repository.FeedbackRepository, grader service.GradingService, events *nats.Conn, cfg Config, logger zerolog.Logger) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.EventSubject == "" {
		cfg.EventSubject = defaultEventSubject
	}

	return &Queue{
		store:       store,
		submissions: submissions,
		feedback:    feedback,
		grader:      grader,
		events:      events,
		cfg:         cfg,
		logger:      logger.With().Str("component", "job_queue").Logger(),
		nodeID:      uuid.NewString(),
		active:      make(map[uint]struct{}),
	}
}

// Start launches the worker pool. It returns immediately; workers run until
// Shutdown.
func (q *Queue) Start(ctx context.Context) {
	q.stateMu.Lock()
	defer q.stateMu.Unlock()

	if q.accepting {
		return
	}

	popCtx, popCancel := context.WithCancel(ctx)
	jobCtx, jobCancel := context.WithCancel(context.WithoutCancel(ctx))
	q.popCancel = popCancel
	q.jobCancel = jobCancel
	q.accepting = true

	for i := 0; i < q.cfg.Workers; i++ {
		q.workerWG.Add(1)
		go q.worker(popCtx, jobCtx, i)
	}

	q.logger.Info().Int("workers", q.cfg.Workers).Msg("worker pool started")
}

// Enqueue registers a submission for grading. It is idempotent: a submission
// with an active job is left untouched. The caller must have persisted the
// submission beforehand.
func (q *Queue) Enqueue(ctx context.Context, submissionID uint) error {
	q.stateMu.Lock()
	accepting := q.accepting
	q.stateMu.Unlock()
	if !accepting {
		return ErrQueueClosed
	}

	if !q.claim(submissionID) {
		return nil
	}

	if _, err := q.submissions.GetByID(ctx, submissionID); err != nil {
		q.release(submissionID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return service.ErrSubmissionNotFound
		}
		return fmt.Errorf("load submission: %w", err)
	}

	if err := q.submissions.UpdateStatus(ctx, submissionID, models.SubmissionStatusPending); err != nil {
		q.release(submissionID)
		return fmt.Errorf("mark pending: %w", err)
	}

	if err := q.store.Push(ctx, Job{SubmissionID: submissionID, Attempt: 1, EnqueuedAt: time.Now().UTC()}); err != nil {
		q.release(submissionID)
		return fmt.Errorf("push job: %w", err)
	}

	observability.QueueJobsEnqueued().Inc()
	q.logger.Info().Uint("submission_id", submissionID).Msg("submission enqueued")

	return nil
}

// RetryFailed re-enqueues every submission currently in failed status and
// returns the number re-enqueued. Each retried submission restarts with a
// fresh attempt count.
func (q *Queue) RetryFailed(ctx context.Context) (int, error) {
	failed, err := q.submissions.ListByStatus(ctx, models.SubmissionStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("list failed submissions: %w", err)
	}

	count := 0
	for _, submission := range failed {
		if err := q.submissions.ResetAttempts(ctx, submission.ID); err != nil {
			q.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to reset attempts")
			continue
		}
		if err := q.Enqueue(ctx, submission.ID); err != nil {
			q.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to re-enqueue submission")
			continue
		}
		count++
	}

	return count, nil
}

// Stats returns per-status submission counts. Reads persisted counts, so
// the numbers survive restarts.
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	counts, err := q.submissions.CountByStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count submissions: %w", err)
	}

	return Stats{
		Waiting:   counts.Pending,
		Active:    counts.Processing,
		Completed: counts.Completed,
		Failed:    counts.Failed,
		Total:     counts.Total(),
	}, nil
}

// Shutdown drains the queue: stop accepting, stop claiming new jobs, let
// in-flight jobs finish until ctx expires, then cancel whatever remains.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.stateMu.Lock()
	if !q.accepting {
		q.stateMu.Unlock()
		return nil
	}
	q.accepting = false
	popCancel := q.popCancel
	jobCancel := q.jobCancel
	q.stateMu.Unlock()

	popCancel()

	done := make(chan struct{})
	go func() {
		q.workerWG.Wait()
		q.timerWG.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	jobCancel()
	if closeErr := q.store.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	q.logger.Info().Msg("queue drained")
	return err
}

// claim records the submission as having an active job. It returns false if
// a job is already active for the id.
func (q *Queue) claim(submissionID uint) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.active[submissionID]; exists {
		return false
	}
	q.active[submissionID] = struct{}{}
	return true
}

func (q *Queue) release(submissionID uint) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.active, submissionID)
}
