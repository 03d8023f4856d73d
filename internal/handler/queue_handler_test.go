package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/dto"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/handler"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/models"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/queue"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/repository"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/service"
)

type stubSubmissions struct {
	mu      sync.Mutex
	records map[uint]models.Submission
}

func (s *stubSubmissions) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission, ok := s.records[id]
	if !ok {
		return models.Submission{}, gorm.ErrRecordNotFound
	}
	return submission, nil
}

func (s *stubSubmissions) UpdateStatus(ctx context.Context, id uint, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	submission := s.records[id]
	submission.Status = status
	s.records[id] = submission
	return nil
}

func (s *stubSubmissions) IncrementAttempts(ctx context.Context, id uint) error { return nil }
func (s *stubSubmissions) ResetAttempts(ctx context.Context, id uint) error     { return nil }

func (s *stubSubmissions) ListByStatus(ctx context.Context, status string) ([]models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []models.Submission
	for _, submission := range s.records {
		if submission.Status == status {
			matched = append(matched, submission)
		}
	}
	return matched, nil
}

func (s *stubSubmissions) CountByStatus(ctx context.Context) (repository.StatusCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := repository.StatusCounts{}
	for _, submission := range s.records {
		switch submission.Status {
		case models.SubmissionStatusPending:
			counts.Pending++
		case models.SubmissionStatusProcessing:
			counts.Processing++
		case models.SubmissionStatusCompleted:
			counts.Completed++
		case models.SubmissionStatusFailed:
			counts.Failed++
		}
	}
	return counts, nil
}

type stubFeedbackRepo struct{}

func (stubFeedbackRepo) Create(ctx context.Context, feedback *models.Feedback) error { return nil }
func (stubFeedbackRepo) GetLatestBySubmission(ctx context.Context, submissionID uint) (models.Feedback, error) {
	return models.Feedback{}, gorm.ErrRecordNotFound
}

type stubGrader struct{}

func (stubGrader) Grade(ctx context.Context, submission models.Submission) (models.Feedback, error) {
	return models.Feedback{SubmissionID: submission.ID}, nil
}

type stubFeedbackService struct {
	response dto.FeedbackResponse
	err      error
}

func (s stubFeedbackService) GetForSubmission(ctx context.Context, submissionID uint) (dto.FeedbackResponse, error) {
	if s.err != nil {
		return dto.FeedbackResponse{}, s.err
	}
	return s.response, nil
}

type apiEnvelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, resp *http.Response) apiEnvelope {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var envelope apiEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope))
	return envelope
}

func setupQueueApp(t *testing.T, submissions *stubSubmissions) (*fiber.App, *queue.Queue) {
	t.Helper()

	q := queue.New(queue.NewMemoryStore(0), submissions, stubFeedbackRepo{}, stubGrader{}, nil,
		queue.Config{Workers: 1, BackoffBase: time.Millisecond}, zerolog.Nop())
	q.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = q.Shutdown(ctx)
	})

	h := handler.NewQueueHandler(q, zerolog.Nop())

	app := fiber.New()
	h.RegisterIntake(app.Group("/api/v1/submissions"))
	h.RegisterOperator(app.Group("/api/v1/queue"))
	return app, q
}

func TestQueueHandlerEnqueueAccepted(t *testing.T) {
	submissions := &stubSubmissions{records: map[uint]models.Submission{
		1: {ID: 1, AssignmentID: 2, Content: "work"},
	}}
	app, _ := setupQueueApp(t, submissions)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/submissions/1/enqueue", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.True(t, envelope.Success)

	var payload dto.EnqueueResponse
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	require.Equal(t, uint(1), payload.SubmissionID)
	require.Equal(t, models.SubmissionStatusPending, payload.Status)
}

func TestQueueHandlerEnqueueUnknownSubmission(t *testing.T) {
	submissions := &stubSubmissions{records: map[uint]models.Submission{}}
	app, _ := setupQueueApp(t, submissions)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/submissions/42/enqueue", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.False(t, decodeEnvelope(t, resp).Success)
}

func TestQueueHandlerEnqueueInvalidID(t *testing.T) {
	submissions := &stubSubmissions{records: map[uint]models.Submission{}}
	app, _ := setupQueueApp(t, submissions)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/submissions/abc/enqueue", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestQueueHandlerEnqueueAfterShutdown(t *testing.T) {
	submissions := &stubSubmissions{records: map[uint]models.Submission{
		1: {ID: 1, AssignmentID: 2, Content: "work"},
	}}
	app, q := setupQueueApp(t, submissions)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Shutdown(ctx))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/submissions/1/enqueue", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestQueueHandlerStats(t *testing.T) {
	submissions := &stubSubmissions{records: map[uint]models.Submission{
		1: {ID: 1, Status: models.SubmissionStatusCompleted},
		2: {ID: 2, Status: models.SubmissionStatusFailed},
		3: {ID: 3, Status: models.SubmissionStatusPending},
	}}
	app, _ := setupQueueApp(t, submissions)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/queue/stats", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var stats queue.Stats
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &stats))
	require.Equal(t, int64(1), stats.Completed)
	require.Equal(t, int64(1), stats.Failed)
	require.Equal(t, int64(1), stats.Waiting)
	require.Equal(t, int64(3), stats.Total)
}

func TestQueueHandlerRetryFailed(t *testing.T) {
	submissions := &stubSubmissions{records: map[uint]models.Submission{
		1: {ID: 1, AssignmentID: 2, Status: models.SubmissionStatusFailed},
		2: {ID: 2, AssignmentID: 2, Status: models.SubmissionStatusFailed},
	}}
	app, _ := setupQueueApp(t, submissions)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/queue/retry-failed", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload dto.RetryFailedResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &payload))
	require.Equal(t, 2, payload.Retried)
}

func TestFeedbackHandlerGet(t *testing.T) {
	score := 91.0
	svc := stubFeedbackService{response: dto.FeedbackResponse{
		SubmissionID: 7,
		Strengths:    []string{"clear"},
		Score:        &score,
	}}
	h := handler.NewFeedbackHandler(svc, zerolog.Nop())

	app := fiber.New()
	h.Register(app.Group("/api/v1/submissions"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/7/feedback", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload dto.FeedbackResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, resp).Data, &payload))
	require.Equal(t, uint(7), payload.SubmissionID)
	require.Equal(t, []string{"clear"}, payload.Strengths)
	require.NotNil(t, payload.Score)
	require.Equal(t, 91.0, *payload.Score)
}

func TestFeedbackHandlerNotFound(t *testing.T) {
	h := handler.NewFeedbackHandler(stubFeedbackService{err: service.ErrFeedbackNotFound}, zerolog.Nop())

	app := fiber.New()
	h.Register(app.Group("/api/v1/submissions"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/submissions/7/feedback", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
