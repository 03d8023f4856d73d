package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/dto"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/repository"
)

// ErrFeedbackNotFound indicates no feedback exists yet for a submission.
var ErrFeedbackNotFound = errors.New("feedback not found")

// FeedbackService exposes read access to persisted grading results.
type FeedbackService interface {
	GetForSubmission(ctx context.Context, submissionID uint) (dto.FeedbackResponse, error)
}

type feedbackService struct {
	feedback repository.FeedbackRepository
	logger   zerolog.Logger
}

// NewFeedbackService constructs a feedback read service.
func NewFeedbackService(feedback repository.FeedbackRepository, logger zerolog.Logger) FeedbackService {
	return &feedbackService{
		feedback: feedback,
		logger:   logger.With().Str("component", "feedback_service").Logger(),
	}
}

func (s *feedbackService) GetForSubmission(ctx context.Context, submissionID uint) (dto.FeedbackResponse, error) {
	feedback, err := s.feedback.GetLatestBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.FeedbackResponse{}, ErrFeedbackNotFound
		}
		return dto.FeedbackResponse{}, err
	}

	return dto.NewFeedbackResponse(feedback), nil
}
