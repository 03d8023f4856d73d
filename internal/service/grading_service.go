package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/models"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/repository"
	"github.com/mithorizon7/AIAssignmentProMH-sub001/pkg/ai"
)

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrAssignmentNotFound indicates the submission references a missing assignment.
var ErrAssignmentNotFound = errors.New("assignment not found")

// GradingService turns one submission into persisted-ready feedback by
// orchestrating the provider adapter and the response parser.
type GradingService interface {
	Grade(ctx context.Context, submission models.Submission) (models.Feedback, error)
}

type gradingService struct {
	assignments repository.AssignmentRepository
	provider    ai.Provider
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewGradingService constructs a grading service around the given provider.
func NewGradingService(assignments repository.AssignmentRepository, provider ai.Provider, logger zerolog.Logger) GradingService {
	return &gradingService{
		assignments: assignments,
		provider:    provider,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "grading_service").Logger(),
		tracer:      otel.Tracer("github.com/mithorizon7/AIAssignmentProMH-sub001/internal/service/grading"),
	}
}

func (s *gradingService) Grade(parent context.Context, submission models.Submission) (models.Feedback, error) {
	ctx, span := s.tracer.Start(parent, "grading.grade", trace.WithAttributes(
		attribute.Int("submission.id", int(submission.ID)),
		attribute.Int("submission.attempt", submission.Attempts),
	))
	defer span.End()

	start := time.Now()

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Feedback{}, ErrAssignmentNotFound
		}
		return models.Feedback{}, fmt.Errorf("load assignment: %w", err)
	}

	rubric, err := assignment.ParseRubric()
	if err != nil {
		// Degraded grading beats no grading: a broken rubric document must
		// not abort the submission.
		s.logger.Warn().Err(err).
			Uint("assignment_id", assignment.ID).
			Msg("rubric failed to deserialize, grading without criteria")
		rubric = models.Rubric{}
	}

	parts := s.buildPromptParts(submission, assignment, rubric)

	completion, err := s.provider.Complete(ctx, parts, gradingSystemPrompt())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.Feedback{}, err
	}

	payload, err := parseFeedback(completion.Text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return models.Feedback{}, err
	}

	criteria := s.alignCriteria(submission.ID, rubric, payload.CriteriaScores)

	feedback := models.Feedback{
		SubmissionID:     submission.ID,
		Strengths:        s.sanitizeList(payload.Strengths),
		Improvements:     s.sanitizeList(payload.Improvements),
		Suggestions:      s.sanitizeList(payload.Suggestions),
		Summary:          s.sanitizer.Sanitize(payload.Summary),
		Score:            payload.Score,
		CriteriaScores:   toJSON(criteria),
		ModelName:        completion.ModelName,
		TokenCount:       tokenCount(completion),
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		RawResponse:      completion.Text,
	}

	return feedback, nil
}

// buildPromptParts assembles the ordered prompt: assignment context first,
// then the submission content, routed as text or media by MIME type.
func (s *gradingService) buildPromptParts(submission models.Submission, assignment models.Assignment, rubric models.Rubric) []ai.PromptPart {
	parts := []ai.PromptPart{ai.TextPart(buildGradingPrompt(assignment, rubric))}

	mimeType := submission.MimeType
	if mimeType == "" && submission.HasInlineContent() {
		mimeType = mimetype.Detect([]byte(submission.Content)).String()
	}

	kind := segmentKindForMime(mimeType)

	switch {
	case kind == ai.SegmentText && submission.HasInlineContent():
		parts = append(parts, ai.TextPart("# Learner submission\n"+submission.Content))
	case kind == ai.SegmentText:
		parts = append(parts, ai.PromptPart{Kind: ai.SegmentDocument, URL: submission.FileURL, MimeType: mimeType})
	case submission.FileURL != "":
		parts = append(parts, ai.PromptPart{Kind: kind, URL: submission.FileURL, MimeType: mimeType})
	default:
		parts = append(parts, ai.PromptPart{Kind: kind, Data: []byte(submission.Content), MimeType: mimeType})
	}

	return parts
}

func segmentKindForMime(mimeType string) ai.SegmentKind {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case normalized == "" || strings.HasPrefix(normalized, "text/") || strings.HasPrefix(normalized, "application/json"):
		return ai.SegmentText
	case strings.HasPrefix(normalized, "image/"):
		return ai.SegmentImage
	case strings.HasPrefix(normalized, "audio/"):
		return ai.SegmentAudio
	case strings.HasPrefix(normalized, "video/"):
		return ai.SegmentVideo
	default:
		return ai.SegmentDocument
	}
}

// alignCriteria matches parsed criterion scores to the rubric, one entry per
// criterion in rubric order. Missing entries are a quality defect worth a
// warning, not an error.
func (s *gradingService) alignCriteria(submissionID uint, rubric models.Rubric, parsed []criterionPayload) []models.CriterionScore {
	aligned := make([]models.CriterionScore, 0, len(rubric.Criteria))
	if rubric.IsEmpty() {
		return aligned
	}

	byID := make(map[string]criterionPayload, len(parsed))
	for _, entry := range parsed {
		if entry.CriteriaID != "" {
			byID[entry.CriteriaID] = entry
		}
	}

	for i, criterion := range rubric.Criteria {
		if entry, ok := byID[criterion.ID]; ok {
			aligned = append(aligned, models.CriterionScore{
				CriteriaID: criterion.ID,
				Score:      entry.Score,
				Feedback:   s.sanitizer.Sanitize(entry.Feedback),
			})
			continue
		}

		// Positional fallback for responses that dropped the ids but kept
		// the ordering.
		if len(byID) == 0 && i < len(parsed) {
			aligned = append(aligned, models.CriterionScore{
				CriteriaID: criterion.ID,
				Score:      parsed[i].Score,
				Feedback:   s.sanitizer.Sanitize(parsed[i].Feedback),
			})
		}
	}

	if len(aligned) != len(rubric.Criteria) {
		s.logger.Warn().
			Uint("submission_id", submissionID).
			Int("expected", len(rubric.Criteria)).
			Int("received", len(aligned)).
			Msg("response missing criterion scores for some rubric criteria")
	}

	return aligned
}

func (s *gradingService) sanitizeList(items []string) datatypes.JSON {
	sanitized := make([]string, 0, len(items))
	for _, item := range items {
		sanitized = append(sanitized, s.sanitizer.Sanitize(item))
	}
	return toJSON(sanitized)
}

// tokenCount prefers provider usage metadata, falling back to the usual
// four-bytes-per-token estimate.
func tokenCount(completion ai.RawCompletion) int {
	if completion.Usage != nil && completion.Usage.TotalTokens > 0 {
		return completion.Usage.TotalTokens
	}
	return len(completion.Text) / 4
}

func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}
