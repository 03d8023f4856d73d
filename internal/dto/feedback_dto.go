package dto

import (
	"encoding/json"
	"time"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/models"
)

// FeedbackResponse is returned to API clients reading grading results. The
// raw provider response stays server-side.
type FeedbackResponse struct {
	ID               uint                    `json:"id"`
	SubmissionID     uint                    `json:"submission_id"`
	Strengths        []string                `json:"strengths"`
	Improvements     []string                `json:"improvements"`
	Suggestions      []string                `json:"suggestions"`
	Summary          string                  `json:"summary"`
	Score            *float64                `json:"score"`
	CriteriaScores   []models.CriterionScore `json:"criteria_scores"`
	ModelName        string                  `json:"model_name"`
	TokenCount       int                     `json:"token_count"`
	ProcessingTimeMs int64                   `json:"processing_time_ms"`
	CreatedAt        time.Time               `json:"created_at"`
}

// NewFeedbackResponse maps a feedback row to its API representation.
func NewFeedbackResponse(feedback models.Feedback) FeedbackResponse {
	response := FeedbackResponse{
		ID:               feedback.ID,
		SubmissionID:     feedback.SubmissionID,
		Strengths:        decodeStrings(feedback.Strengths),
		Improvements:     decodeStrings(feedback.Improvements),
		Suggestions:      decodeStrings(feedback.Suggestions),
		Summary:          feedback.Summary,
		Score:            feedback.Score,
		CriteriaScores:   []models.CriterionScore{},
		ModelName:        feedback.ModelName,
		TokenCount:       feedback.TokenCount,
		ProcessingTimeMs: feedback.ProcessingTimeMs,
		CreatedAt:        feedback.CreatedAt,
	}

	if len(feedback.CriteriaScores) > 0 {
		var scores []models.CriterionScore
		if err := json.Unmarshal(feedback.CriteriaScores, &scores); err == nil && scores != nil {
			response.CriteriaScores = scores
		}
	}

	return response
}

func decodeStrings(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return []string{}
	}
	return items
}
