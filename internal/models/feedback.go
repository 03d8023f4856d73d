package models

import (
	"time"

	"gorm.io/datatypes"
)

// Feedback is the immutable output of one successful grading attempt.
// Re-grading a submission inserts a new row rather than mutating an old one.
type Feedback struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	SubmissionID     uint           `gorm:"not null;index" json:"submission_id"`
	Strengths        datatypes.JSON `json:"strengths"`
	Improvements     datatypes.JSON `json:"improvements"`
	Suggestions      datatypes.JSON `json:"suggestions"`
	Summary          string         `gorm:"type:text" json:"summary"`
	Score            *float64       `json:"score"`
	CriteriaScores   datatypes.JSON `json:"criteria_scores"`
	ModelName        string         `gorm:"size:128" json:"model_name"`
	TokenCount       int            `json:"token_count"`
	ProcessingTimeMs int64          `json:"processing_time_ms"`
	RawResponse      string         `gorm:"type:text" json:"-"`
	CreatedAt        time.Time      `json:"created_at"`
}

// CriterionScore is one per-criterion entry within Feedback.CriteriaScores.
type CriterionScore struct {
	CriteriaID string  `json:"criteria_id"`
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback,omitempty"`
}
