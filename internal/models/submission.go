package models

import "time"

// Submission represents one piece of learner work awaiting AI feedback.
type Submission struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AssignmentID uint       `gorm:"not null;index" json:"assignment_id"`
	StudentID    uint       `gorm:"not null;index" json:"student_id"`
	Content      string     `gorm:"type:text" json:"content"`
	FileURL      string     `gorm:"size:512" json:"file_url"`
	MimeType     string     `gorm:"size:128" json:"mime_type"`
	Status       string     `gorm:"size:32;not null;index" json:"status"`
	Attempts     int        `gorm:"not null;default:0" json:"attempts"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Assignment   Assignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"assignment"`
}

const (
	// SubmissionStatusPending indicates the submission is queued and waiting for a worker.
	SubmissionStatusPending = "pending"
	// SubmissionStatusProcessing indicates a worker is currently grading the submission.
	SubmissionStatusProcessing = "processing"
	// SubmissionStatusCompleted indicates feedback has been persisted for the submission.
	SubmissionStatusCompleted = "completed"
	// SubmissionStatusFailed indicates grading failed after exhausting all retries.
	SubmissionStatusFailed = "failed"
)

// IsTerminal reports whether the submission has reached a final grading state.
func (s Submission) IsTerminal() bool {
	return s.Status == SubmissionStatusCompleted || s.Status == SubmissionStatusFailed
}

// HasInlineContent reports whether the submission carries its content inline
// rather than as a stored file reference.
func (s Submission) HasInlineContent() bool {
	return s.Content != ""
}
