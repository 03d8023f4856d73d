package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Assignment represents a graded assignment definition.
//
// InstructorContext holds confidential grading guidance supplied by the
// instructor. It is injected into grading prompts but must never appear in
// learner-visible feedback.
type Assignment struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	Title             string         `gorm:"size:255;not null" json:"title"`
	Description       string         `gorm:"type:text" json:"description"`
	InstructorContext string         `gorm:"type:text" json:"-"`
	Rubric            datatypes.JSON `json:"rubric"`
	DueDate           time.Time      `json:"due_date"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	Submissions       []Submission   `json:"-"`
}

// HasRubric reports whether the assignment declares scoring criteria.
func (a Assignment) HasRubric() bool {
	return len(a.Rubric) > 0 && string(a.Rubric) != "null"
}

// ParseRubric deserializes the stored rubric document.
func (a Assignment) ParseRubric() (Rubric, error) {
	var rubric Rubric
	if !a.HasRubric() {
		return rubric, nil
	}
	if err := json.Unmarshal(a.Rubric, &rubric); err != nil {
		return Rubric{}, err
	}
	return rubric, nil
}
