package models

// Rubric is a named set of scoring criteria attached to an assignment.
type Rubric struct {
	Title    string            `json:"title,omitempty"`
	Criteria []RubricCriterion `json:"criteria"`
}

// RubricCriterion describes one scorable dimension of a rubric.
type RubricCriterion struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	MaxScore    float64  `json:"max_score"`
	Weight      *float64 `json:"weight,omitempty"`
}

// IsEmpty reports whether the rubric declares no criteria.
func (r Rubric) IsEmpty() bool {
	return len(r.Criteria) == 0
}
