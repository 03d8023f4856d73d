package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/models"
)

// StatusCounts aggregates submissions per grading status.
type StatusCounts struct {
	Pending    int64
	Processing int64
	Completed  int64
	Failed     int64
}

// Total returns the number of submissions across all statuses.
func (c StatusCounts) Total() int64 {
	return c.Pending + c.Processing + c.Completed + c.Failed
}

// SubmissionRepository defines data operations for submissions. Status and
// attempt writes are single-column updates so concurrent workers never
// clobber each other's fields.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	IncrementAttempts(ctx context.Context, id uint) error
	ResetAttempts(ctx context.Context, id uint) error
	ListByStatus(ctx context.Context, status string) ([]models.Submission, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).Preload("Assignment").First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *submissionRepository) IncrementAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Update("attempts", gorm.Expr("attempts + 1")).Error
}

func (r *submissionRepository) ResetAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Update("attempts", 0).Error
}

func (r *submissionRepository) ListByStatus(ctx context.Context, status string) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("updated_at ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) CountByStatus(ctx context.Context) (StatusCounts, error) {
	type row struct {
		Status string
		Count  int64
	}

	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return StatusCounts{}, err
	}

	counts := StatusCounts{}
	for _, r := range rows {
		switch r.Status {
		case models.SubmissionStatusPending:
			counts.Pending = r.Count
		case models.SubmissionStatusProcessing:
			counts.Processing = r.Count
		case models.SubmissionStatusCompleted:
			counts.Completed = r.Count
		case models.SubmissionStatusFailed:
			counts.Failed = r.Count
		}
	}

	return counts, nil
}
