package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mithorizon7/AIAssignmentProMH-sub001/internal/models"
)

func setupGradingTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Assignment{}, &models.Submission{}, &models.Feedback{}))
	return db
}

func TestSubmissionRepositoryStatusLifecycle(t *testing.T) {
	db := setupGradingTestDB(t)
	repo := NewSubmissionRepository(db)

	assignment := models.Assignment{Title: "Essay"}
	require.NoError(t, db.Create(&assignment).Error)
	submission := models.Submission{AssignmentID: assignment.ID, StudentID: 9, Content: "draft", Status: models.SubmissionStatusPending}
	require.NoError(t, db.Create(&submission).Error)

	require.NoError(t, repo.UpdateStatus(context.Background(), submission.ID, models.SubmissionStatusProcessing))

	loaded, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, models.SubmissionStatusProcessing, loaded.Status)
	require.Equal(t, "Essay", loaded.Assignment.Title, "assignment must be preloaded")

	require.NoError(t, repo.UpdateStatus(context.Background(), submission.ID, models.SubmissionStatusCompleted))
	loaded, err = repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.True(t, loaded.IsTerminal())
}

func TestSubmissionRepositoryGetByIDMissing(t *testing.T) {
	db := setupGradingTestDB(t)
	repo := NewSubmissionRepository(db)

	_, err := repo.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSubmissionRepositoryAttemptCounters(t *testing.T) {
	db := setupGradingTestDB(t)
	repo := NewSubmissionRepository(db)

	submission := models.Submission{AssignmentID: 1, StudentID: 1, Status: models.SubmissionStatusPending}
	require.NoError(t, db.Create(&submission).Error)

	require.NoError(t, repo.IncrementAttempts(context.Background(), submission.ID))
	require.NoError(t, repo.IncrementAttempts(context.Background(), submission.ID))

	loaded, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, 2, loaded.Attempts)

	require.NoError(t, repo.ResetAttempts(context.Background(), submission.ID))
	loaded, err = repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Zero(t, loaded.Attempts)
}

func TestSubmissionRepositoryListByStatus(t *testing.T) {
	db := setupGradingTestDB(t)
	repo := NewSubmissionRepository(db)

	for _, status := range []string{
		models.SubmissionStatusFailed,
		models.SubmissionStatusCompleted,
		models.SubmissionStatusFailed,
		models.SubmissionStatusPending,
	} {
		require.NoError(t, db.Create(&models.Submission{AssignmentID: 1, StudentID: 1, Status: status}).Error)
	}

	failed, err := repo.ListByStatus(context.Background(), models.SubmissionStatusFailed)
	require.NoError(t, err)
	require.Len(t, failed, 2)
	for _, submission := range failed {
		require.Equal(t, models.SubmissionStatusFailed, submission.Status)
	}
}

func TestSubmissionRepositoryCountByStatus(t *testing.T) {
	db := setupGradingTestDB(t)
	repo := NewSubmissionRepository(db)

	statuses := []string{
		models.SubmissionStatusPending,
		models.SubmissionStatusPending,
		models.SubmissionStatusProcessing,
		models.SubmissionStatusCompleted,
		models.SubmissionStatusCompleted,
		models.SubmissionStatusCompleted,
		models.SubmissionStatusFailed,
	}
	for _, status := range statuses {
		require.NoError(t, db.Create(&models.Submission{AssignmentID: 1, StudentID: 1, Status: status}).Error)
	}

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), counts.Pending)
	require.Equal(t, int64(1), counts.Processing)
	require.Equal(t, int64(3), counts.Completed)
	require.Equal(t, int64(1), counts.Failed)
	require.Equal(t, int64(7), counts.Total())
}

func TestFeedbackRepositoryLatestWins(t *testing.T) {
	db := setupGradingTestDB(t)
	repo := NewFeedbackRepository(db)

	older := models.Feedback{SubmissionID: 5, Summary: "first pass", CreatedAt: time.Now().Add(-time.Hour)}
	newer := models.Feedback{SubmissionID: 5, Summary: "second pass", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), &older))
	require.NoError(t, repo.Create(context.Background(), &newer))

	latest, err := repo.GetLatestBySubmission(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, "second pass", latest.Summary)

	_, err = repo.GetLatestBySubmission(context.Background(), 404)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAssignmentRepositoryGetByID(t *testing.T) {
	db := setupGradingTestDB(t)
	repo := NewAssignmentRepository(db)

	assignment := models.Assignment{Title: "Lab report", Description: "Write it up"}
	require.NoError(t, db.Create(&assignment).Error)

	loaded, err := repo.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	require.Equal(t, "Lab report", loaded.Title)

	_, err = repo.GetByID(context.Background(), 404)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
