package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/models"
)

func setupTestDB(t *testing.T, entities ...interface{}) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(entities...))
	return db
}

func seedTaskAndStudent(t *testing.T, db *gorm.DB) (models.Task, models.User) {
	t.Helper()

	student := models.User{Name: "Student One", Email: "s1@apexti.dev", Role: models.UserRoleStudent}
	require.NoError(t, db.Create(&student).Error)

	task := models.Task{
		Title:     "HTML Basics",
		DueDate:   time.Now().Add(48 * time.Hour),
		CreatedBy: 99,
	}
	require.NoError(t, db.Create(&task).Error)

	return task, student
}

func TestTaskSubmissionRepositoryGetActiveByStudentAndTask(t *testing.T) {
	db := setupTestDB(t, &models.User{}, &models.Task{}, &models.TaskSubmission{})
	repo := NewTaskSubmissionRepository(db)
	task, student := seedTaskAndStudent(t, db)

	_, err := repo.GetActiveByStudentAndTask(context.Background(), student.ID, task.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	submission := models.TaskSubmission{
		TaskID:     task.ID,
		StudentID:  student.ID,
		AnswerText: "answer",
		Status:     string(lifecycle.StatusPending),
	}
	require.NoError(t, repo.Create(context.Background(), &submission))

	found, err := repo.GetActiveByStudentAndTask(context.Background(), student.ID, task.ID)
	require.NoError(t, err)
	require.Equal(t, submission.ID, found.ID)
	require.Equal(t, string(lifecycle.StatusPending), found.Status)
	require.Equal(t, student.Email, found.Student.Email)
}

func TestTaskSubmissionRepositoryRejectsSecondRowPerTaskAndStudent(t *testing.T) {
	db := setupTestDB(t, &models.User{}, &models.Task{}, &models.TaskSubmission{})
	repo := NewTaskSubmissionRepository(db)
	task, student := seedTaskAndStudent(t, db)

	first := models.TaskSubmission{
		TaskID:     task.ID,
		StudentID:  student.ID,
		AnswerText: "first",
		Status:     string(lifecycle.StatusPending),
	}
	require.NoError(t, repo.Create(context.Background(), &first))

	second := models.TaskSubmission{
		TaskID:     task.ID,
		StudentID:  student.ID,
		AnswerText: "second",
		Status:     string(lifecycle.StatusPending),
	}
	require.ErrorIs(t, repo.Create(context.Background(), &second), gorm.ErrDuplicatedKey)

	var count int64
	require.NoError(t, db.Model(&models.TaskSubmission{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestTaskSubmissionRepositoryConditionalUpdateGuardsStatus(t *testing.T) {
	db := setupTestDB(t, &models.User{}, &models.Task{}, &models.TaskSubmission{})
	repo := NewTaskSubmissionRepository(db)
	task, student := seedTaskAndStudent(t, db)

	submission := models.TaskSubmission{
		TaskID:     task.ID,
		StudentID:  student.ID,
		AnswerText: "answer",
		Status:     string(lifecycle.StatusPending),
	}
	require.NoError(t, repo.Create(context.Background(), &submission))

	now := time.Now()
	accepted, err := repo.UpdateWhereStatus(context.Background(), submission.ID, lifecycle.StatusPending, map[string]interface{}{
		"status":      string(lifecycle.StatusAccepted),
		"reviewed_at": now,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), accepted)

	// Second transition expecting pending must find zero matching rows.
	rejected, err := repo.UpdateWhereStatus(context.Background(), submission.ID, lifecycle.StatusPending, map[string]interface{}{
		"status":   string(lifecycle.StatusRejected),
		"feedback": "redo",
	})
	require.NoError(t, err)
	require.Equal(t, int64(0), rejected)

	stored, err := repo.GetByID(context.Background(), submission.ID)
	require.NoError(t, err)
	require.Equal(t, string(lifecycle.StatusAccepted), stored.Status)
	require.Empty(t, stored.Feedback)
}

func TestTaskSubmissionRepositoryListFilters(t *testing.T) {
	db := setupTestDB(t, &models.User{}, &models.Task{}, &models.TaskSubmission{})
	repo := NewTaskSubmissionRepository(db)
	task, student := seedTaskAndStudent(t, db)

	other := models.User{Name: "Student Two", Email: "s2@apexti.dev", Role: models.UserRoleStudent}
	require.NoError(t, db.Create(&other).Error)

	pending := models.TaskSubmission{TaskID: task.ID, StudentID: student.ID, AnswerText: "a", Status: string(lifecycle.StatusPending)}
	rejected := models.TaskSubmission{TaskID: task.ID, StudentID: other.ID, AnswerText: "b", Status: string(lifecycle.StatusRejected), Feedback: "redo"}
	require.NoError(t, repo.Create(context.Background(), &pending))
	require.NoError(t, repo.Create(context.Background(), &rejected))

	status := string(lifecycle.StatusRejected)
	results, err := repo.List(context.Background(), TaskSubmissionFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, rejected.ID, results[0].ID)

	results, err = repo.List(context.Background(), TaskSubmissionFilter{StudentID: &student.ID})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, pending.ID, results[0].ID)
}
