package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/models"
)

// TaskSubmissionFilter allows narrowing submission queries.
type TaskSubmissionFilter struct {
	TaskID    *uint
	StudentID *uint
	Status    *string
}

// TaskSubmissionRepository defines data operations for task submissions.
//
// UpdateWhereStatus is the only mutation path for status transitions: it is a
// conditional update guarded on the expected current status, so concurrent
// reviews of the same record cannot both win. A zero rows-affected result
// means the guard failed and the caller lost the race (or the record moved
// on); callers surface that as an invalid transition.
type TaskSubmissionRepository interface {
	List(ctx context.Context, filter TaskSubmissionFilter) ([]models.TaskSubmission, error)
	GetByID(ctx context.Context, id uint) (models.TaskSubmission, error)
	GetActiveByStudentAndTask(ctx context.Context, studentID, taskID uint) (models.TaskSubmission, error)
	Create(ctx context.Context, submission *models.TaskSubmission) error
	UpdateWhereStatus(ctx context.Context, id uint, expected lifecycle.Status, patch map[string]interface{}) (int64, error)
}

type taskSubmissionRepository struct {
	db *gorm.DB
}

// NewTaskSubmissionRepository instantiates the repository.
func NewTaskSubmissionRepository(db *gorm.DB) TaskSubmissionRepository {
	return &taskSubmissionRepository{db: db}
}

func (r *taskSubmissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.TaskSubmission{}).
		Preload("Task").
		Preload("Student")
}

func (r *taskSubmissionRepository) List(ctx context.Context, filter TaskSubmissionFilter) ([]models.TaskSubmission, error) {
	query := r.baseQuery(ctx)

	if filter.TaskID != nil {
		query = query.Where("task_id = ?", *filter.TaskID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var submissions []models.TaskSubmission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *taskSubmissionRepository) GetByID(ctx context.Context, id uint) (models.TaskSubmission, error) {
	var submission models.TaskSubmission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.TaskSubmission{}, err
	}

	return submission, nil
}

func (r *taskSubmissionRepository) GetActiveByStudentAndTask(ctx context.Context, studentID, taskID uint) (models.TaskSubmission, error) {
	var submission models.TaskSubmission
	if err := r.baseQuery(ctx).
		Where("student_id = ?", studentID).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		First(&submission).Error; err != nil {
		return models.TaskSubmission{}, err
	}

	return submission, nil
}

func (r *taskSubmissionRepository) Create(ctx context.Context, submission *models.TaskSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *taskSubmissionRepository) UpdateWhereStatus(ctx context.Context, id uint, expected lifecycle.Status, patch map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TaskSubmission{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(patch)

	return result.RowsAffected, result.Error
}
