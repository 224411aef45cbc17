package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/models"
)

// ProjectSubmissionRepository defines data operations for the per-student
// project slot. Status mutations share the conditional-update discipline of
// the task submission repository.
type ProjectSubmissionRepository interface {
	List(ctx context.Context, status *string) ([]models.ProjectSubmission, error)
	GetByID(ctx context.Context, id uint) (models.ProjectSubmission, error)
	GetByStudent(ctx context.Context, studentID uint) (models.ProjectSubmission, error)
	Create(ctx context.Context, submission *models.ProjectSubmission) error
	UpdateWhereStatus(ctx context.Context, id uint, expected lifecycle.Status, patch map[string]interface{}) (int64, error)
}

type projectSubmissionRepository struct {
	db *gorm.DB
}

// NewProjectSubmissionRepository instantiates the repository.
func NewProjectSubmissionRepository(db *gorm.DB) ProjectSubmissionRepository {
	return &projectSubmissionRepository{db: db}
}

func (r *projectSubmissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.ProjectSubmission{}).Preload("Student")
}

func (r *projectSubmissionRepository) List(ctx context.Context, status *string) ([]models.ProjectSubmission, error) {
	query := r.baseQuery(ctx)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var submissions []models.ProjectSubmission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *projectSubmissionRepository) GetByID(ctx context.Context, id uint) (models.ProjectSubmission, error) {
	var submission models.ProjectSubmission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.ProjectSubmission{}, err
	}

	return submission, nil
}

func (r *projectSubmissionRepository) GetByStudent(ctx context.Context, studentID uint) (models.ProjectSubmission, error) {
	var submission models.ProjectSubmission
	if err := r.baseQuery(ctx).Where("student_id = ?", studentID).First(&submission).Error; err != nil {
		return models.ProjectSubmission{}, err
	}

	return submission, nil
}

func (r *projectSubmissionRepository) Create(ctx context.Context, submission *models.ProjectSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *projectSubmissionRepository) UpdateWhereStatus(ctx context.Context, id uint, expected lifecycle.Status, patch map[string]interface{}) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProjectSubmission{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(patch)

	return result.RowsAffected, result.Error
}
