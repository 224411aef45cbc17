package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/apexti/apex-go-api/internal/models"
)

// AttendanceFilter narrows attendance queries by student and day range.
type AttendanceFilter struct {
	StudentID *uint
	FromDay   string
	ToDay     string
}

// AttendanceRepository persists daily check-in records.
type AttendanceRepository interface {
	Create(ctx context.Context, record *models.AttendanceRecord) error
	GetByStudentAndDay(ctx context.Context, studentID uint, day string) (models.AttendanceRecord, error)
	List(ctx context.Context, filter AttendanceFilter) ([]models.AttendanceRecord, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository instantiates the repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

func (r *attendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attendanceRepository) GetByStudentAndDay(ctx context.Context, studentID uint, day string) (models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	if err := r.db.WithContext(ctx).
		Where("student_id = ? AND day = ?", studentID, day).
		First(&record).Error; err != nil {
		return models.AttendanceRecord{}, err
	}
	return record, nil
}

func (r *attendanceRepository) List(ctx context.Context, filter AttendanceFilter) ([]models.AttendanceRecord, error) {
	query := r.db.WithContext(ctx).Model(&models.AttendanceRecord{}).Preload("Student")

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.FromDay != "" {
		query = query.Where("day >= ?", filter.FromDay)
	}
	if filter.ToDay != "" {
		query = query.Where("day <= ?", filter.ToDay)
	}

	var records []models.AttendanceRecord
	if err := query.Order("day DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
