package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/models"
	"github.com/apexti/apex-go-api/internal/repository"
)

// ErrAlreadyCheckedIn indicates the student already has a record for today.
var ErrAlreadyCheckedIn = errors.New("attendance already recorded for today")

// AttendanceService records and lists daily student check-ins.
type AttendanceService interface {
	CheckIn(ctx context.Context, actor lifecycle.Actor) (dto.AttendanceResponse, error)
	List(ctx context.Context, actor lifecycle.Actor, query dto.AttendanceListQuery) ([]dto.AttendanceResponse, error)
}

type attendanceService struct {
	attendance repository.AttendanceRepository
	validator  *validator.Validate
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAttendanceService constructs an AttendanceService instance.
func NewAttendanceService(attendanceRepo repository.AttendanceRepository, validate *validator.Validate, logger zerolog.Logger) AttendanceService {
	return &attendanceService{
		attendance: attendanceRepo,
		validator:  validate,
		logger:     logger.With().Str("component", "attendance_service").Logger(),
		now:        time.Now,
	}
}

// CheckIn records today's attendance for the acting student. One record per
// calendar day; a second call is a conflict, not an update.
func (s *attendanceService) CheckIn(ctx context.Context, actor lifecycle.Actor) (dto.AttendanceResponse, error) {
	if actor.Role != lifecycle.RoleStudent {
		return dto.AttendanceResponse{}, lifecycle.ErrForbidden
	}

	now := s.now()
	day := now.Format(models.AttendanceDayFormat)

	if _, err := s.attendance.GetByStudentAndDay(ctx, actor.ID, day); err == nil {
		return dto.AttendanceResponse{}, ErrAlreadyCheckedIn
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AttendanceResponse{}, err
	}

	record := models.AttendanceRecord{
		StudentID: actor.ID,
		Day:       day,
		Status:    models.AttendancePresent,
		CheckedAt: now,
	}

	if err := s.attendance.Create(ctx, &record); err != nil {
		// The unique index closes the check-then-create window.
		if _, lookupErr := s.attendance.GetByStudentAndDay(ctx, actor.ID, day); lookupErr == nil {
			return dto.AttendanceResponse{}, ErrAlreadyCheckedIn
		}
		return dto.AttendanceResponse{}, err
	}

	s.logger.Info().Uint("student_id", actor.ID).Str("day", day).Msg("attendance recorded")

	return dto.NewAttendanceResponse(record), nil
}

func (s *attendanceService) List(ctx context.Context, actor lifecycle.Actor, query dto.AttendanceListQuery) ([]dto.AttendanceResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	// Students only ever see their own history.
	if actor.Role != lifecycle.RoleAdmin {
		id := actor.ID
		query.StudentID = &id
	}

	records, err := s.attendance.List(ctx, repository.AttendanceFilter{
		StudentID: query.StudentID,
		FromDay:   query.FromDay,
		ToDay:     query.ToDay,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewAttendanceResponseSlice(records), nil
}
