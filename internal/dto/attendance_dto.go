package dto

import (
	"time"

	"github.com/apexti/apex-go-api/internal/models"
)

// AttendanceListQuery filters attendance listings by student and day range.
type AttendanceListQuery struct {
	StudentID *uint  `query:"student_id"`
	FromDay   string `query:"from" validate:"omitempty,datetime=2006-01-02"`
	ToDay     string `query:"to" validate:"omitempty,datetime=2006-01-02"`
}

// AttendanceResponse serializes a check-in record.
type AttendanceResponse struct {
	ID        uint      `json:"id"`
	StudentID uint      `json:"student_id"`
	Day       string    `json:"day"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checked_at"`
	Student   UserLite  `json:"student"`
}

// NewAttendanceResponse converts an AttendanceRecord into a DTO.
func NewAttendanceResponse(model models.AttendanceRecord) AttendanceResponse {
	response := AttendanceResponse{
		ID:        model.ID,
		StudentID: model.StudentID,
		Day:       model.Day,
		Status:    model.Status,
		CheckedAt: model.CheckedAt,
	}

	if model.Student.ID != 0 {
		response.Student = UserLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	return response
}

// NewAttendanceResponseSlice converts attendance models into DTOs.
func NewAttendanceResponseSlice(records []models.AttendanceRecord) []AttendanceResponse {
	responses := make([]AttendanceResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, NewAttendanceResponse(record))
	}

	return responses
}
