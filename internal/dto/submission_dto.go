package dto

import (
	"time"

	"github.com/apexti/apex-go-api/internal/models"
)

// SubmissionContent carries the student-supplied body of an attempt. Either
// answer text or an uploaded artifact must be present; the lifecycle layer
// enforces that.
type SubmissionContent struct {
	AnswerText string `json:"answer_text" form:"answer_text"`
}

// SubmitTaskRequest describes the multipart payload for a task submission.
type SubmitTaskRequest struct {
	TaskID     uint   `form:"task_id" validate:"required,gt=0"`
	AnswerText string `form:"answer_text"`
}

// ReviewRequest is the admin's verdict on a pending submission.
type ReviewRequest struct {
	Verdict  string `json:"verdict" validate:"required,oneof=accept reject"`
	Feedback string `json:"feedback"`
}

// TaskSubmissionFilter describes query string filters for listing submissions.
type TaskSubmissionFilter struct {
	TaskID    *uint   `query:"task_id"`
	StudentID *uint   `query:"student_id"`
	Status    *string `query:"status" validate:"omitempty,oneof=pending accepted rejected"`
}

// TaskSubmissionResponse is returned to API clients when viewing submissions.
type TaskSubmissionResponse struct {
	ID          uint       `json:"id"`
	TaskID      uint       `json:"task_id"`
	StudentID   uint       `json:"student_id"`
	AnswerText  string     `json:"answer_text"`
	ArtifactURL string     `json:"artifact_url"`
	Status      string     `json:"status"`
	Feedback    string     `json:"feedback"`
	ReviewedBy  *uint      `json:"reviewed_by"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Task        TaskLite   `json:"task"`
	Student     UserLite   `json:"student"`
}

// TaskLite summarizes a task in submission responses.
type TaskLite struct {
	ID      uint      `json:"id"`
	Title   string    `json:"title"`
	DueDate time.Time `json:"due_date"`
}

// UserLite summarizes an account without exposing full profile data.
type UserLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewTaskSubmissionResponse converts a TaskSubmission model into a DTO.
func NewTaskSubmissionResponse(model models.TaskSubmission) TaskSubmissionResponse {
	response := TaskSubmissionResponse{
		ID:          model.ID,
		TaskID:      model.TaskID,
		StudentID:   model.StudentID,
		AnswerText:  model.AnswerText,
		ArtifactURL: model.ArtifactURL,
		Status:      model.Status,
		Feedback:    model.Feedback,
		ReviewedBy:  model.ReviewedBy,
		ReviewedAt:  model.ReviewedAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}

	if model.Task.ID != 0 {
		response.Task = TaskLite{
			ID:      model.Task.ID,
			Title:   model.Task.Title,
			DueDate: model.Task.DueDate,
		}
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

// NewTaskSubmissionResponseSlice converts submission models into DTOs.
func NewTaskSubmissionResponseSlice(submissions []models.TaskSubmission) []TaskSubmissionResponse {
	responses := make([]TaskSubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewTaskSubmissionResponse(submission))
	}

	return responses
}
