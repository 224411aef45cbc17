package dto

import (
	"time"

	"github.com/apexti/apex-go-api/internal/models"
)

// SubmitProjectRequest describes the multipart payload for the project slot.
type SubmitProjectRequest struct {
	Title      string `form:"title" validate:"omitempty,max=255"`
	AnswerText string `form:"answer_text"`
}

// ProjectSubmissionResponse is returned when viewing a project slot.
type ProjectSubmissionResponse struct {
	ID          uint       `json:"id"`
	StudentID   uint       `json:"student_id"`
	Title       string     `json:"title"`
	AnswerText  string     `json:"answer_text"`
	ArtifactURL string     `json:"artifact_url"`
	Status      string     `json:"status"`
	Feedback    string     `json:"feedback"`
	ReviewedBy  *uint      `json:"reviewed_by"`
	ReviewedAt  *time.Time `json:"reviewed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Student     UserLite   `json:"student"`
}

// NewProjectSubmissionResponse converts a ProjectSubmission into a DTO.
func NewProjectSubmissionResponse(model models.ProjectSubmission) ProjectSubmissionResponse {
	response := ProjectSubmissionResponse{
		ID:          model.ID,
		StudentID:   model.StudentID,
		Title:       model.Title,
		AnswerText:  model.AnswerText,
		ArtifactURL: model.ArtifactURL,
		Status:      model.Status,
		Feedback:    model.Feedback,
		ReviewedBy:  model.ReviewedBy,
		ReviewedAt:  model.ReviewedAt,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
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

// NewProjectSubmissionResponseSlice converts project models into DTOs.
func NewProjectSubmissionResponseSlice(submissions []models.ProjectSubmission) []ProjectSubmissionResponse {
	responses := make([]ProjectSubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewProjectSubmissionResponse(submission))
	}

	return responses
}
