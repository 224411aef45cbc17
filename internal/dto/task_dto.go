package dto

import (
	"time"

	"github.com/apexti/apex-go-api/internal/models"
)

// TaskCreateRequest describes the payload for creating a task.
type TaskCreateRequest struct {
	Title       string    `form:"title" validate:"required,max=255"`
	Description string    `form:"description"`
	DueDate     time.Time `form:"due_date" validate:"required"`
}

// TaskUpdateRequest describes the payload for editing a task.
type TaskUpdateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=255"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"due_date"`
}

// TaskListQuery describes filters for listing tasks.
type TaskListQuery struct {
	Search   string `query:"search"`
	Page     int    `query:"page" validate:"omitempty,gte=1"`
	PageSize int    `query:"page_size" validate:"omitempty,gte=1,lte=100"`
}

// TaskResponse is returned to API clients when viewing tasks.
type TaskResponse struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	DueDate       time.Time `json:"due_date"`
	AttachmentURL string    `json:"attachment_url"`
	CreatedBy     uint      `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TaskListResponse wraps a paginated task listing.
type TaskListResponse struct {
	Items []TaskResponse `json:"items"`
	Total int64          `json:"total"`
}

// NewTaskResponse converts a Task model into a DTO.
func NewTaskResponse(model models.Task) TaskResponse {
	return TaskResponse{
		ID:            model.ID,
		Title:         model.Title,
		Description:   model.Description,
		DueDate:       model.DueDate,
		AttachmentURL: model.AttachmentURL,
		CreatedBy:     model.CreatedBy,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

// NewTaskResponseSlice converts task models into DTOs.
func NewTaskResponseSlice(tasks []models.Task) []TaskResponse {
	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, NewTaskResponse(task))
	}

	return responses
}
