package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/models"
	"github.com/apexti/apex-go-api/internal/repository"
)

// TaskService manages the task catalogue. Creation and editing are admin
// operations; listing is open to both portals.
type TaskService interface {
	List(ctx context.Context, query dto.TaskListQuery) (dto.TaskListResponse, error)
	Get(ctx context.Context, id uint) (dto.TaskResponse, error)
	Create(ctx context.Context, actor lifecycle.Actor, payload dto.TaskCreateRequest, file *multipart.FileHeader) (dto.TaskResponse, error)
	Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.TaskUpdateRequest) (dto.TaskResponse, error)
	Delete(ctx context.Context, actor lifecycle.Actor, id uint) error
}

type taskService struct {
	tasks     repository.TaskRepository
	validator *validator.Validate
	uploader  FileUploader
	logger    zerolog.Logger
	now       func() time.Time
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(taskRepo repository.TaskRepository, validate *validator.Validate, uploader FileUploader, logger zerolog.Logger) TaskService {
	return &taskService{
		tasks:     taskRepo,
		validator: validate,
		uploader:  uploader,
		logger:    logger.With().Str("component", "task_service").Logger(),
		now:       time.Now,
	}
}

func (s *taskService) List(ctx context.Context, query dto.TaskListQuery) (dto.TaskListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.TaskListResponse{}, err
	}

	tasks, total, err := s.tasks.List(ctx, repository.TaskFilter{
		Search:   query.Search,
		Page:     query.Page,
		PageSize: query.PageSize,
	})
	if err != nil {
		return dto.TaskListResponse{}, err
	}

	return dto.TaskListResponse{Items: dto.NewTaskResponseSlice(tasks), Total: total}, nil
}

func (s *taskService) Get(ctx context.Context, id uint) (dto.TaskResponse, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskResponse{}, ErrTaskNotFound
		}
		return dto.TaskResponse{}, err
	}

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Create(ctx context.Context, actor lifecycle.Actor, payload dto.TaskCreateRequest, file *multipart.FileHeader) (dto.TaskResponse, error) {
	if actor.Role != lifecycle.RoleAdmin {
		return dto.TaskResponse{}, lifecycle.ErrForbidden
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	attachmentURL, err := uploadArtifact(ctx, s.uploader, file)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	task := models.Task{
		Title:         strings.TrimSpace(payload.Title),
		Description:   payload.Description,
		DueDate:       payload.DueDate,
		AttachmentURL: attachmentURL,
		CreatedBy:     actor.ID,
	}

	if err := s.tasks.Create(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	s.logger.Info().Uint("task_id", task.ID).Uint("created_by", actor.ID).Msg("task created")

	return dto.NewTaskResponse(task), nil
}

func (s *taskService) Update(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.TaskUpdateRequest) (dto.TaskResponse, error) {
	if actor.Role != lifecycle.RoleAdmin {
		return dto.TaskResponse{}, lifecycle.ErrForbidden
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskResponse{}, err
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskResponse{}, ErrTaskNotFound
		}
		return dto.TaskResponse{}, err
	}

	if payload.Title != nil {
		task.Title = strings.TrimSpace(*payload.Title)
	}
	if payload.Description != nil {
		task.Description = *payload.Description
	}
	if payload.DueDate != nil {
		task.DueDate = *payload.DueDate
	}

	if err := s.tasks.Update(ctx, &task); err != nil {
		return dto.TaskResponse{}, err
	}

	s.logger.Info().Uint("task_id", task.ID).Msg("task updated")

	return dto.NewTaskResponse(task), nil
}

// Delete removes a task and, via the database cascade, its submissions.
func (s *taskService) Delete(ctx context.Context, actor lifecycle.Actor, id uint) error {
	if actor.Role != lifecycle.RoleAdmin {
		return lifecycle.ErrForbidden
	}

	if _, err := s.tasks.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Uint("task_id", id).Uint("deleted_by", actor.ID).Msg("task deleted")

	return nil
}
