package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/models"
	"github.com/apexti/apex-go-api/internal/repository"
)

// ActivityEntry describes an auditable event about to be recorded.
type ActivityEntry struct {
	ActorID    uint
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// ActivityRecorder appends events to the audit trail. Recording failures
// must never fail the operation that produced the event.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (models.ActivityLog, error)
}

// ActivityService records and lists the admin audit trail.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, query dto.ActivityListQuery) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo      repository.ActivityLogRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewActivityService constructs an ActivityService instance.
func NewActivityService(repo repository.ActivityLogRepository, validate *validator.Validate, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:      repo,
		validator: validate,
		logger:    logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (models.ActivityLog, error) {
	model := models.ActivityLog{
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   datatypes.JSONMap(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		s.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to persist activity entry")
		return models.ActivityLog{}, err
	}

	return model, nil
}

func (s *activityService) List(ctx context.Context, query dto.ActivityListQuery) (dto.ActivityListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return dto.ActivityListResponse{}, err
	}

	entries, total, err := s.repo.List(ctx, repository.ActivityLogFilter{
		Page:       query.Page,
		PageSize:   query.PageSize,
		ActorID:    query.ActorID,
		Action:     query.Action,
		EntityType: query.EntityType,
	})
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	return dto.ActivityListResponse{Items: dto.NewActivityResponseSlice(entries), Total: total}, nil
}
