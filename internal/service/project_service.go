package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/models"
	"github.com/apexti/apex-go-api/internal/observability"
	"github.com/apexti/apex-go-api/internal/repository"
)

// ErrProjectNotFound indicates the project slot could not be found.
var ErrProjectNotFound = errors.New("project submission not found")

// ProjectService orchestrates the per-student project slot. Submitting into
// an empty slot creates the record; afterwards the slot follows the same
// lifecycle and conditional-update rules as task submissions, keyed by the
// owning student alone.
type ProjectService interface {
	List(ctx context.Context, actor lifecycle.Actor, status *string) ([]dto.ProjectSubmissionResponse, error)
	GetMine(ctx context.Context, actor lifecycle.Actor) (dto.ProjectSubmissionResponse, error)
	Submit(ctx context.Context, actor lifecycle.Actor, payload dto.SubmitProjectRequest, file *multipart.FileHeader) (dto.ProjectSubmissionResponse, error)
	Review(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.ReviewRequest) (dto.ProjectSubmissionResponse, error)
	Resubmit(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.SubmitProjectRequest, file *multipart.FileHeader) (dto.ProjectSubmissionResponse, error)
}

type projectService struct {
	projects  repository.ProjectSubmissionRepository
	validator *validator.Validate
	uploader  FileUploader
	notifier  ReviewNotifier
	activity  ActivityRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewProjectService constructs a ProjectService instance.
func NewProjectService(projectRepo repository.ProjectSubmissionRepository, validate *validator.Validate, uploader FileUploader, notifier ReviewNotifier, activity ActivityRecorder, logger zerolog.Logger) ProjectService {
	return &projectService{
		projects:  projectRepo,
		validator: validate,
		uploader:  uploader,
		notifier:  notifier,
		activity:  activity,
		logger:    logger.With().Str("component", "project_service").Logger(),
		now:       time.Now,
	}
}

func (s *projectService) List(ctx context.Context, actor lifecycle.Actor, status *string) ([]dto.ProjectSubmissionResponse, error) {
	if actor.Role != lifecycle.RoleAdmin {
		return nil, lifecycle.ErrForbidden
	}

	submissions, err := s.projects.List(ctx, status)
	if err != nil {
		return nil, err
	}

	return dto.NewProjectSubmissionResponseSlice(submissions), nil
}

func (s *projectService) GetMine(ctx context.Context, actor lifecycle.Actor) (dto.ProjectSubmissionResponse, error) {
	submission, err := s.projects.GetByStudent(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProjectSubmissionResponse{}, ErrProjectNotFound
		}
		return dto.ProjectSubmissionResponse{}, err
	}

	return dto.NewProjectSubmissionResponse(submission), nil
}

// Submit fills the student's project slot. An empty slot moves from the
// implicit not-submitted state to pending; a rejected slot is resubmitted in
// place; a pending or accepted slot blocks the submit.
func (s *projectService) Submit(ctx context.Context, actor lifecycle.Actor, payload dto.SubmitProjectRequest, file *multipart.FileHeader) (dto.ProjectSubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	if err := lifecycle.Authorize(actor, lifecycle.OpSubmit, actor.ID); err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	if strings.TrimSpace(payload.AnswerText) == "" && file == nil {
		return dto.ProjectSubmissionResponse{}, lifecycle.ErrInvalidContent
	}

	existing, err := s.projects.GetByStudent(ctx, actor.ID)
	switch {
	case err == nil:
		if !lifecycle.CanResubmit(existing.LifecycleStatus()) {
			return dto.ProjectSubmissionResponse{}, lifecycle.ErrInvalidTransition
		}
		return s.resubmitSlot(ctx, actor, existing, payload, file)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Slot still empty, first submission.
	default:
		return dto.ProjectSubmissionResponse{}, err
	}

	artifactURL, err := uploadArtifact(ctx, s.uploader, file)
	if err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	content := lifecycle.Content{AnswerText: payload.AnswerText, ArtifactURL: artifactURL}
	if err := content.Validate(); err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	next, err := lifecycle.Next(lifecycle.StatusNone, lifecycle.ActionSubmit)
	if err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	submission := models.ProjectSubmission{
		StudentID:   actor.ID,
		Title:       strings.TrimSpace(payload.Title),
		AnswerText:  strings.TrimSpace(payload.AnswerText),
		ArtifactURL: artifactURL,
		Status:      string(next),
	}

	if err := s.projects.Create(ctx, &submission); err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	created, err := s.getProject(ctx, submission.ID)
	if err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	s.logger.Info().Uint("project_id", created.ID).Uint("student_id", actor.ID).Msg("project submitted")

	return dto.NewProjectSubmissionResponse(created), nil
}

// Review applies an admin verdict to a pending project slot under the same
// conditional-update race rules as task submissions.
func (s *projectService) Review(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.ReviewRequest) (dto.ProjectSubmissionResponse, error) {
	tracer := otel.Tracer("github.com/apexti/apex-go-api/internal/service/project")
	ctx, span := tracer.Start(ctx, "project.review")
	span.SetAttributes(
		attribute.Int64("review.project_id", int64(id)),
		attribute.Int64("review.actor_id", int64(actor.ID)),
		attribute.String("review.verdict", payload.Verdict),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.ProjectSubmissionResponse{}, err
	}

	if err := lifecycle.AuthorizeRole(actor, lifecycle.OpReview); err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	submission, err := s.getProject(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "project_lookup_failed")
		return dto.ProjectSubmissionResponse{}, err
	}

	verdict := lifecycle.Verdict(payload.Verdict)
	action, err := verdict.Action()
	if err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	next, err := lifecycle.Next(submission.LifecycleStatus(), action)
	if err != nil {
		span.SetStatus(codes.Error, "invalid_transition")
		return dto.ProjectSubmissionResponse{}, err
	}

	if err := lifecycle.ValidateFeedback(verdict, payload.Feedback); err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	now := s.now()
	patch := map[string]interface{}{
		"status":      string(next),
		"reviewed_by": actor.ID,
		"reviewed_at": now,
		"updated_at":  now,
	}
	if verdict == lifecycle.VerdictReject {
		patch["feedback"] = strings.TrimSpace(payload.Feedback)
	}

	rows, err := s.projects.UpdateWhereStatus(ctx, id, lifecycle.StatusPending, patch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "project_update_failed")
		return dto.ProjectSubmissionResponse{}, err
	}
	if rows == 0 {
		observability.ReviewConflicts().WithLabelValues("project").Inc()
		span.SetStatus(codes.Error, "review_conflict")
		return dto.ProjectSubmissionResponse{}, lifecycle.ErrInvalidTransition
	}

	updated, err := s.getProject(ctx, id)
	if err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	observability.ReviewDecisions().WithLabelValues("project", string(next)).Inc()
	if s.activity != nil {
		entityID := updated.ID
		_, _ = s.activity.Record(ctx, ActivityEntry{
			ActorID:    actor.ID,
			ActorRole:  string(actor.Role),
			Action:     "project.reviewed",
			EntityType: "project_submission",
			EntityID:   &entityID,
			Metadata: map[string]interface{}{
				"student_id": updated.StudentID,
				"status":     updated.Status,
			},
		})
	}
	if s.notifier != nil {
		s.notifier.NotifyReview(ctx, updated.StudentID, "project", next, updated.Feedback)
	}

	s.logger.Info().
		Uint("project_id", updated.ID).
		Str("status", updated.Status).
		Uint("reviewer_id", actor.ID).
		Msg("project reviewed")

	return dto.NewProjectSubmissionResponse(updated), nil
}

// Resubmit replaces a rejected project's content and returns the slot to
// pending with feedback cleared.
func (s *projectService) Resubmit(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.SubmitProjectRequest, file *multipart.FileHeader) (dto.ProjectSubmissionResponse, error) {
	if err := lifecycle.AuthorizeRole(actor, lifecycle.OpResubmit); err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	submission, err := s.getProject(ctx, id)
	if err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	if err := lifecycle.Authorize(actor, lifecycle.OpResubmit, submission.StudentID); err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	return s.resubmitSlot(ctx, actor, submission, payload, file)
}

func (s *projectService) resubmitSlot(ctx context.Context, actor lifecycle.Actor, submission models.ProjectSubmission, payload dto.SubmitProjectRequest, file *multipart.FileHeader) (dto.ProjectSubmissionResponse, error) {
	if strings.TrimSpace(payload.AnswerText) == "" && file == nil {
		return dto.ProjectSubmissionResponse{}, lifecycle.ErrInvalidContent
	}

	next, err := lifecycle.Next(submission.LifecycleStatus(), lifecycle.ActionResubmit)
	if err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	artifactURL, err := uploadArtifact(ctx, s.uploader, file)
	if err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	content := lifecycle.Content{AnswerText: payload.AnswerText, ArtifactURL: artifactURL}
	if err := content.Validate(); err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	now := s.now()
	patch := map[string]interface{}{
		"status":       string(next),
		"answer_text":  strings.TrimSpace(payload.AnswerText),
		"artifact_url": artifactURL,
		"feedback":     "",
		"reviewed_by":  nil,
		"reviewed_at":  nil,
		"updated_at":   now,
	}
	if title := strings.TrimSpace(payload.Title); title != "" {
		patch["title"] = title
	}

	rows, err := s.projects.UpdateWhereStatus(ctx, submission.ID, lifecycle.StatusRejected, patch)
	if err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}
	if rows == 0 {
		return dto.ProjectSubmissionResponse{}, lifecycle.ErrInvalidTransition
	}

	updated, err := s.getProject(ctx, submission.ID)
	if err != nil {
		return dto.ProjectSubmissionResponse{}, err
	}

	s.logger.Info().Uint("project_id", updated.ID).Uint("student_id", actor.ID).Msg("project resubmitted")

	return dto.NewProjectSubmissionResponse(updated), nil
}

func (s *projectService) getProject(ctx context.Context, id uint) (models.ProjectSubmission, error) {
	submission, err := s.projects.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.ProjectSubmission{}, ErrProjectNotFound
		}
		return models.ProjectSubmission{}, err
	}
	return submission, nil
}
