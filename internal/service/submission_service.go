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

// ErrSubmissionNotFound indicates a submission could not be found.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrTaskNotFound indicates the referenced task does not exist.
var ErrTaskNotFound = errors.New("task not found")

// ErrTaskPastDue indicates the task deadline has passed for a fresh submit.
var ErrTaskPastDue = errors.New("task is past due")

// SubmissionService orchestrates the task submission lifecycle: submit,
// review, resubmit. Authorization runs before any store mutation and every
// status change goes through the repository's conditional update.
type SubmissionService interface {
	List(ctx context.Context, actor lifecycle.Actor, filter dto.TaskSubmissionFilter) ([]dto.TaskSubmissionResponse, error)
	Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.TaskSubmissionResponse, error)
	Submit(ctx context.Context, actor lifecycle.Actor, payload dto.SubmitTaskRequest, file *multipart.FileHeader) (dto.TaskSubmissionResponse, error)
	Review(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.ReviewRequest) (dto.TaskSubmissionResponse, error)
	Resubmit(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.SubmissionContent, file *multipart.FileHeader) (dto.TaskSubmissionResponse, error)
}

// ReviewNotifier fans a review outcome out to the owning student. A nil
// notifier disables delivery without affecting the lifecycle itself.
type ReviewNotifier interface {
	NotifyReview(ctx context.Context, studentID uint, kind string, status lifecycle.Status, feedback string)
}

type submissionService struct {
	submissions repository.TaskSubmissionRepository
	tasks       repository.TaskRepository
	validator   *validator.Validate
	uploader    FileUploader
	notifier    ReviewNotifier
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(subRepo repository.TaskSubmissionRepository, taskRepo repository.TaskRepository, validate *validator.Validate, uploader FileUploader, notifier ReviewNotifier, activity ActivityRecorder, logger zerolog.Logger) SubmissionService {
	return &submissionService{
		submissions: subRepo,
		tasks:       taskRepo,
		validator:   validate,
		uploader:    uploader,
		notifier:    notifier,
		activity:    activity,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         time.Now,
	}
}

func (s *submissionService) List(ctx context.Context, actor lifecycle.Actor, filter dto.TaskSubmissionFilter) ([]dto.TaskSubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	// Students only ever see their own submissions.
	if actor.Role != lifecycle.RoleAdmin {
		id := actor.ID
		filter.StudentID = &id
	}

	submissions, err := s.submissions.List(ctx, repository.TaskSubmissionFilter{
		TaskID:    filter.TaskID,
		StudentID: filter.StudentID,
		Status:    filter.Status,
	})
	if err != nil {
		return nil, err
	}

	return dto.NewTaskSubmissionResponseSlice(submissions), nil
}

func (s *submissionService) Get(ctx context.Context, actor lifecycle.Actor, id uint) (dto.TaskSubmissionResponse, error) {
	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	if actor.Role != lifecycle.RoleAdmin && actor.ID != submission.StudentID {
		return dto.TaskSubmissionResponse{}, lifecycle.ErrForbidden
	}

	return dto.NewTaskSubmissionResponse(submission), nil
}

// Submit creates a pending submission for the acting student. When a
// rejected attempt already exists for the same task the existing record is
// reused as a resubmission; a pending or accepted record blocks the submit.
func (s *submissionService) Submit(ctx context.Context, actor lifecycle.Actor, payload dto.SubmitTaskRequest, file *multipart.FileHeader) (dto.TaskSubmissionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	if err := lifecycle.Authorize(actor, lifecycle.OpSubmit, actor.ID); err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	if strings.TrimSpace(payload.AnswerText) == "" && file == nil {
		return dto.TaskSubmissionResponse{}, lifecycle.ErrInvalidContent
	}

	task, err := s.tasks.GetByID(ctx, payload.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.TaskSubmissionResponse{}, ErrTaskNotFound
		}
		return dto.TaskSubmissionResponse{}, err
	}

	existing, err := s.submissions.GetActiveByStudentAndTask(ctx, actor.ID, payload.TaskID)
	switch {
	case err == nil:
		if !lifecycle.CanResubmit(existing.LifecycleStatus()) {
			return dto.TaskSubmissionResponse{}, lifecycle.ErrInvalidTransition
		}
		return s.resubmitRecord(ctx, actor, existing, dto.SubmissionContent{AnswerText: payload.AnswerText}, file)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First attempt for this task.
	default:
		return dto.TaskSubmissionResponse{}, err
	}

	// Deadline applies to the first attempt only; resubmissions of rejected
	// work stay open so the feedback loop can complete.
	if task.IsPastDue(s.now()) {
		return dto.TaskSubmissionResponse{}, ErrTaskPastDue
	}

	artifactURL, err := uploadArtifact(ctx, s.uploader, file)
	if err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	content := lifecycle.Content{AnswerText: payload.AnswerText, ArtifactURL: artifactURL}
	if err := content.Validate(); err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	next, err := lifecycle.Next(lifecycle.StatusNone, lifecycle.ActionSubmit)
	if err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	submission := models.TaskSubmission{
		TaskID:      payload.TaskID,
		StudentID:   actor.ID,
		AnswerText:  strings.TrimSpace(payload.AnswerText),
		ArtifactURL: artifactURL,
		Status:      string(next),
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		// A concurrent first attempt can slip past the active-record lookup;
		// the unique (task, student) index turns the loser into a conflict.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.TaskSubmissionResponse{}, lifecycle.ErrInvalidTransition
		}
		return dto.TaskSubmissionResponse{}, err
	}

	created, err := s.getSubmission(ctx, submission.ID)
	if err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	s.logger.Info().Uint("submission_id", created.ID).Uint("task_id", task.ID).Msg("submission created")

	return dto.NewTaskSubmissionResponse(created), nil
}

// Review applies an admin verdict to a pending submission. The conditional
// update guarantees at most one of two racing reviews wins; the loser
// observes ErrInvalidTransition and may re-fetch to see the outcome.
func (s *submissionService) Review(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.ReviewRequest) (dto.TaskSubmissionResponse, error) {
	tracer := otel.Tracer("github.com/apexti/apex-go-api/internal/service/submission")
	ctx, span := tracer.Start(ctx, "submission.review")
	span.SetAttributes(
		attribute.Int64("review.submission_id", int64(id)),
		attribute.Int64("review.actor_id", int64(actor.ID)),
		attribute.String("review.verdict", payload.Verdict),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.TaskSubmissionResponse{}, err
	}

	// Role check runs before the lookup so a denial reveals nothing about
	// whether the submission exists.
	if err := lifecycle.AuthorizeRole(actor, lifecycle.OpReview); err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_lookup_failed")
		return dto.TaskSubmissionResponse{}, err
	}

	verdict := lifecycle.Verdict(payload.Verdict)
	action, err := verdict.Action()
	if err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	next, err := lifecycle.Next(submission.LifecycleStatus(), action)
	if err != nil {
		span.SetStatus(codes.Error, "invalid_transition")
		return dto.TaskSubmissionResponse{}, err
	}

	if err := lifecycle.ValidateFeedback(verdict, payload.Feedback); err != nil {
		return dto.TaskSubmissionResponse{}, err
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

	rows, err := s.submissions.UpdateWhereStatus(ctx, id, lifecycle.StatusPending, patch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission_update_failed")
		return dto.TaskSubmissionResponse{}, err
	}
	if rows == 0 {
		// Lost a concurrent review race; the record is no longer pending.
		observability.ReviewConflicts().WithLabelValues("task").Inc()
		span.SetStatus(codes.Error, "review_conflict")
		return dto.TaskSubmissionResponse{}, lifecycle.ErrInvalidTransition
	}

	updated, err := s.getSubmission(ctx, id)
	if err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	observability.ReviewDecisions().WithLabelValues("task", string(next)).Inc()
	s.recordReviewActivity(ctx, actor, "task_submission", updated.ID, updated.StudentID, string(next))
	if s.notifier != nil {
		s.notifier.NotifyReview(ctx, updated.StudentID, "task", next, updated.Feedback)
	}

	s.logger.Info().
		Uint("submission_id", updated.ID).
		Str("status", updated.Status).
		Uint("reviewer_id", actor.ID).
		Msg("submission reviewed")

	return dto.NewTaskSubmissionResponse(updated), nil
}

// Resubmit replaces a rejected submission's content and returns it to
// pending with feedback cleared.
func (s *submissionService) Resubmit(ctx context.Context, actor lifecycle.Actor, id uint, payload dto.SubmissionContent, file *multipart.FileHeader) (dto.TaskSubmissionResponse, error) {
	if err := lifecycle.AuthorizeRole(actor, lifecycle.OpResubmit); err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	if err := lifecycle.Authorize(actor, lifecycle.OpResubmit, submission.StudentID); err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	return s.resubmitRecord(ctx, actor, submission, payload, file)
}

func (s *submissionService) resubmitRecord(ctx context.Context, actor lifecycle.Actor, submission models.TaskSubmission, payload dto.SubmissionContent, file *multipart.FileHeader) (dto.TaskSubmissionResponse, error) {
	if strings.TrimSpace(payload.AnswerText) == "" && file == nil {
		return dto.TaskSubmissionResponse{}, lifecycle.ErrInvalidContent
	}

	next, err := lifecycle.Next(submission.LifecycleStatus(), lifecycle.ActionResubmit)
	if err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	artifactURL, err := uploadArtifact(ctx, s.uploader, file)
	if err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	content := lifecycle.Content{AnswerText: payload.AnswerText, ArtifactURL: artifactURL}
	if err := content.Validate(); err != nil {
		return dto.TaskSubmissionResponse{}, err
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

	rows, err := s.submissions.UpdateWhereStatus(ctx, submission.ID, lifecycle.StatusRejected, patch)
	if err != nil {
		return dto.TaskSubmissionResponse{}, err
	}
	if rows == 0 {
		return dto.TaskSubmissionResponse{}, lifecycle.ErrInvalidTransition
	}

	updated, err := s.getSubmission(ctx, submission.ID)
	if err != nil {
		return dto.TaskSubmissionResponse{}, err
	}

	s.logger.Info().
		Uint("submission_id", updated.ID).
		Uint("student_id", actor.ID).
		Msg("submission resubmitted")

	return dto.NewTaskSubmissionResponse(updated), nil
}

func (s *submissionService) getSubmission(ctx context.Context, id uint) (models.TaskSubmission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TaskSubmission{}, ErrSubmissionNotFound
		}
		return models.TaskSubmission{}, err
	}
	return submission, nil
}

func (s *submissionService) recordReviewActivity(ctx context.Context, actor lifecycle.Actor, entityType string, entityID, studentID uint, status string) {
	if s.activity == nil {
		return
	}

	id := entityID
	_, _ = s.activity.Record(ctx, ActivityEntry{
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     "submission.reviewed",
		EntityType: entityType,
		EntityID:   &id,
		Metadata: map[string]interface{}{
			"student_id": studentID,
			"status":     status,
		},
	})
}
