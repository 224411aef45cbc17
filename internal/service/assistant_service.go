package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/observability"
	"github.com/apexti/apex-go-api/internal/repository"
	"github.com/apexti/apex-go-api/pkg/ai"
)

const assistantAnswerLimit = 1600

const assistantRefusal = "I can only help with questions about your tasks, project, submissions, feedback, or attendance."

// topicVocabulary scopes the assistant to course matters. A question must
// mention at least one of these terms before any model call is made.
var topicVocabulary = []string{
	"task", "assignment", "deadline", "due",
	"project", "submission", "submit", "resubmit",
	"feedback", "review", "rejected", "accepted", "pending",
	"attendance", "check-in", "checkin",
	"grade", "status", "artifact", "upload",
}

// AssistantService answers course-scoped questions from the student portal.
type AssistantService interface {
	Ask(ctx context.Context, actor lifecycle.Actor, payload dto.AssistantAskRequest) (dto.AssistantReplyResponse, error)
}

type assistantService struct {
	responder   ai.Responder
	tasks       repository.TaskRepository
	submissions repository.TaskSubmissionRepository
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
}

// NewAssistantService constructs an AssistantService instance. responder may
// be nil, in which case every on-topic question fails with an explicit error.
func NewAssistantService(responder ai.Responder, taskRepo repository.TaskRepository, submissionRepo repository.TaskSubmissionRepository, validate *validator.Validate, logger zerolog.Logger) AssistantService {
	return &assistantService{
		responder:   responder,
		tasks:       taskRepo,
		submissions: submissionRepo,
		validator:   validate,
		logger:      logger.With().Str("component", "assistant_service").Logger(),
		tracer:      otel.Tracer("github.com/apexti/apex-go-api/internal/service/assistant"),
		sanitizer:   bluemonday.StrictPolicy(),
	}
}

func (s *assistantService) Ask(ctx context.Context, actor lifecycle.Actor, payload dto.AssistantAskRequest) (dto.AssistantReplyResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssistantReplyResponse{}, err
	}

	question := strings.TrimSpace(s.sanitizer.Sanitize(payload.Question))
	if question == "" {
		return dto.AssistantReplyResponse{}, lifecycle.ErrInvalidContent
	}

	spanCtx, span := s.tracer.Start(ctx, "assistant.ask", trace.WithAttributes(
		attribute.Int("user.id", int(actor.ID)),
	))
	defer span.End()

	if !onTopic(question) {
		observability.AssistantRequests().WithLabelValues("off_topic").Inc()
		span.SetAttributes(attribute.Bool("assistant.on_topic", false))
		return dto.AssistantReplyResponse{Answer: assistantRefusal, OnTopic: false}, nil
	}

	if s.responder == nil {
		observability.AssistantRequests().WithLabelValues("failed").Inc()
		return dto.AssistantReplyResponse{}, fmt.Errorf("assistant is not configured")
	}

	answer, err := s.responder.Respond(spanCtx, ai.Question{
		Text:          question,
		CourseContext: s.courseContext(spanCtx, actor),
	})
	if err != nil {
		observability.AssistantRequests().WithLabelValues("failed").Inc()
		span.RecordError(err)
		return dto.AssistantReplyResponse{}, err
	}

	// Cap on rune count so the cut never lands inside a multibyte sequence.
	if runes := []rune(answer); len(runes) > assistantAnswerLimit {
		answer = string(runes[:assistantAnswerLimit])
	}

	observability.AssistantRequests().WithLabelValues("answered").Inc()

	return dto.AssistantReplyResponse{Answer: answer, OnTopic: true}, nil
}

func onTopic(question string) bool {
	lowered := strings.ToLower(question)
	for _, term := range topicVocabulary {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// courseContext builds a compact snapshot of the student's standing. Lookup
// failures degrade to a smaller snapshot rather than failing the question.
func (s *assistantService) courseContext(ctx context.Context, actor lifecycle.Actor) string {
	builder := strings.Builder{}

	tasks, _, err := s.tasks.List(ctx, repository.TaskFilter{Page: 1, PageSize: 10})
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load tasks for assistant context")
	} else {
		for _, task := range tasks {
			builder.WriteString(fmt.Sprintf("Task %q due %s.\n", task.Title, task.DueDate.Format("2006-01-02")))
		}
	}

	if actor.Role == lifecycle.RoleStudent {
		studentID := actor.ID
		submissions, err := s.submissions.List(ctx, repository.TaskSubmissionFilter{StudentID: &studentID})
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to load submissions for assistant context")
		} else {
			for _, submission := range submissions {
				builder.WriteString(fmt.Sprintf("Submission for task %d is %s.\n", submission.TaskID, submission.Status))
			}
		}
	}

	return builder.String()
}
