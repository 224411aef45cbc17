package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/models"
	"github.com/apexti/apex-go-api/internal/repository"
)

const notificationBufferSize = 16

// ErrNotificationNotFound indicates the notification does not exist or does
// not belong to the requesting user.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService publishes and streams in-app notifications. It also
// implements ReviewNotifier so review outcomes reach the owning student.
type NotificationService interface {
	ReviewNotifier
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
	List(ctx context.Context, userID string, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error)
	Subscribe(userID string) (<-chan dto.NotificationResponse, func())
	Start(ctx context.Context)
}

type notificationService struct {
	repo        repository.NotificationRepository
	redis       *redis.Client
	redisStream string
	validator   *validator.Validate
	logger      zerolog.Logger
	sanitizer   *bluemonday.Policy
	broker      *notificationBroker
	nodeID      string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

// notificationBroker fans events out to in-process subscribers.
type notificationBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.NotificationResponse]struct{}
}

// NewNotificationService creates a notification service. redisClient may be
// nil, which keeps delivery node-local.
func NewNotificationService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, validate *validator.Validate, logger zerolog.Logger) NotificationService {
	stream := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
	}

	return &notificationService{
		repo:        repo,
		redis:       redisClient,
		redisStream: stream,
		validator:   validate,
		logger:      logger.With().Str("component", "notification_service").Logger(),
		sanitizer:   bluemonday.StrictPolicy(),
		broker: &notificationBroker{
			subscribers: make(map[string]map[chan dto.NotificationResponse]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

func (s *notificationService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
}

func (s *notificationService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}

	model := models.Notification{
		UserID:  payload.UserID,
		Type:    payload.Type,
		Message: s.sanitizer.Sanitize(payload.Message),
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(model)
	s.broker.deliver(response)

	if err := s.publishEvent(ctx, response); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish notification event")
	}

	return response, nil
}

func (s *notificationService) List(ctx context.Context, userID string, limit, offset int) ([]dto.NotificationResponse, error) {
	notifications, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error) {
	notification, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.NotificationResponse{}, ErrNotificationNotFound
		}
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) Subscribe(userID string) (<-chan dto.NotificationResponse, func()) {
	return s.broker.subscribe(userID)
}

// NotifyReview translates a review outcome into a notification for the
// owning student. Delivery failures are logged, never propagated: the
// review itself has already committed.
func (s *notificationService) NotifyReview(ctx context.Context, studentID uint, kind string, status lifecycle.Status, feedback string) {
	notificationType := models.NotificationTypeSubmissionAccepted
	message := fmt.Sprintf("Your %s submission was accepted.", kind)
	if status == lifecycle.StatusRejected {
		notificationType = models.NotificationTypeSubmissionRejected
		message = fmt.Sprintf("Your %s submission was rejected: %s", kind, feedback)
	}

	_, err := s.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  strconv.FormatUint(uint64(studentID), 10),
		Type:    notificationType,
		Message: message,
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to deliver review notification")
	}
}

func (s *notificationService) publishEvent(ctx context.Context, notification dto.NotificationResponse) error {
	if s.redis == nil || s.redisStream == "" {
		return nil
	}

	event := notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.redis.Publish(ctx, s.redisStream, payload).Err()
}

func (s *notificationService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("notification redis subscription closed")
			return
		}

		var event notificationEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			s.logger.Warn().Err(err).Msg("invalid notification event")
			continue
		}

		if event.Source == s.nodeID {
			continue
		}

		s.broker.deliver(event.Notification)
	}
}

func (b *notificationBroker) subscribe(userID string) (<-chan dto.NotificationResponse, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	channel := make(chan dto.NotificationResponse, notificationBufferSize)
	if _, ok := b.subscribers[userID]; !ok {
		b.subscribers[userID] = make(map[chan dto.NotificationResponse]struct{})
	}
	b.subscribers[userID][channel] = struct{}{}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if channels, ok := b.subscribers[userID]; ok {
			if _, exists := channels[channel]; exists {
				delete(channels, channel)
				close(channel)
			}
			if len(channels) == 0 {
				delete(b.subscribers, userID)
			}
		}
	}

	return channel, cancel
}

func (b *notificationBroker) deliver(notification dto.NotificationResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for channel := range b.subscribers[notification.UserID] {
		select {
		case channel <- notification:
		default:
			// Slow consumers drop events rather than block publishers.
		}
	}
}
