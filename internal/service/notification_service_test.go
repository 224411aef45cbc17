package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/models"
)

type fakeNotificationRepo struct {
	records []models.Notification
	nextID  uint
}

func (r *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	r.nextID++
	notification.ID = r.nextID
	notification.CreatedAt = time.Now()
	r.records = append(r.records, *notification)
	return nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Notification, error) {
	var result []models.Notification
	for _, record := range r.records {
		if record.UserID == userID {
			result = append(result, record)
		}
	}
	return result, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id uint, userID string) (models.Notification, error) {
	for i, record := range r.records {
		if record.ID == id && record.UserID == userID {
			r.records[i].Read = true
			return r.records[i], nil
		}
	}
	return models.Notification{}, gorm.ErrRecordNotFound
}

func newNotificationFixture(t *testing.T, redisClient *redis.Client, channelBase string) (NotificationService, *fakeNotificationRepo) {
	t.Helper()

	repo := &fakeNotificationRepo{}
	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewNotificationService(repo, redisClient, channelBase, validate, zerolog.Nop())
	return svc, repo
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	svc, _ := newNotificationFixture(t, nil, "")

	stream, cancel := svc.Subscribe("42")
	defer cancel()

	published, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "42",
		Type:    "system",
		Message: "Welcome aboard",
	})
	require.NoError(t, err)

	select {
	case received := <-stream:
		require.Equal(t, published.ID, received.ID)
		require.Equal(t, "Welcome aboard", received.Message)
	case <-time.After(time.Second):
		t.Fatal("notification was not delivered")
	}
}

func TestPublishSanitizesMessage(t *testing.T) {
	svc, _ := newNotificationFixture(t, nil, "")

	published, err := svc.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "42",
		Type:    "system",
		Message: "<script>alert(1)</script>Heads up",
	})
	require.NoError(t, err)
	require.NotContains(t, published.Message, "<script>")
	require.Contains(t, published.Message, "Heads up")
}

func TestNotifyReviewFormatsOutcome(t *testing.T) {
	svc, repo := newNotificationFixture(t, nil, "")

	svc.NotifyReview(context.Background(), 7, "task", lifecycle.StatusAccepted, "")
	svc.NotifyReview(context.Background(), 7, "project", lifecycle.StatusRejected, "needs tests")

	require.Len(t, repo.records, 2)
	require.Equal(t, models.NotificationTypeSubmissionAccepted, repo.records[0].Type)
	require.Contains(t, repo.records[0].Message, "accepted")
	require.Equal(t, models.NotificationTypeSubmissionRejected, repo.records[1].Type)
	require.Contains(t, repo.records[1].Message, "needs tests")
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc, _ := newNotificationFixture(t, nil, "")

	_, err := svc.MarkRead(context.Background(), 999, "42")
	require.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestCrossNodeDeliveryViaRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	clientA := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	clientB := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = clientA.Close()
		_ = clientB.Close()
	})

	nodeA, _ := newNotificationFixture(t, clientA, "apex")
	nodeB, _ := newNotificationFixture(t, clientB, "apex")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	nodeA.Start(ctx)
	nodeB.Start(ctx)

	// Give the subscriptions a moment to attach.
	time.Sleep(100 * time.Millisecond)

	streamB, cancelB := nodeB.Subscribe("42")
	defer cancelB()

	_, err := nodeA.Publish(context.Background(), dto.NotificationCreateRequest{
		UserID:  "42",
		Type:    "system",
		Message: "cross node",
	})
	require.NoError(t, err)

	select {
	case received := <-streamB:
		require.Equal(t, "cross node", received.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notification did not cross nodes")
	}
}
