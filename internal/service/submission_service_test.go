package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/models"
	"github.com/apexti/apex-go-api/internal/repository"
)

type fakeSubmissionRepo struct {
	mu      sync.Mutex
	records map[uint]*models.TaskSubmission
	nextID  uint

	// staleActiveLookup makes GetActiveByStudentAndTask miss, emulating a
	// read that ran before a concurrent insert committed. The unique index
	// in Create still sees the committed row.
	staleActiveLookup bool
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{records: make(map[uint]*models.TaskSubmission), nextID: 1}
}

func (r *fakeSubmissionRepo) List(ctx context.Context, filter repository.TaskSubmissionFilter) ([]models.TaskSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []models.TaskSubmission
	for _, record := range r.records {
		if filter.TaskID != nil && record.TaskID != *filter.TaskID {
			continue
		}
		if filter.StudentID != nil && record.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && record.Status != *filter.Status {
			continue
		}
		result = append(result, *record)
	}
	return result, nil
}

func (r *fakeSubmissionRepo) GetByID(ctx context.Context, id uint) (models.TaskSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return models.TaskSubmission{}, gorm.ErrRecordNotFound
	}
	return *record, nil
}

func (r *fakeSubmissionRepo) GetActiveByStudentAndTask(ctx context.Context, studentID, taskID uint) (models.TaskSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.staleActiveLookup {
		for _, record := range r.records {
			if record.StudentID == studentID && record.TaskID == taskID {
				return *record, nil
			}
		}
	}
	return models.TaskSubmission{}, gorm.ErrRecordNotFound
}

func (r *fakeSubmissionRepo) Create(ctx context.Context, submission *models.TaskSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Mirrors the unique (task, student) index on the real table.
	for _, record := range r.records {
		if record.TaskID == submission.TaskID && record.StudentID == submission.StudentID {
			return gorm.ErrDuplicatedKey
		}
	}

	submission.ID = r.nextID
	r.nextID++
	submission.CreatedAt = time.Now()
	submission.UpdatedAt = submission.CreatedAt
	clone := *submission
	r.records[submission.ID] = &clone
	return nil
}

// UpdateWhereStatus mirrors the conditional update semantics of the real
// repository: the patch only applies while the stored status still matches.
func (r *fakeSubmissionRepo) UpdateWhereStatus(ctx context.Context, id uint, expected lifecycle.Status, patch map[string]interface{}) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok || record.Status != string(expected) {
		return 0, nil
	}

	applySubmissionPatch(record, patch)
	return 1, nil
}

func applySubmissionPatch(record *models.TaskSubmission, patch map[string]interface{}) {
	for key, value := range patch {
		switch key {
		case "status":
			record.Status = value.(string)
		case "feedback":
			record.Feedback = value.(string)
		case "answer_text":
			record.AnswerText = value.(string)
		case "artifact_url":
			record.ArtifactURL = value.(string)
		case "reviewed_by":
			if value == nil {
				record.ReviewedBy = nil
			} else {
				id := value.(uint)
				record.ReviewedBy = &id
			}
		case "reviewed_at":
			if value == nil {
				record.ReviewedAt = nil
			} else {
				at := value.(time.Time)
				record.ReviewedAt = &at
			}
		case "updated_at":
			record.UpdatedAt = value.(time.Time)
		}
	}
}

type fakeTaskRepo struct {
	tasks map[uint]models.Task
}

func (r *fakeTaskRepo) List(ctx context.Context, filter repository.TaskFilter) ([]models.Task, int64, error) {
	var result []models.Task
	for _, task := range r.tasks {
		result = append(result, task)
	}
	return result, int64(len(result)), nil
}

func (r *fakeTaskRepo) GetByID(ctx context.Context, id uint) (models.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return models.Task{}, gorm.ErrRecordNotFound
	}
	return task, nil
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *models.Task) error {
	if task.ID == 0 {
		task.ID = uint(len(r.tasks) + 1)
	}
	r.tasks[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) Update(ctx context.Context, task *models.Task) error {
	r.tasks[task.ID] = *task
	return nil
}

func (r *fakeTaskRepo) Delete(ctx context.Context, id uint) error {
	delete(r.tasks, id)
	return nil
}

type recordedNotification struct {
	StudentID uint
	Kind      string
	Status    lifecycle.Status
	Feedback  string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []recordedNotification
}

func (n *fakeNotifier) NotifyReview(ctx context.Context, studentID uint, kind string, status lifecycle.Status, feedback string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, recordedNotification{studentID, kind, status, feedback})
}

type fakeActivity struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (a *fakeActivity) Record(ctx context.Context, entry ActivityEntry) (models.ActivityLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return models.ActivityLog{}, nil
}

type submissionFixture struct {
	service     SubmissionService
	submissions *fakeSubmissionRepo
	tasks       *fakeTaskRepo
	notifier    *fakeNotifier
	activity    *fakeActivity
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()

	submissions := newFakeSubmissionRepo()
	tasks := &fakeTaskRepo{tasks: map[uint]models.Task{
		1: {ID: 1, Title: "HTTP basics", DueDate: time.Now().Add(24 * time.Hour), CreatedBy: 99},
	}}
	notifier := &fakeNotifier{}
	activity := &fakeActivity{}

	validate := validator.New(validator.WithRequiredStructEnabled())
	svc := NewSubmissionService(submissions, tasks, validate, nil, notifier, activity, zerolog.Nop())

	return &submissionFixture{
		service:     svc,
		submissions: submissions,
		tasks:       tasks,
		notifier:    notifier,
		activity:    activity,
	}
}

var (
	studentActor      = lifecycle.Actor{ID: 10, Role: lifecycle.RoleStudent}
	otherStudentActor = lifecycle.Actor{ID: 11, Role: lifecycle.RoleStudent}
	adminActor        = lifecycle.Actor{ID: 1, Role: lifecycle.RoleAdmin}
)

func TestSubmitCreatesPendingSubmission(t *testing.T) {
	f := newSubmissionFixture(t)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "my answer"}, nil)
	require.NoError(t, err)
	require.Equal(t, "pending", created.Status)
	require.Empty(t, created.Feedback)
	require.Nil(t, created.ReviewedBy)
	require.Nil(t, created.ReviewedAt)
}

func TestSubmitRequiresContent(t *testing.T) {
	f := newSubmissionFixture(t)

	_, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "   "}, nil)
	require.ErrorIs(t, err, lifecycle.ErrInvalidContent)
}

func TestSubmitDeniedForAdmin(t *testing.T) {
	f := newSubmissionFixture(t)

	_, err := f.service.Submit(context.Background(), adminActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "answer"}, nil)
	require.ErrorIs(t, err, lifecycle.ErrForbidden)
}

func TestSubmitBlockedWhilePending(t *testing.T) {
	f := newSubmissionFixture(t)

	_, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "first"}, nil)
	require.NoError(t, err)

	_, err = f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "second"}, nil)
	require.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
}

func TestSubmitConcurrentFirstAttemptLoserGetsConflict(t *testing.T) {
	f := newSubmissionFixture(t)

	_, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "first"}, nil)
	require.NoError(t, err)

	// The second submit reads before the first commit is visible, so the
	// duplicate only surfaces at insert time through the unique index.
	f.submissions.staleActiveLookup = true
	_, err = f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "raced"}, nil)
	require.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	f.submissions.staleActiveLookup = false
	mine, err := f.service.List(context.Background(), studentActor, dto.TaskSubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "first", mine[0].AnswerText)
}

func TestSubmitPastDueBlocksFirstAttemptOnly(t *testing.T) {
	f := newSubmissionFixture(t)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "on time"}, nil)
	require.NoError(t, err)

	_, err = f.service.Review(context.Background(), adminActor, created.ID, dto.ReviewRequest{Verdict: "reject", Feedback: "redo it"})
	require.NoError(t, err)

	// Push the deadline into the past; the rejected record must stay open
	// for resubmission while a fresh attempt by someone else is refused.
	task := f.tasks.tasks[1]
	task.DueDate = time.Now().Add(-time.Hour)
	f.tasks.tasks[1] = task

	resubmitted, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "after deadline"}, nil)
	require.NoError(t, err)
	require.Equal(t, created.ID, resubmitted.ID)

	_, err = f.service.Submit(context.Background(), otherStudentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "late"}, nil)
	require.ErrorIs(t, err, ErrTaskPastDue)
}

func TestReviewAcceptIsTerminal(t *testing.T) {
	f := newSubmissionFixture(t)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "answer"}, nil)
	require.NoError(t, err)

	accepted, err := f.service.Review(context.Background(), adminActor, created.ID, dto.ReviewRequest{Verdict: "accept"})
	require.NoError(t, err)
	require.Equal(t, "accepted", accepted.Status)
	require.Empty(t, accepted.Feedback)
	require.NotNil(t, accepted.ReviewedBy)
	require.Equal(t, adminActor.ID, *accepted.ReviewedBy)
	require.NotNil(t, accepted.ReviewedAt)

	// No transition leaves accepted.
	_, err = f.service.Review(context.Background(), adminActor, created.ID, dto.ReviewRequest{Verdict: "reject", Feedback: "too late"})
	require.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	_, err = f.service.Resubmit(context.Background(), studentActor, created.ID, dto.SubmissionContent{AnswerText: "again"}, nil)
	require.ErrorIs(t, err, lifecycle.ErrInvalidTransition)

	require.Len(t, f.notifier.calls, 1)
	require.Equal(t, lifecycle.StatusAccepted, f.notifier.calls[0].Status)
	require.Len(t, f.activity.entries, 1)
	require.Equal(t, "submission.reviewed", f.activity.entries[0].Action)
}

func TestReviewRejectRequiresFeedback(t *testing.T) {
	f := newSubmissionFixture(t)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "answer"}, nil)
	require.NoError(t, err)

	_, err = f.service.Review(context.Background(), adminActor, created.ID, dto.ReviewRequest{Verdict: "reject", Feedback: "   "})
	require.ErrorIs(t, err, lifecycle.ErrMissingFeedback)

	rejected, err := f.service.Review(context.Background(), adminActor, created.ID, dto.ReviewRequest{Verdict: "reject", Feedback: "cover edge cases"})
	require.NoError(t, err)
	require.Equal(t, "rejected", rejected.Status)
	require.Equal(t, "cover edge cases", rejected.Feedback)

	require.Len(t, f.notifier.calls, 1)
	require.Equal(t, "cover edge cases", f.notifier.calls[0].Feedback)
}

func TestReviewPendingNeverCarriesFeedback(t *testing.T) {
	f := newSubmissionFixture(t)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "answer"}, nil)
	require.NoError(t, err)

	// Accept with stray feedback text: the verdict wins, feedback is not stored.
	accepted, err := f.service.Review(context.Background(), adminActor, created.ID, dto.ReviewRequest{Verdict: "accept", Feedback: "nice"})
	require.NoError(t, err)
	require.Empty(t, accepted.Feedback)
}

func TestResubmitClearsFeedbackAndReplacesContent(t *testing.T) {
	f := newSubmissionFixture(t)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "first try"}, nil)
	require.NoError(t, err)

	_, err = f.service.Review(context.Background(), adminActor, created.ID, dto.ReviewRequest{Verdict: "reject", Feedback: "wrong approach"})
	require.NoError(t, err)

	resubmitted, err := f.service.Resubmit(context.Background(), studentActor, created.ID, dto.SubmissionContent{AnswerText: "second try"}, nil)
	require.NoError(t, err)
	require.Equal(t, created.ID, resubmitted.ID)
	require.Equal(t, "pending", resubmitted.Status)
	require.Equal(t, "second try", resubmitted.AnswerText)
	require.Empty(t, resubmitted.Feedback)
	require.Nil(t, resubmitted.ReviewedBy)
	require.Nil(t, resubmitted.ReviewedAt)
}

func TestSubmitOverRejectedReusesRecord(t *testing.T) {
	f := newSubmissionFixture(t)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "first"}, nil)
	require.NoError(t, err)

	_, err = f.service.Review(context.Background(), adminActor, created.ID, dto.ReviewRequest{Verdict: "reject", Feedback: "redo"})
	require.NoError(t, err)

	again, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "fixed"}, nil)
	require.NoError(t, err)
	require.Equal(t, created.ID, again.ID)
	require.Equal(t, "pending", again.Status)
	require.Empty(t, again.Feedback)
}

func TestResubmitRequiresContent(t *testing.T) {
	f := newSubmissionFixture(t)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "first"}, nil)
	require.NoError(t, err)

	_, err = f.service.Review(context.Background(), adminActor, created.ID, dto.ReviewRequest{Verdict: "reject", Feedback: "redo"})
	require.NoError(t, err)

	_, err = f.service.Resubmit(context.Background(), studentActor, created.ID, dto.SubmissionContent{AnswerText: ""}, nil)
	require.ErrorIs(t, err, lifecycle.ErrInvalidContent)
}

func TestConcurrentReviewsExactlyOneWins(t *testing.T) {
	f := newSubmissionFixture(t)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "answer"}, nil)
	require.NoError(t, err)

	verdicts := []dto.ReviewRequest{
		{Verdict: "accept"},
		{Verdict: "reject", Feedback: "not good enough"},
	}

	var wg sync.WaitGroup
	results := make([]error, len(verdicts))
	for i, verdict := range verdicts {
		wg.Add(1)
		go func(i int, verdict dto.ReviewRequest) {
			defer wg.Done()
			_, results[i] = f.service.Review(context.Background(), adminActor, created.ID, verdict)
		}(i, verdict)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, lifecycle.ErrInvalidTransition):
			conflicts++
		default:
			t.Fatalf("unexpected review error: %v", err)
		}
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, conflicts)

	final, err := f.service.Get(context.Background(), adminActor, created.ID)
	require.NoError(t, err)
	require.Contains(t, []string{"accepted", "rejected"}, final.Status)
}

func TestReviewDeniedForStudentBeforeLookup(t *testing.T) {
	f := newSubmissionFixture(t)

	// A denial on a missing record must be indistinguishable from a denial
	// on an existing one.
	_, err := f.service.Review(context.Background(), studentActor, 9999, dto.ReviewRequest{Verdict: "accept"})
	require.ErrorIs(t, err, lifecycle.ErrForbidden)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "answer"}, nil)
	require.NoError(t, err)

	_, err = f.service.Review(context.Background(), studentActor, created.ID, dto.ReviewRequest{Verdict: "accept"})
	require.ErrorIs(t, err, lifecycle.ErrForbidden)
}

func TestResubmitDeniedForNonOwner(t *testing.T) {
	f := newSubmissionFixture(t)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "answer"}, nil)
	require.NoError(t, err)

	_, err = f.service.Review(context.Background(), adminActor, created.ID, dto.ReviewRequest{Verdict: "reject", Feedback: "redo"})
	require.NoError(t, err)

	_, err = f.service.Resubmit(context.Background(), otherStudentActor, created.ID, dto.SubmissionContent{AnswerText: "mine now"}, nil)
	require.ErrorIs(t, err, lifecycle.ErrForbidden)
}

func TestGetDeniedForNonOwner(t *testing.T) {
	f := newSubmissionFixture(t)

	created, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "answer"}, nil)
	require.NoError(t, err)

	_, err = f.service.Get(context.Background(), otherStudentActor, created.ID)
	require.ErrorIs(t, err, lifecycle.ErrForbidden)

	mine, err := f.service.Get(context.Background(), studentActor, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, mine.ID)
}

func TestListScopesStudentsToOwnSubmissions(t *testing.T) {
	f := newSubmissionFixture(t)

	_, err := f.service.Submit(context.Background(), studentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "a"}, nil)
	require.NoError(t, err)
	_, err = f.service.Submit(context.Background(), otherStudentActor, dto.SubmitTaskRequest{TaskID: 1, AnswerText: "b"}, nil)
	require.NoError(t, err)

	mine, err := f.service.List(context.Background(), studentActor, dto.TaskSubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, studentActor.ID, mine[0].StudentID)

	all, err := f.service.List(context.Background(), adminActor, dto.TaskSubmissionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}
