package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/lifecycle"
	"github.com/apexti/apex-go-api/internal/models"
)

func newTaskFixture(t *testing.T) (TaskService, *fakeTaskRepo) {
	t.Helper()

	repo := &fakeTaskRepo{tasks: map[uint]models.Task{}}
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewTaskService(repo, validate, nil, zerolog.Nop()), repo
}

func TestTaskCreateAdminOnly(t *testing.T) {
	svc, repo := newTaskFixture(t)
	due := time.Now().Add(72 * time.Hour)

	_, err := svc.Create(context.Background(), studentActor, dto.TaskCreateRequest{Title: "Week 1", DueDate: due}, nil)
	require.ErrorIs(t, err, lifecycle.ErrForbidden)
	require.Empty(t, repo.tasks)

	created, err := svc.Create(context.Background(), adminActor, dto.TaskCreateRequest{Title: "  Week 1  ", DueDate: due}, nil)
	require.NoError(t, err)
	require.Equal(t, "Week 1", created.Title)
	require.Equal(t, adminActor.ID, created.CreatedBy)
	require.Len(t, repo.tasks, 1)
}

func TestTaskCreateRequiresTitleAndDueDate(t *testing.T) {
	svc, _ := newTaskFixture(t)

	_, err := svc.Create(context.Background(), adminActor, dto.TaskCreateRequest{Title: "No deadline"}, nil)
	require.Error(t, err)

	_, err = svc.Create(context.Background(), adminActor, dto.TaskCreateRequest{DueDate: time.Now()}, nil)
	require.Error(t, err)
}

func TestTaskUpdateAppliesPartialPatch(t *testing.T) {
	svc, _ := newTaskFixture(t)
	due := time.Now().Add(24 * time.Hour)

	created, err := svc.Create(context.Background(), adminActor, dto.TaskCreateRequest{Title: "Week 2", Description: "initial", DueDate: due}, nil)
	require.NoError(t, err)

	newTitle := "Week 2 (revised)"
	updated, err := svc.Update(context.Background(), adminActor, created.ID, dto.TaskUpdateRequest{Title: &newTitle})
	require.NoError(t, err)
	require.Equal(t, newTitle, updated.Title)
	require.Equal(t, "initial", updated.Description)
}

func TestTaskUpdateUnknownTask(t *testing.T) {
	svc, _ := newTaskFixture(t)

	title := "ghost"
	_, err := svc.Update(context.Background(), adminActor, 404, dto.TaskUpdateRequest{Title: &title})
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskDeleteAdminOnly(t *testing.T) {
	svc, repo := newTaskFixture(t)

	created, err := svc.Create(context.Background(), adminActor, dto.TaskCreateRequest{Title: "Week 3", DueDate: time.Now().Add(time.Hour)}, nil)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(context.Background(), studentActor, created.ID), lifecycle.ErrForbidden)
	require.NoError(t, svc.Delete(context.Background(), adminActor, created.ID))
	require.Empty(t, repo.tasks)
	require.ErrorIs(t, svc.Delete(context.Background(), adminActor, created.ID), ErrTaskNotFound)
}

func TestTaskListReportsTotal(t *testing.T) {
	svc, _ := newTaskFixture(t)

	for _, title := range []string{"Week 1", "Week 2", "Week 3"} {
		_, err := svc.Create(context.Background(), adminActor, dto.TaskCreateRequest{Title: title, DueDate: time.Now().Add(time.Hour)}, nil)
		require.NoError(t, err)
	}

	listing, err := svc.List(context.Background(), dto.TaskListQuery{})
	require.NoError(t, err)
	require.Equal(t, int64(3), listing.Total)
	require.Len(t, listing.Items, 3)
}
