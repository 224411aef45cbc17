package contract_test

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/apexti/apex-go-api/internal/dto"
	"github.com/apexti/apex-go-api/internal/handler"
	"github.com/apexti/apex-go-api/internal/lifecycle"
)

type stubSubmissionService struct {
	pending  dto.TaskSubmissionResponse
	rejected dto.TaskSubmissionResponse
}

func (s stubSubmissionService) List(context.Context, lifecycle.Actor, dto.TaskSubmissionFilter) ([]dto.TaskSubmissionResponse, error) {
	return []dto.TaskSubmissionResponse{s.pending}, nil
}

func (s stubSubmissionService) Get(context.Context, lifecycle.Actor, uint) (dto.TaskSubmissionResponse, error) {
	return s.pending, nil
}

func (s stubSubmissionService) Submit(context.Context, lifecycle.Actor, dto.SubmitTaskRequest, *multipart.FileHeader) (dto.TaskSubmissionResponse, error) {
	return s.pending, nil
}

func (s stubSubmissionService) Review(context.Context, lifecycle.Actor, uint, dto.ReviewRequest) (dto.TaskSubmissionResponse, error) {
	return s.rejected, nil
}

func (s stubSubmissionService) Resubmit(context.Context, lifecycle.Actor, uint, dto.SubmissionContent, *multipart.FileHeader) (dto.TaskSubmissionResponse, error) {
	return s.pending, nil
}

func loadSubmissionSchema(t *testing.T) *jsonschema.Schema {
	t.Helper()

	schemaPath, err := filepath.Abs(filepath.Join("..", "contracts", "task_submission.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)
	return schema
}

func submissionContractApp(svc stubSubmissionService) *fiber.App {
	submissionHandler := handler.NewSubmissionHandler(svc, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())

	app := fiber.New()
	student := app.Group("/api/v1/submissions", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(7))
		c.Locals("user_role", "student")
		return c.Next()
	})
	submissionHandler.Register(student)

	admin := app.Group("/api/v1/admin/submissions", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(1))
		c.Locals("user_role", "admin")
		return c.Next()
	})
	submissionHandler.RegisterReview(admin)

	return app
}

func TestSubmissionResponseContract(t *testing.T) {
	schema := loadSubmissionSchema(t)
	now := time.Now().UTC()
	reviewer := uint(1)

	svc := stubSubmissionService{
		pending: dto.TaskSubmissionResponse{
			ID:         12,
			TaskID:     3,
			StudentID:  7,
			AnswerText: "my answer",
			Status:     "pending",
			CreatedAt:  now,
			UpdatedAt:  now,
			Task:       dto.TaskLite{ID: 3, Title: "Week 3 assignment", DueDate: now.Add(48 * time.Hour)},
			Student:    dto.UserLite{ID: 7, Name: "Dewi", Email: "dewi@example.com"},
		},
		rejected: dto.TaskSubmissionResponse{
			ID:         12,
			TaskID:     3,
			StudentID:  7,
			AnswerText: "my answer",
			Status:     "rejected",
			Feedback:   "please include the report",
			ReviewedBy: &reviewer,
			ReviewedAt: &now,
			CreatedAt:  now,
			UpdatedAt:  now,
			Task:       dto.TaskLite{ID: 3, Title: "Week 3 assignment", DueDate: now.Add(48 * time.Hour)},
			Student:    dto.UserLite{ID: 7, Name: "Dewi", Email: "dewi@example.com"},
		},
	}

	app := submissionContractApp(svc)

	submitReq := httptest.NewRequest(http.MethodPost, "/api/v1/submissions", strings.NewReader("task_id=3&answer_text=my+answer"))
	submitReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	submitResp, err := app.Test(submitReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, submitResp.StatusCode)
	validateAgainst(t, schema, submitResp)

	reviewBody := strings.NewReader(`{"verdict":"reject","feedback":"please include the report"}`)
	reviewReq := httptest.NewRequest(http.MethodPost, "/api/v1/admin/submissions/12/review", reviewBody)
	reviewReq.Header.Set("Content-Type", "application/json")
	reviewResp, err := app.Test(reviewReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, reviewResp.StatusCode)
	validateAgainst(t, schema, reviewResp)
}

func validateAgainst(t *testing.T, schema *jsonschema.Schema, resp *http.Response) {
	t.Helper()

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.NoError(t, schema.Validate(payload))
}
