package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/apexti/apex-go-api/internal/config"
	"github.com/apexti/apex-go-api/internal/handler"
	"github.com/apexti/apex-go-api/internal/middleware"
	"github.com/apexti/apex-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	TaskHandler          *handler.TaskHandler
	SubmissionHandler    *handler.SubmissionHandler
	ProjectHandler       *handler.ProjectHandler
	AttendanceHandler    *handler.AttendanceHandler
	ChatHandler          *handler.ChatHandler
	AssistantHandler     *handler.AssistantHandler
	NotificationHandler  *handler.NotificationHandler
	AdminActivityHandler *handler.AdminActivityHandler
	UserHandler          *handler.UserHandler
	JWTMiddleware        fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Task catalogue: listing is shared, mutations are admin-only.
	if deps.TaskHandler != nil {
		tasks := api.Group("/tasks", jwtMiddleware)
		deps.TaskHandler.Register(tasks)

		adminTasks := api.Group("/admin/tasks", jwtMiddleware, middleware.RequireRole("admin"))
		deps.TaskHandler.RegisterAdmin(adminTasks)
	}

	// Task submissions: students submit and resubmit, admins review.
	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.Register(submissions)

		adminSubmissions := api.Group("/admin/submissions", jwtMiddleware, middleware.RequireRole("admin"))
		deps.SubmissionHandler.RegisterReview(adminSubmissions)
	}

	// Final project slot.
	if deps.ProjectHandler != nil {
		projects := api.Group("/projects", jwtMiddleware)
		deps.ProjectHandler.Register(projects)

		adminProjects := api.Group("/admin/projects", jwtMiddleware, middleware.RequireRole("admin"))
		deps.ProjectHandler.RegisterAdmin(adminProjects)
	}

	if deps.AttendanceHandler != nil {
		attendance := api.Group("/attendance", jwtMiddleware)
		deps.AttendanceHandler.Register(attendance)
	}

	if deps.ChatHandler != nil {
		chat := api.Group("/chat", jwtMiddleware)
		deps.ChatHandler.Register(chat)
	}

	if deps.AssistantHandler != nil {
		assistant := api.Group("/assistant", jwtMiddleware,
			middleware.RateLimit("assistant", 10, time.Minute))
		deps.AssistantHandler.Register(assistant)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.AdminActivityHandler != nil {
		adminActivity := api.Group("/admin/activity", jwtMiddleware, middleware.RequireRole("admin"))
		deps.AdminActivityHandler.Register(adminActivity)
	}

	if deps.UserHandler != nil {
		users := api.Group("/users", jwtMiddleware)
		deps.UserHandler.Register(users)

		adminStudents := api.Group("/admin/students", jwtMiddleware, middleware.RequireRole("admin"))
		deps.UserHandler.RegisterAdmin(adminStudents)
	}
}
