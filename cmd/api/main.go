package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/apexti/apex-go-api/internal/config"
	"github.com/apexti/apex-go-api/internal/database"
	"github.com/apexti/apex-go-api/internal/handler"
	"github.com/apexti/apex-go-api/internal/middleware"
	"github.com/apexti/apex-go-api/internal/models"
	"github.com/apexti/apex-go-api/internal/repository"
	"github.com/apexti/apex-go-api/internal/router"
	"github.com/apexti/apex-go-api/internal/service"
	"github.com/apexti/apex-go-api/pkg/ai"
	cloud "github.com/apexti/apex-go-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskSubmission{},
		&models.ProjectSubmission{},
		&models.AttendanceRecord{},
		&models.ChatMessage{},
		&models.Notification{},
		&models.ActivityLog{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create cloudinary client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	taskRepo := repository.NewTaskRepository(db)
	submissionRepo := repository.NewTaskSubmissionRepository(db)
	projectRepo := repository.NewProjectSubmissionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	userRepo := repository.NewUserRepository(db)

	runCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	activityService := service.NewActivityService(activityRepo, validate, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.ChannelBase, validate, logger)
	notificationService.Start(runCtx)

	taskService := service.NewTaskService(taskRepo, validate, uploader, logger)
	submissionService := service.NewSubmissionService(submissionRepo, taskRepo, validate, uploader, notificationService, activityService, logger)
	projectService := service.NewProjectService(projectRepo, validate, uploader, notificationService, activityService, logger)
	attendanceService := service.NewAttendanceService(attendanceRepo, validate, logger)
	userService := service.NewUserService(userRepo, logger)

	chatService := service.NewChatService(chatRepo, redisClient, cfg.ChannelBase, natsConn, validate, logger)
	chatService.Start(runCtx)

	assistantService := service.NewAssistantService(buildResponder(cfg, logger), taskRepo, submissionRepo, validate, logger)

	taskHandler := handler.NewTaskHandler(taskService, validate, logger)
	submissionHandler := handler.NewSubmissionHandler(submissionService, validate, logger)
	projectHandler := handler.NewProjectHandler(projectService, validate, logger)
	attendanceHandler := handler.NewAttendanceHandler(attendanceService, validate, logger)
	chatHandler := handler.NewChatHandler(chatService, validate, logger)
	assistantHandler := handler.NewAssistantHandler(assistantService, validate, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger, 30*time.Second)
	adminActivityHandler := handler.NewAdminActivityHandler(activityService, validate, logger)
	userHandler := handler.NewUserHandler(userService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		TaskHandler:          taskHandler,
		SubmissionHandler:    submissionHandler,
		ProjectHandler:       projectHandler,
		AttendanceHandler:    attendanceHandler,
		ChatHandler:          chatHandler,
		AssistantHandler:     assistantHandler,
		NotificationHandler:  notificationHandler,
		AdminActivityHandler: adminActivityHandler,
		UserHandler:          userHandler,
		JWTMiddleware:        middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopConsumers)
}

func buildResponder(cfg config.Config, logger zerolog.Logger) ai.Responder {
	switch cfg.AIProvider {
	case "anthropic":
		responder, err := ai.NewAnthropicResponder(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey, Model: cfg.AIModel})
		if err != nil {
			logger.Warn().Err(err).Msg("assistant disabled")
			return nil
		}
		return responder
	default:
		responder, err := ai.NewOpenAIResponder(ai.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.AIModel, Logger: logger})
		if err != nil {
			logger.Warn().Err(err).Msg("assistant disabled")
			return nil
		}
		return responder
	}
}

func waitForShutdown(app *fiber.App, stopConsumers context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	stopConsumers()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
