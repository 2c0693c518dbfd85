package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/eduwork-api/internal/config"
	"github.com/noah-isme/eduwork-api/internal/database"
	"github.com/noah-isme/eduwork-api/internal/events"
	"github.com/noah-isme/eduwork-api/internal/handler"
	"github.com/noah-isme/eduwork-api/internal/middleware"
	"github.com/noah-isme/eduwork-api/internal/repository"
	"github.com/noah-isme/eduwork-api/internal/router"
	"github.com/noah-isme/eduwork-api/internal/service"
	cloud "github.com/noah-isme/eduwork-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Close()
	}
	publisher := events.NewBusPublisher(natsConn, redisClient, cfg.EventSubjectPrefix, logger)

	var fileStore service.FileStore
	uploader, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	switch {
	case err == nil:
		fileStore = uploader
	case errors.Is(err, cloud.ErrMissingCredentials):
		logger.Warn().Msg("cloudinary not configured, file attachments disabled")
	default:
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	workRepo := repository.NewWorkRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	statisticsService := service.NewStatisticsService(evaluationRepo, groupRepo, enrollmentRepo, redisClient, cfg.StatisticsCacheTTL, logger)
	workService := service.NewWorkService(workRepo, groupRepo, assignmentRepo, submissionRepo, enrollmentRepo, validate, activityService, logger)
	groupService := service.NewGroupService(workRepo, groupRepo, submissionRepo, enrollmentRepo, validate, activityService, logger)
	distributionService := service.NewDistributionService(workRepo, assignmentRepo, groupRepo, submissionRepo, enrollmentRepo, validate, activityService, logger)
	submissionService := service.NewSubmissionService(
		workRepo, assignmentRepo, groupRepo, submissionRepo, validate,
		service.SubmissionPolicy{AllowLate: cfg.AllowLateSubmissions},
		publisher, activityService, logger,
	)
	evaluationService := service.NewEvaluationService(evaluationRepo, submissionRepo, validate, statisticsService, publisher, activityService, logger)
	seedService := service.NewSeedService(enrollmentRepo, validate, cfg.SeedEnabled, cfg.SeedToken, logger)

	var attachmentService service.AttachmentService
	var attachmentHandler *handler.AttachmentHandler
	if fileStore != nil {
		attachmentService = service.NewAttachmentService(fileStore, attachmentRepo, cfg.UploadMaxMB, logger)
		attachmentHandler = handler.NewAttachmentHandler(attachmentService, logger)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.AppEnv == "development",
	})
	router.Register(app, cfg, router.Dependencies{
		WorkHandler:         handler.NewWorkHandler(workService, logger),
		GroupHandler:        handler.NewGroupHandler(groupService, logger),
		DistributionHandler: handler.NewDistributionHandler(distributionService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, attachmentService, logger),
		EvaluationHandler:   handler.NewEvaluationHandler(evaluationService, logger),
		StatisticsHandler:   handler.NewStatisticsHandler(statisticsService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		AttachmentHandler:   attachmentHandler,
		SeedHandler:         handler.NewSeedHandler(seedService, logger),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		HealthProbes: []handler.HealthProbe{
			{Name: "postgres", Check: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			}},
			{Name: "redis", Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			}},
		},
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
