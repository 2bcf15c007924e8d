package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/mentora-api/internal/civiltime"
	"github.com/noah-isme/mentora-api/internal/config"
	"github.com/noah-isme/mentora-api/internal/database"
	"github.com/noah-isme/mentora-api/internal/handler"
	"github.com/noah-isme/mentora-api/internal/middleware"
	"github.com/noah-isme/mentora-api/internal/observability"
	"github.com/noah-isme/mentora-api/internal/repository"
	"github.com/noah-isme/mentora-api/internal/router"
	"github.com/noah-isme/mentora-api/internal/scheduler"
	"github.com/noah-isme/mentora-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	observability.RegisterMetrics()

	zone, err := civiltime.NewZone(cfg.CivilTimezone, nil)
	if err != nil {
		log.Fatalf("failed to load civil timezone: %v", err)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL, logger)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, notifications stay local")
		} else {
			defer natsConn.Close()
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	engagementRepo := repository.NewEngagementRepository(db)
	itemRepo := repository.NewScheduleItemRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	enrollmentRepo := repository.NewCourseEnrollmentRepository(db)
	curriculumRepo := repository.NewCurriculumRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	generator := service.NewScheduleGenerator(itemRepo, curriculumRepo, activityService, zone, logger)
	reconciler := service.NewScheduleReconciler(engagementRepo, itemRepo, zone, cfg.MeetingDuration, logger)
	evaluator := service.NewEngagementStatusEvaluator(engagementRepo, itemRepo, paymentRepo, activityService, zone, logger)
	courseService := service.NewCourseStatusService(engagementRepo, itemRepo, paymentRepo, enrollmentRepo, redisClient, cfg.CourseStatusCacheTTL, zone, logger)
	notificationService := service.NewNotificationService(notificationRepo, redisClient, cfg.EventsChannel, natsConn, logger)
	reminderService := service.NewReminderService(engagementRepo, itemRepo, notificationService, zone, cfg.ReminderLeadTime, logger)
	curriculumService := service.NewCurriculumService(curriculumRepo, validate, logger)

	engagementService := service.NewEngagementService(service.EngagementServiceDeps{
		Engagements: engagementRepo,
		Items:       itemRepo,
		Reconciler:  reconciler,
		Evaluator:   evaluator,
		Courses:     courseService,
		Visibility:  service.NewVisibilityFilter(zone, cfg.DashboardLeadTime),
		Activity:    activityService,
		Validator:   validate,
		Zone:        zone,
	}, logger)

	paymentService := service.NewPaymentService(service.PaymentServiceDeps{
		Payments:    paymentRepo,
		Engagements: engagementRepo,
		Gateway:     service.NewAlwaysSucceedGateway(logger),
		Generator:   generator,
		Evaluator:   evaluator,
		Courses:     courseService,
		Activity:    activityService,
		Validator:   validate,
		Zone:        zone,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notificationService.Start(ctx)

	sched := scheduler.New(scheduler.Deps{
		Engagements: engagementRepo,
		Items:       itemRepo,
		Reconciler:  reconciler,
		Evaluator:   evaluator,
		Courses:     courseService,
		Reminders:   reminderService,
		Zone:        zone,
	}, scheduler.Config{
		ReconcileInterval: cfg.ReconcileInterval,
		ReminderInterval:  cfg.ReminderInterval,
		BoundaryInterval:  cfg.BoundaryInterval,
		MeetingDuration:   cfg.MeetingDuration,
	}, logger)
	if cfg.SchedulerEnabled {
		if err := sched.Start(ctx); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	engagementHandler := handler.NewEngagementHandler(engagementService, logger).
		WithCompletionLimiter(middleware.RateLimit("schedule_complete", cfg.ActionRateLimitMax, cfg.RateLimitWindow))
	paymentHandler := handler.NewPaymentHandler(paymentService, cfg.DefaultPaymentAmount, logger).
		WithConfirmLimiter(middleware.RateLimit("payment_confirm", cfg.ActionRateLimitMax, cfg.RateLimitWindow))

	middleware.Register(app, middleware.Config{Logger: logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		EngagementHandler:   engagementHandler,
		PaymentHandler:      paymentHandler,
		CourseHandler:       handler.NewCourseHandler(courseService, validate, logger),
		CurriculumHandler:   handler.NewCurriculumHandler(curriculumService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, 30*time.Second),
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		RateLimiter:         middleware.RateLimit("api", cfg.RateLimitMax, cfg.RateLimitWindow),
		Zone:                zone,
		HealthChecks:        healthChecks(db, redisClient),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, sched)
}

func healthChecks(db *gorm.DB, redisClient *redis.Client) []handler.HealthDependency {
	checks := []handler.HealthDependency{{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}}
	if redisClient != nil {
		checks = append(checks, handler.HealthDependency{
			Name:  "redis",
			Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	return checks
}

func waitForShutdown(app *fiber.App, sched *scheduler.Scheduler) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	sched.Stop()

	log.Println("server stopped")
}
