package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/medlink-api/internal/auth"
	"github.com/noah-isme/medlink-api/internal/config"
	"github.com/noah-isme/medlink-api/internal/database"
	"github.com/noah-isme/medlink-api/internal/events"
	"github.com/noah-isme/medlink-api/internal/handler"
	"github.com/noah-isme/medlink-api/internal/middleware"
	"github.com/noah-isme/medlink-api/internal/repository"
	"github.com/noah-isme/medlink-api/internal/router"
	"github.com/noah-isme/medlink-api/internal/service"
	"github.com/noah-isme/medlink-api/internal/validation"
	cloud "github.com/noah-isme/medlink-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if cfg.AppEnv != "production" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := database.Open(database.Options{
		URL:             cfg.DatabaseURL,
		SQLitePath:      cfg.SQLitePath,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
		SlowQuery:       cfg.DatabaseSlowQuery,
		Logger:          &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, chat cache and redis event fan-out disabled")
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger.Printf)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, events will not be published to nats")
		} else {
			defer natsConn.Drain()
		}
	}

	publisher := events.NewPublisher(natsConn, redisClient, cfg.EventsChannel, logger)

	var storage service.FileStorage
	if cfg.CloudinaryEnabled() {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		storage = uploader
	} else {
		logger.Info().Msg("cloudinary not configured, chat attachments disabled")
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.JWTTTL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token service")
	}
	passwords := auth.NewPasswordHasher(0)
	validate := validation.New()

	userRepo := repository.NewUserRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	clinicRepo := repository.NewClinicRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	responseRepo := repository.NewResponseRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	chatRepo := repository.NewChatRepository(db)

	authService := service.NewAuthService(userRepo, tokens, passwords, publisher, validate, logger)
	settingsService := service.NewSettingsService(userRepo, tokens, passwords, validate, logger)
	profileService := service.NewProfileService(userRepo, logger)
	adminService := service.NewAdminService(userRepo, adminRepo, publisher, validate, logger)
	clinicService := service.NewClinicService(clinicRepo, userRepo, validate, logger)
	orderService := service.NewOrderService(orderRepo, userRepo, clinicRepo, publisher, validate, logger)
	responseService := service.NewResponseService(responseRepo, orderRepo, publisher, validate, logger)
	reviewService := service.NewReviewService(service.ReviewDependencies{
		Reviews:   reviewRepo,
		Orders:    orderRepo,
		Responses: responseRepo,
		Users:     userRepo,
		Clinics:   clinicRepo,
	}, publisher, validate, logger)
	chatService := service.NewChatService(chatRepo, userRepo, redisClient, publisher, service.ChatOptions{
		Channel:  cfg.EventsChannel,
		CacheTTL: cfg.ChatCacheTTL,
	}, validate, logger)
	attachmentService := service.NewAttachmentService(storage, chatRepo, chatService, cfg.UploadMaxSizeMB, validate, logger)

	var limiterStorage fiber.Storage
	if redisClient != nil {
		limiterStorage = middleware.NewRedisStorage(redisClient, cfg.EventsChannel+":ratelimit:")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.AppEnv == "development",
		Compress:     cfg.AppEnv == "production",
	})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:           handler.NewAuthHandler(authService, logger),
		SettingsHandler:       handler.NewSettingsHandler(settingsService, logger),
		ProfileHandler:        handler.NewProfileHandler(profileService, logger),
		AdminHandler:          handler.NewAdminHandler(adminService, logger),
		ClinicHandler:         handler.NewClinicHandler(clinicService, logger),
		OrderHandler:          handler.NewOrderHandler(orderService, responseService, logger),
		ResponseHandler:       handler.NewResponseHandler(responseService, logger),
		ReviewHandler:         handler.NewReviewHandler(reviewService, logger),
		ChatHandler:           handler.NewChatHandler(chatService, attachmentService, logger),
		JWTMiddleware:         middleware.JWTProtected(tokens),
		OptionalJWTMiddleware: middleware.JWTOptional(tokens),
		AuthRateLimiter:       middleware.RateLimit("auth", cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow, limiterStorage),
		HealthProbes:          healthProbes(db, redisClient),
		MetricsGatherers:      poolMetrics(db, logger),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func healthProbes(db *gorm.DB, redisClient *redis.Client) []handler.HealthProbe {
	probes := []handler.HealthProbe{{
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
		probes = append(probes, handler.HealthProbe{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}
	return probes
}

func poolMetrics(db *gorm.DB, logger zerolog.Logger) []prometheus.Gatherer {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn().Err(err).Msg("database pool metrics unavailable")
		return nil
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewDBStatsCollector(sqlDB, "medlink"))
	return []prometheus.Gatherer{registry}
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
