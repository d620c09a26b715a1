package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/pageza/recipe-app-api/backend/config"
	"github.com/pageza/recipe-app-api/backend/internal/api"
	"github.com/pageza/recipe-app-api/backend/internal/authz"
	"github.com/pageza/recipe-app-api/backend/internal/database"
	"github.com/pageza/recipe-app-api/backend/internal/events"
	"github.com/pageza/recipe-app-api/backend/internal/logging"
	"github.com/pageza/recipe-app-api/backend/internal/middleware"
	"github.com/pageza/recipe-app-api/backend/internal/router"
	"github.com/pageza/recipe-app-api/backend/internal/server"
	"github.com/pageza/recipe-app-api/backend/internal/service"
	"github.com/pageza/recipe-app-api/backend/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.Env, cfg.Log)
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close(db)

	if err := database.RunMigrations(db, cfg.MigrationsDir, log); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	// Redis backs token revocation and rate limiting; without it both fall
	// back to per-process state.
	redisClient, err := database.NewRedisClient(cfg, log)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, using in-memory token store and rate limits")
	} else {
		defer redisClient.Close()
	}

	store, err := newStorage(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialise image storage")
	}

	publisher := newPublisher(cfg, log)
	defer publisher.Close()

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		log.WithError(err).Fatal("failed to load authorization policy")
	}

	r := setupRouter(cfg, log, db, redisClient, store, publisher, enforcer)
	srv := server.New(cfg, r, log)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			log.WithError(err).Fatal("server error")
		}
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("received signal")
	}

	log.Info("shutting down server")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.WithError(err).Error("server shutdown error")
	}
	log.Info("server stopped")
}

func setupRouter(cfg *config.Config, log *logrus.Logger, db *gorm.DB, redisClient *redis.Client,
	store storage.Storage, publisher events.Publisher, enforcer *authz.Enforcer) *gin.Engine {
	var (
		tokens        service.TokenStore
		tokenLimiter  middleware.Limiter
		uploadLimiter middleware.Limiter
	)
	tokenLimits := middleware.RateLimitConfig{Window: cfg.RateLimit.Window, Limit: cfg.RateLimit.TokenRequests}
	uploadLimits := middleware.RateLimitConfig{Window: cfg.RateLimit.Window, Limit: cfg.RateLimit.UploadRequests}
	if redisClient != nil {
		tokens = service.NewRedisTokenStore(redisClient)
		tokenLimiter = middleware.NewRedisLimiter(redisClient, tokenLimits)
		uploadLimiter = middleware.NewRedisLimiter(redisClient, uploadLimits)
	} else {
		tokens = service.NewMemoryTokenStore()
		tokenLimiter = middleware.NewMemoryLimiter(tokenLimits)
		uploadLimiter = middleware.NewMemoryLimiter(uploadLimits)
	}

	images := service.NewImageService(store, cfg.Storage.MaxUploadBytes, cfg.Storage.MaxImageDimension)
	authService := service.NewAuthService(db, cfg.JWTSecret, cfg.JWTTTL, tokens)
	profileService := service.NewProfileService(db)

	opts := router.Options{
		Log:            log,
		CORSOrigins:    cfg.CORSOrigins,
		TrustedProxies: cfg.TrustedProxies,
		Tokens:         authService,
		Users:          profileService,
		Authorizer:     enforcer,
		TokenLimiter:   tokenLimiter,
		UploadLimiter:  uploadLimiter,
	}
	if local, ok := store.(*storage.LocalStorage); ok {
		opts.MediaURL = cfg.Storage.MediaURL
		opts.MediaRoot = local.Root()
	}

	return router.SetupRouter(router.Handlers{
		Auth:       api.NewAuthHandler(authService),
		Profile:    api.NewProfileHandler(profileService),
		Recipe:     api.NewRecipeHandler(service.NewRecipeService(db, images, publisher, log), images, cfg.Storage.MaxUploadBytes),
		Tag:        api.NewAttributeHandler(service.NewTagService(db)),
		Ingredient: api.NewAttributeHandler(service.NewIngredientService(db)),
		Admin:      api.NewAdminHandler(service.NewAdminService(db, images, log)),
		Health:     api.NewHealthHandler(db, log),
	}, opts)
}

func newStorage(cfg *config.Config, log *logrus.Logger) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "s3":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		s3Cfg, err := config.NewS3Config(ctx, cfg.Storage)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.S3PublicRead {
			if err := s3Cfg.SetupBucketPolicy(ctx); err != nil {
				log.WithError(err).Warn("failed to apply public read bucket policy")
			}
		}
		log.WithField("bucket", s3Cfg.BucketName).Info("storing images in s3")
		return storage.NewS3Storage(s3Cfg, cfg.Storage.S3Presign), nil
	default:
		log.WithField("root", cfg.Storage.MediaRoot).Info("storing images on local disk")
		return storage.NewLocalStorage(cfg.Storage.MediaRoot, cfg.Storage.BaseURL, cfg.Storage.MediaURL)
	}
}

func newPublisher(cfg *config.Config, log *logrus.Logger) events.Publisher {
	if cfg.RabbitMQ.URL == "" {
		return events.NopPublisher{}
	}
	log.WithField("queue", cfg.RabbitMQ.Queue).Info("publishing recipe events to rabbitmq")
	return events.NewAMQPPublisher(events.DialAMQP(cfg.RabbitMQ.URL), cfg.RabbitMQ.Queue, events.DefaultBreakerConfig(), log)
}
