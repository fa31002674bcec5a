// Command server runs the event-management HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/yaksh9737/event-manager/internal/di"
	"github.com/yaksh9737/event-manager/internal/repository"
	"github.com/yaksh9737/event-manager/internal/upload"
	"github.com/yaksh9737/event-manager/pkg/config"
	"github.com/yaksh9737/event-manager/pkg/database"
	"github.com/yaksh9737/event-manager/pkg/logger"
	"github.com/yaksh9737/event-manager/pkg/middleware"
	"github.com/yaksh9737/event-manager/pkg/redis"
	"github.com/yaksh9737/event-manager/pkg/telemetry"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:       logLevel(cfg),
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	tel, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	})
	if err != nil {
		logger.Fatal("init telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	// Storage: Postgres in normal operation; fall back to the in-memory
	// store in development so the API runs without a database.
	var (
		db        *database.PostgresDB
		userRepo  repository.UserRepository
		eventRepo repository.EventRepository
	)
	db, err = database.NewPostgres(ctx, database.FromConfig(&cfg.Database))
	if err != nil {
		if !cfg.IsDevelopment() {
			logger.Fatal("connect to postgres", zap.Error(err))
		}
		logger.Warn("postgres unavailable, using in-memory store", zap.Error(err))
		memUsers := repository.NewMemoryUserRepository()
		userRepo = memUsers
		eventRepo = repository.NewMemoryEventRepository(memUsers)
		db = nil
	} else {
		defer db.Close()
		userRepo = repository.NewPostgresUserRepository(db.Pool())
		eventRepo = repository.NewPostgresEventRepository(db.Pool())
		logger.Info("connected to postgres", zap.String("host", cfg.Database.Host))
	}

	images, err := upload.NewLocalStore(&cfg.Upload)
	if err != nil {
		logger.Fatal("init upload store", zap.Error(err))
	}

	container := di.NewContainer(&di.ContainerConfig{
		DB:        db,
		Images:    images,
		UserRepo:  userRepo,
		EventRepo: eventRepo,
		JWT:       &cfg.JWT,
	})

	rateLimit := middleware.DefaultRateLimitConfig()
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, &cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, using local rate limiter", zap.Error(err))
		} else {
			defer redisClient.Close()
			rateLimit.UseRedis = true
			rateLimit.RedisClient = redisClient
			logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr()))
		}
	}

	router := buildRouter(cfg, container, rateLimit)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

func buildRouter(cfg *config.Config, c *di.Container, rateLimit middleware.RateLimitConfig) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS())
	if cfg.OTel.Enabled {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}

	router.GET("/health", c.HealthHandler.Health)
	router.Static(cfg.Upload.PublicPath, c.Images.Dir())

	jwtAuth := middleware.JWTMiddleware(&middleware.JWTConfig{Secret: cfg.JWT.Secret})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", c.AuthHandler.Register)
			auth.POST("/login", c.AuthHandler.Login)
		}

		events := v1.Group("/events")
		{
			// Public reads
			events.GET("/all", c.EventHandler.List)
			events.GET("/:id", c.EventHandler.GetByID)

			// Authenticated mutations and owner views
			protected := events.Group("")
			protected.Use(jwtAuth)
			{
				protected.POST("", c.EventHandler.Create)
				protected.GET("/my-events", c.EventHandler.MyEvents)
				protected.PUT("/:id", c.EventHandler.Update)
				protected.DELETE("/:id", c.EventHandler.Delete)
				protected.GET("/:id/attendees", c.EventHandler.Attendees)

				// RSVP endpoints take the brunt of load spikes
				rsvp := protected.Group("")
				rsvp.Use(middleware.RateLimiter(rateLimit))
				{
					rsvp.POST("/:id/rsvp", c.EventHandler.Enroll)
					rsvp.DELETE("/:id/rsvp", c.EventHandler.Withdraw)
				}
			}
		}
	}

	return router
}

func logLevel(cfg *config.Config) string {
	if cfg.App.Debug {
		return "debug"
	}
	return "info"
}
