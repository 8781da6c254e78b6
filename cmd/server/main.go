package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fusecpt/ats/internal/access"
	"github.com/fusecpt/ats/internal/auth"
	"github.com/fusecpt/ats/internal/client"
	"github.com/fusecpt/ats/internal/config"
	"github.com/fusecpt/ats/internal/handler"
	"github.com/fusecpt/ats/internal/logging"
	"github.com/fusecpt/ats/internal/middleware"
	"github.com/fusecpt/ats/internal/service"
	"github.com/fusecpt/ats/internal/storage"
	ws "github.com/fusecpt/ats/internal/websocket"
	"github.com/fusecpt/ats/internal/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logging.New(cfg.Server.LogLevel, cfg.Server.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Database
	store, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		zlog.Fatal("failed to open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		zlog.Fatal("failed to migrate database", zap.Error(err))
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		zlog.Warn("redis not available", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub(zlog)
	go hub.Run(ctx)

	// Object storage is optional; without it logos are skipped and resume
	// uploads fail.
	var objects client.ObjectStorage
	if cfg.Storage.BucketName != "" {
		s3Client, err := client.NewS3Client(ctx, &cfg.Storage)
		if err != nil {
			zlog.Warn("object storage disabled", zap.Error(err))
		} else {
			objects = s3Client
		}
	}

	// Tokens
	issuer := auth.NewIssuer(&cfg.JWT)
	mailQueue := service.NewAsynqMailQueue(asynqClient)

	// Initialize services
	authService := service.NewAuthService(store, issuer, mailQueue, zlog)
	userService := service.NewUserService(store, mailQueue, zlog)
	candidateService := service.NewCandidateService(store, hub, zlog)
	jobService := service.NewJobService(store, objects, zlog)
	uploadService := service.NewUploadService(objects, zlog)

	if err := userService.Bootstrap(ctx, cfg.Bootstrap.AdminName, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
		zlog.Fatal("failed to bootstrap super-admin", zap.Error(err))
	}

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(issuer)
	if cfg.OIDC.Issuer != "" {
		verifier, err := auth.NewOIDCVerifier(ctx, &cfg.OIDC)
		if err != nil {
			zlog.Warn("oidc verification disabled", zap.String("issuer", cfg.OIDC.Issuer), zap.Error(err))
		} else {
			defer verifier.Close()
			authMiddleware.WithExternal(verifier, authService)
			zlog.Info("oidc verification enabled", zap.String("issuer", cfg.OIDC.Issuer))
		}
	}
	rateLimiter := middleware.NewRateLimiter(redisClient, zlog)

	// Initialize handlers
	handlers := &handler.Handlers{
		Auth:       handler.NewAuthHandler(authService, validate, cfg.Cookie, issuer.AccessTTL(), issuer.RefreshTTL()),
		Candidates: handler.NewCandidateHandler(candidateService, validate),
		Jobs:       handler.NewJobHandler(jobService, validate),
		Users:      handler.NewUserHandler(userService, validate),
		Uploads:    handler.NewUploadHandler(uploadService, validate),
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handler.ErrorHandler(zlog),
		BodyLimit:    12 * 1024 * 1024, // 12MB
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(splitOrigins(cfg.Server.AllowOrigins), ","),
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		status := "ok"
		database := true
		if err := store.Ping(c.UserContext()); err != nil {
			status = "degraded"
			database = false
		}
		return c.JSON(fiber.Map{
			"status": status,
			"services": fiber.Map{
				"database": database,
				"storage":  objects != nil,
			},
		})
	})

	handler.RegisterRoutes(app, handlers, handler.RouteOptions{
		Auth:          authMiddleware,
		Limiter:       rateLimiter,
		LoginPerMin:   cfg.RateLimit.LoginPerMin,
		ForgotPerHour: cfg.RateLimit.ForgotPerHour,
	})

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId",
		authMiddleware.Authenticate(),
		middleware.RequireCapability(access.CandidatesRead),
		websocket.New(func(c *websocket.Conn) {
			hub.HandleConnection(c, c.Params("jobId"))
		}),
	)

	// Start Asynq worker server
	workerServer := newWorkerServer(redisOpt, zlog)
	mailWorker := worker.NewMailWorker(client.NewSMTPClient(&cfg.Mail), &cfg.Mail, zlog)
	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeMail, mailWorker.ProcessTask)
	if err := workerServer.Start(mux); err != nil {
		zlog.Error("asynq worker not started", zap.Error(err))
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zlog.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zlog.Error("server shutdown error", zap.Error(err))
		}
		workerServer.Shutdown()
		stop()
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	zlog.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Server.Env))
	if err := app.Listen(addr); err != nil {
		zlog.Fatal("server error", zap.Error(err))
	}
}

func newWorkerServer(redisOpt asynq.RedisClientOpt, zlog *zap.Logger) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			service.MailQueue: 1,
		},
		Logger: zlog.Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			zlog.Warn("task failed", zap.String("type", task.Type()), zap.Error(err))
		}),
	})
}

func splitOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		out = []string{"http://localhost:3000"}
	}
	return out
}
