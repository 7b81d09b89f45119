// Package main runs the desk-booking HTTP server with the availability
// WebSocket feed and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/deskly/backend/config"
	"github.com/deskly/backend/internal/auth"
	"github.com/deskly/backend/internal/authz"
	"github.com/deskly/backend/internal/bookings"
	"github.com/deskly/backend/internal/middleware"
	"github.com/deskly/backend/internal/models"
	"github.com/deskly/backend/internal/notifications"
	"github.com/deskly/backend/internal/offices"
	"github.com/deskly/backend/internal/realtime"
	"github.com/deskly/backend/internal/reservations"
	"github.com/deskly/backend/internal/rooms"
	"github.com/deskly/backend/internal/users"
	"github.com/deskly/backend/pkg/database"
	"github.com/deskly/backend/pkg/queue"
	"github.com/deskly/backend/pkg/redis"
	"github.com/deskly/backend/pkg/response"
	"github.com/deskly/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var s3Client *storage.S3
	if cfg.AWS.AccessKeyID != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			FloorPlansBucket:     cfg.AWS.FloorPlansBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		}
	}

	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	resolver := auth.NewResolver(authRepo)
	resetSvc := auth.NewResetService(cfg.Reset.Secret, cfg.Reset.ExpireMinutes)
	authHandler := auth.NewHandler(authRepo, resetSvc, jobQueue, cfg.Session.ExpireHours, logger)

	// Rooms and room-scoped authorization
	roomRepo := rooms.NewRepository(pool)
	az := authz.New(roomRepo)
	var planStorage rooms.FloorPlanStorage
	if s3Client != nil {
		planStorage = s3Client
	}
	roomHandler := rooms.NewHandler(roomRepo, az, planStorage, logger)

	// Offices
	officeRepo := offices.NewRepository(pool)
	officeHandler := offices.NewHandler(officeRepo)

	// Office bookings
	bookingRepo := bookings.NewRepository(pool)
	bookingHandler := bookings.NewHandler(bookingRepo, officeRepo, hub, jobQueue, logger)

	// Desk reservations
	reservationRepo := reservations.NewRepository(pool)
	reservationHandler := reservations.NewHandler(reservationRepo, roomRepo, az, hub, logger)

	// Users (admin)
	userRepo := users.NewRepository(pool)
	userHandler := users.NewHandler(userRepo, logger)

	// Notifications (read side; the worker writes them)
	notificationRepo := notifications.NewRepository(pool)
	notificationHandler := notifications.NewHandler(notificationRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/password-reset/request", authHandler.RequestPasswordReset)
		authGroup.POST("/password-reset/confirm", authHandler.ResetPassword)
	}

	// Protected API (session token required)
	api := router.Group("/api")
	api.Use(middleware.Session(resolver))
	{
		api.POST("/logout", authHandler.Logout)
		api.POST("/rooms", roomHandler.Dispatch)
		api.POST("/offices", officeHandler.Dispatch)
		api.POST("/office-bookings", bookingHandler.Dispatch)
		api.POST("/reservations", reservationHandler.Dispatch)
		api.POST("/notifications", notificationHandler.Dispatch)
		api.POST("/users", middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin), userHandler.Dispatch)
	}

	// WebSocket availability feed (session token in query)
	validate := realtime.SessionValidator(resolver.Resolve)
	authorize := realtime.TopicAuthorizer(func(ctx context.Context, user *models.User, topic realtime.Topic) bool {
		switch topic.Kind {
		case realtime.TopicOffice:
			office, err := officeRepo.Get(ctx, topic.ID)
			if err != nil {
				return false
			}
			return authz.CanAccessOffice(user, office)
		case realtime.TopicRoom:
			ok, err := az.HasRoomAccess(ctx, user, topic.ID)
			return err == nil && ok
		}
		return false
	})
	router.GET("/ws", realtime.ServeWs(hub, logger, validate, authorize))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
