package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"debate-platform-backend/docs"
	"debate-platform-backend/internal/common/broadcast"
	"debate-platform-backend/internal/common/cache"
	"debate-platform-backend/internal/common/config"
	"debate-platform-backend/internal/common/logger"
	"debate-platform-backend/internal/common/middleware"
	authHTTP "debate-platform-backend/internal/features/auth/delivery/http"
	authRepo "debate-platform-backend/internal/features/auth/repository/redis"
	authService "debate-platform-backend/internal/features/auth/service"
	notificationHTTP "debate-platform-backend/internal/features/notification/delivery/http"
	notificationRepo "debate-platform-backend/internal/features/notification/repository/redis"
	notificationService "debate-platform-backend/internal/features/notification/service"
	topicHTTP "debate-platform-backend/internal/features/topic/delivery/http"
	topicRepo "debate-platform-backend/internal/features/topic/repository/redis"
	topicService "debate-platform-backend/internal/features/topic/service"
	userHTTP "debate-platform-backend/internal/features/user/delivery/http"
	userRepo "debate-platform-backend/internal/features/user/repository/redis"
	userService "debate-platform-backend/internal/features/user/service"
	verificationHTTP "debate-platform-backend/internal/features/verification/delivery/http"
	verificationModels "debate-platform-backend/internal/features/verification/models"
	verificationRepo "debate-platform-backend/internal/features/verification/repository/redis"
	verificationService "debate-platform-backend/internal/features/verification/service"
	redisplatform "debate-platform-backend/internal/platform/redis"
	"debate-platform-backend/internal/platform/telegram"
	"debate-platform-backend/internal/workers"
)

const serviceName = "debate-platform-backend"

// @title           Debate Platform API
// @version         1.0
// @description     Profiles, social account verification, notifications and debate topics.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Access token: "Bearer <token>"

// @tag.name auth
// @tag.description Telegram login and token refresh

// @tag.name users
// @tag.description Profile management

// @tag.name verification
// @tag.description Social account verification

// @tag.name admin
// @tag.description Review dashboard and user administration

// @tag.name notifications
// @tag.description User notifications

// @tag.name topics
// @tag.description Debate topics

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Init(serviceName, false)
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(serviceName, cfg.Debug)
	logger.Info().Bool("debug", cfg.Debug).Msg("Starting debate platform backend")

	adminIDs, err := cfg.AdminIDList()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid ADMIN_IDS")
	}

	redisClient, err := redisplatform.Open(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr()).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()
	logger.Info().Str("addr", cfg.RedisAddr()).Msg("Redis connection established")

	cacheSvc := cache.NewCacheService(redisClient)
	events := broadcast.NewHub[verificationModels.Event](64)

	// Инициализируем сервисы
	userSvc := userService.NewUserService(userRepo.NewUserRepository(redisClient), cacheSvc, cfg.Cache.UserTTL)
	authSvc := authService.NewAuthService(authRepo.NewTokenRepository(redisClient), userSvc, authService.Options{
		Secret:          []byte(cfg.Auth.JWTSecret),
		AccessTokenTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTokenTTL: cfg.Auth.RefreshTokenTTL,
		AdminIDs:        adminIDs,
	})
	verificationSvc := verificationService.NewVerificationService(
		verificationRepo.NewVerificationRepository(redisClient), userSvc, cacheSvc, cfg.Verification.CodeTTL)
	notificationSvc := notificationService.NewNotificationService(notificationRepo.NewNotificationRepository(redisClient))
	topicSvc := topicService.NewTopicService(topicRepo.NewTopicRepository(redisClient))

	worker := workers.NewVerificationEventWorker(redisClient, events, cacheSvc, cfg.Instance())
	if cfg.Telegram.Notify {
		bot := telegram.NewClient(cfg.Auth.BotToken, cfg.Telegram.APIURL)
		worker.WithTelegramPush(workers.NewTelegramPusher(redisClient, bot))
		logger.Info().Msg("Telegram decision messages enabled")
	}
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Start(ctx)
	}()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "init_data", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	authed := v1.Group("", middleware.RequireAuth(authSvc), middleware.CheckBanned(userSvc))
	admin := authed.Group("/admin", middleware.RequireAdmin())

	authHTTP.NewAuthHandler(authSvc, cfg.Auth.BotToken, cfg.Auth.InitDataTTL).RegisterRoutes(v1)
	userHTTP.NewUserHandler(userSvc).RegisterRoutes(v1, authed, admin)
	verificationHTTP.NewVerificationHandler(verificationSvc, events).RegisterRoutes(authed, admin)
	notificationHTTP.NewNotificationHandler(notificationSvc).RegisterRoutes(authed)
	topicHTTP.NewTopicHandler(topicSvc).RegisterRoutes(authed)

	docs.SwaggerInfo.Host = hostOf(cfg.Server.BaseURL)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	setupProbes(router, redisClient)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// без WriteTimeout: SSE поток живёт пока подключен клиент
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("Events worker did not stop in time")
	}

	logger.Info().Msg("Server exited")
}

func setupProbes(router *gin.Engine, redisClient *redis.Client) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "redis unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   serviceName,
		})
	})
}

func hostOf(baseURL string) string {
	return strings.TrimPrefix(strings.TrimPrefix(baseURL, "https://"), "http://")
}
