package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"f2f-dating-app/internal/assistant"
	"f2f-dating-app/internal/config"
	"f2f-dating-app/internal/database"
	"f2f-dating-app/internal/handlers"
	"f2f-dating-app/internal/middleware"
	"f2f-dating-app/internal/ratelimit"
	"f2f-dating-app/internal/redis"
	"f2f-dating-app/internal/services"
	"f2f-dating-app/internal/session"
	"f2f-dating-app/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const presenceChannel = "online-users"

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg := config.Load()
	log := newLogger(cfg)
	if envErr != nil {
		log.Info("No .env file found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Initialize(cfg.DatabaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	redisClient, err := redis.Initialize(ctx, cfg.RedisURL, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	feed := redisClient.MessageFeed()
	profiles := database.NewProfileStore(db)

	var completer assistant.Completer
	if cfg.GeminiAPIKey != "" {
		gemini, err := services.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.WithError(err).Warn("Generative text disabled")
		} else {
			completer = gemini
		}
	}
	assist := assistant.New(completer, log.WithField("component", "assistant"))

	var notifier session.Notifier
	if cfg.FirebaseProjectID != "" {
		push, err := services.NewPushService(ctx, cfg, profiles, log)
		if err != nil {
			log.WithError(err).Warn("Push notifications disabled")
		} else {
			notifier = push
		}
	}

	var storage handlers.PhotoStorage
	if svc, err := services.NewStorageService(cfg, log); err != nil {
		log.WithError(err).Warn("Photo storage disabled")
	} else {
		if err := svc.CreateBucket(ctx); err != nil {
			log.WithError(err).Warn("Failed to ensure photo bucket")
		}
		storage = svc
	}

	hub := websocket.NewHub(log)

	manager := session.NewManager(session.Deps{
		Profiles:          profiles,
		Messages:          database.NewMessageStore(db, feed, log),
		Feed:              feed,
		Events:            database.NewEventStore(db),
		Likes:             database.NewLikeStore(db),
		Presence:          redisClient.PresenceChannel(presenceChannel, cfg.PresenceTTL),
		DMLimiter:         ratelimit.NewDaily("dm", cfg.DailyDMLimit, cfg.DailyLimitTZ, redisClient.Quota()),
		Assistant:         assist,
		Notifier:          notifier,
		Sink:              hub,
		Log:               log,
		RemoteTimeout:     cfg.RemoteTimeout,
		PresenceHeartbeat: cfg.PresenceHeartbeat,
	}, cfg.SessionIdleTimeout)

	authHandler := handlers.NewAuthHandler(profiles, cfg, log)
	userHandler := handlers.NewUserHandler(manager, storage, profiles, cfg)
	discoverHandler := handlers.NewDiscoverHandler(manager)
	matchHandler := handlers.NewMatchHandler(manager)
	messageHandler := handlers.NewMessageHandler(manager)
	eventHandler := handlers.NewEventHandler(manager)
	assistantHandler := handlers.NewAssistantHandler(manager, assist)

	gin.SetMode(cfg.GinMode)
	router := setupRoutes(cfg, log, manager, hub, authHandler, userHandler, discoverHandler,
		matchHandler, messageHandler, eventHandler, assistantHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown")
	}
	manager.Shutdown()

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

func newLogger(cfg *config.Config) *logrus.Entry {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logrus.NewEntry(logger).WithField("service", "f2f-dating-app")
}

func setupRoutes(cfg *config.Config, log *logrus.Entry, manager *session.Manager, hub *websocket.Hub,
	authHandler *handlers.AuthHandler, userHandler *handlers.UserHandler,
	discoverHandler *handlers.DiscoverHandler, matchHandler *handlers.MatchHandler,
	messageHandler *handlers.MessageHandler, eventHandler *handlers.EventHandler,
	assistantHandler *handlers.AssistantHandler) *gin.Engine {

	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(log.WithField("component", "http")))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": manager.Active()})
	})

	auth := middleware.AuthRequired(cfg.JWTSecret)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		authRoutes := v1.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
		}

		users := v1.Group("/users", auth)
		{
			users.GET("/profile", userHandler.GetProfile)
			users.PUT("/profile", userHandler.UpdateProfile)
			users.POST("/profile/photo", userHandler.UploadPhoto)
			users.PUT("/location", userHandler.UpdateLocation)
			users.PUT("/push-token", userHandler.SetPushToken)
		}

		discover := v1.Group("/discover", auth)
		{
			discover.GET("", discoverHandler.Discover)
			discover.PUT("/filters", discoverHandler.SetFilters)
			discover.POST("/filters/reset", discoverHandler.ResetFilters)
			discover.POST("/filters/expand", discoverHandler.ExpandRadius)
			discover.POST("/swipe", discoverHandler.Swipe)
			discover.POST("/reset", discoverHandler.ResetSwipes)
		}

		likes := v1.Group("/likes", auth)
		{
			likes.GET("", matchHandler.GetIncomingLikes)
			likes.POST("/:user_id/accept", matchHandler.AcceptLike)
			likes.POST("/:user_id/reject", matchHandler.RejectLike)
		}

		v1.POST("/matches/like/:user_id", auth, matchHandler.LikeUser)

		chats := v1.Group("/chats", auth)
		{
			chats.GET("", messageHandler.GetChats)
			chats.POST("/:session_id/open", messageHandler.OpenChat)
			chats.POST("/close", messageHandler.CloseChat)
			chats.POST("/messages", messageHandler.SendMessage)
			chats.POST("/direct/:user_id", messageHandler.DirectMessage)
		}

		events := v1.Group("/events", auth)
		{
			events.GET("", eventHandler.GetEvents)
			events.POST("", eventHandler.CreateEvent)
			events.POST("/:event_id/join", eventHandler.JoinEvent)
		}

		assist := v1.Group("/assistant", auth)
		{
			assist.POST("/icebreaker/:user_id", assistantHandler.Icebreaker)
			assist.POST("/compatibility/:user_id", assistantHandler.Compatibility)
			assist.POST("/tags/check", assistantHandler.CheckTag)
		}

		// WebSocket endpoint
		v1.GET("/ws", auth, hub.Handler(func(ctx context.Context, viewerID string) (websocket.Session, func(), error) {
			coord, release, err := manager.Acquire(ctx, viewerID)
			if err != nil {
				return nil, nil, err
			}
			return coord, release, nil
		}))
	}

	return router
}
