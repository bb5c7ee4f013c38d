package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"messenger-service/internal/auth"
	"messenger-service/internal/db"
	"messenger-service/internal/handlers"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/presence"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/storage"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

func main() {
	_ = godotenv.Load()

	zl, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zl.Sync()
	logger := zl.Sugar()

	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracer(ctx, "messenger-service", getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""))
	if err != nil {
		logger.Fatalw("failed to init tracer", "error", err)
	}
	defer shutdownTracer(ctx)

	database, err := db.Connect(logger)
	if err != nil {
		logger.Fatalw("failed to connect to db", "error", err)
	}

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	rdb, err := presence.Connect(getEnv("REDIS_ADDR", "localhost:6379"), getEnv("REDIS_PASSWORD", ""), redisDB)
	if err != nil {
		logger.Fatalw("failed to connect to redis", "error", err)
	}
	tracker := presence.NewRedisTracker(rdb)
	typingTracker := presence.NewRedisTypingTracker(rdb)

	amqpURL := getEnv("AMQP_URL", "")
	exchange := getEnv("AMQP_EXCHANGE", "messenger.events")

	eventPublisher := rabbitmq.NewPublisher(amqpURL, exchange, logger)
	defer eventPublisher.Close()
	logger.Infow("event publisher ready", "mode", rabbitmq.PublisherMode(eventPublisher))

	if amqpURL != "" {
		if obsPub, err := observability.NewAMQPPublisher(amqpURL, exchange); err != nil {
			logger.Warnw("observability publisher unavailable", "error", err)
		} else {
			observability.SetPublisher(obsPub)
			defer obsPub.Close()
		}
	}

	audit := telemetry.NewAuditEmitter(
		eventPublisher,
		getEnv("AUDIT_ROUTING_KEY", "audit.messenger"),
		"messenger-service",
		getEnv("ENVIRONMENT", "development"),
		logger,
	)

	var store storage.ObjectStore = storage.Disabled{}
	if endpoint := getEnv("MINIO_ENDPOINT", ""); endpoint != "" {
		minioStore, err := storage.NewMinioStore(
			endpoint,
			getEnv("MINIO_ACCESS_KEY", ""),
			getEnv("MINIO_SECRET_KEY", ""),
			getEnv("MINIO_BUCKET", "messenger-uploads"),
			getEnv("MINIO_USE_SSL", "false") == "true",
		)
		if err != nil {
			logger.Fatalw("failed to init object storage", "error", err)
		}
		store = minioStore
	} else {
		logger.Warn("object storage disabled, uploads will be rejected")
	}

	verifier := auth.NewVerifier([]byte(getEnv("JWT_SECRET", "dev-secret")))

	userRepo := repositories.NewUserRepo(database)
	convRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)

	hub := ws.NewHub(logger)

	profileHandler := handlers.NewProfileHandler(userRepo, audit)
	convHandler := handlers.NewConversationHandler(convRepo, hub, audit)
	messageHandler := handlers.NewMessageHandler(messageRepo, convRepo, userRepo, typingTracker, store, hub, audit)
	reactionHandler := handlers.NewReactionHandler(reactionRepo, messageRepo, convRepo, hub)
	presenceHandler := handlers.NewPresenceHandler(tracker)
	typingHandler := handlers.NewTypingHandler(typingTracker, convRepo, userRepo, hub)
	uploadHandler := handlers.NewUploadHandler(store)

	conversationWS := ws.NewConversationWebSocketHandler(hub, verifier, userRepo, convRepo)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("messenger-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	identified := middleware.Identified(verifier)
	authenticated := middleware.Authenticated(verifier, userRepo)
	optionalAuth := middleware.OptionalAuth(verifier, userRepo)

	router.POST("/profile", identified, profileHandler.UpsertProfile)
	router.GET("/profile/me", optionalAuth, profileHandler.Me)
	router.GET("/users", authenticated, profileHandler.ListUsers)

	router.POST("/conversations/direct", authenticated, convHandler.StartDirect)
	router.POST("/conversations/group", authenticated, convHandler.CreateGroup)
	router.GET("/conversations", optionalAuth, convHandler.List)
	router.GET("/conversations/:conversation_id", optionalAuth, convHandler.Get)
	router.POST("/conversations/:conversation_id/read", authenticated, convHandler.MarkRead)

	router.POST("/conversations/:conversation_id/messages", authenticated, messageHandler.Send)
	router.GET("/conversations/:conversation_id/messages", optionalAuth, messageHandler.List)
	router.DELETE("/messages/:message_id", authenticated, messageHandler.Delete)

	router.POST("/messages/:message_id/reactions/toggle", authenticated, reactionHandler.Toggle)
	router.GET("/messages/:message_id/reactions", optionalAuth, reactionHandler.ForMessage)
	router.GET("/conversations/:conversation_id/reactions", optionalAuth, reactionHandler.ForConversation)

	router.POST("/presence/online", authenticated, presenceHandler.SetOnline)
	router.POST("/presence/offline", authenticated, presenceHandler.SetOffline)
	router.POST("/presence/heartbeat", authenticated, presenceHandler.Heartbeat)
	router.GET("/presence", presenceHandler.GetMap)

	router.POST("/conversations/:conversation_id/typing", authenticated, typingHandler.Set)
	router.DELETE("/conversations/:conversation_id/typing", authenticated, typingHandler.Clear)
	router.GET("/conversations/:conversation_id/typing", optionalAuth, typingHandler.Get)

	router.POST("/uploads", authenticated, uploadHandler.RequestTarget)
	router.GET("/files/:handle", uploadHandler.ResolveURL)

	router.GET("/ws/conversations/:conversation_id", conversationWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, hub, getEnv("DEBUG_ROUTES", "false") == "true")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		logger.Fatalw("server error", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
