package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	intDatabase "github.com/lucasmd12/0issues/internal/database"
	callHandler "github.com/lucasmd12/0issues/internal/handler/http/call"
	presenceHandler "github.com/lucasmd12/0issues/internal/handler/http/presence"
	pushHandler "github.com/lucasmd12/0issues/internal/handler/http/push"
	wsHandler "github.com/lucasmd12/0issues/internal/handler/ws"
	"github.com/lucasmd12/0issues/internal/middleware"
	"github.com/lucasmd12/0issues/internal/presence"
	"github.com/lucasmd12/0issues/internal/repository/cockroach"
	"github.com/lucasmd12/0issues/internal/repository/memory"
	redisRepo "github.com/lucasmd12/0issues/internal/repository/redis"
	callService "github.com/lucasmd12/0issues/internal/service/call"
	"github.com/lucasmd12/0issues/pkg/constants"
	pkgDatabase "github.com/lucasmd12/0issues/pkg/database"
	"github.com/lucasmd12/0issues/pkg/env"
	"github.com/lucasmd12/0issues/pkg/jwt"
	"github.com/lucasmd12/0issues/pkg/logger"
	"github.com/lucasmd12/0issues/pkg/metrics"
	"github.com/lucasmd12/0issues/pkg/push"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.InitDefault()
	defer logger.Sync()

	// 1. Setup JWT Manager
	jwtSecret := env.GetStringFromFile("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters")
	}

	jwtManager := jwt.NewJWTManager(jwtSecret, 15*time.Minute)

	productionMode := os.Getenv("ENV") == "production"

	// 2. Connect to CockroachDB for call records with retry logic
	dbConfig := &pkgDatabase.CockroachConfig{
		Host:     env.GetString("DB_HOST", "localhost"),
		Port:     env.GetInt("DB_PORT", 26257),
		User:     env.GetString("DB_USER", "root"),
		Password: env.GetStringFromFile("DB_PASSWORD", ""),
		Database: env.GetString("DB_NAME", "federation"),
		SSLMode:  env.GetString("DB_SSLMODE", "disable"),
	}

	var db *pkgDatabase.CockroachDB
	var err error

	maxRetries := 5
	baseDelay := 1 * time.Second
	maxDelay := 30 * time.Second

	db, err = pkgDatabase.NewCockroachDB(ctx, dbConfig)
	if err != nil {
		for attempt := 2; attempt <= maxRetries; attempt++ {
			delay := time.Duration(float64(baseDelay) * math.Pow(2, float64(attempt-1)))
			if delay > maxDelay {
				delay = maxDelay
			}
			log.Printf("⚠️  CockroachDB connection attempt %d failed: %v. Retrying in %v...", attempt-1, err, delay)
			time.Sleep(delay)

			db, err = pkgDatabase.NewCockroachDB(ctx, dbConfig)
			if err == nil {
				break
			}
		}
	}

	// Limited mode keeps signaling and presence alive on an in-memory call
	// store when the database is unreachable
	limitedMode := err != nil
	if limitedMode {
		log.Printf("Warning: Failed to connect to CockroachDB after %d attempts: %v", maxRetries, err)
		log.Println("Running in limited mode without call persistence")
	} else {
		log.Println("✅ Connected to CockroachDB")
		defer db.Close()
	}

	// 3. Initialize Redis with degraded mode support
	intDatabase.InitRedisMetrics()

	redisConfig := &intDatabase.RedisConfig{
		Host:     env.GetString("REDIS_HOST", "localhost"),
		Port:     env.GetInt("REDIS_PORT", 6379),
		Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
		DB:       0,
		PoolSize: 10,
		Timeout:  5 * time.Second,
	}

	redisDB, _ := intDatabase.NewRedisDB(redisConfig)
	defer redisDB.Close()

	if err := redisDB.HealthCheck(ctx); err != nil {
		log.Printf("Warning: Redis unreachable, starting in degraded mode: %v", err)
	} else {
		log.Println("✅ Connected to Redis")
	}

	go redisDB.StartHealthCheck(ctx, 10*time.Second)

	// 4. Select call store and user resolver
	userDirectory := memory.NewUserDirectory()

	var callStore callService.CallStore
	var users callService.UserResolver
	var recorder wsHandler.IdentityRecorder

	if limitedMode {
		callStore = memory.NewCallRepository()
		users = userDirectory
		recorder = userDirectory
	} else {
		callStore = cockroach.NewCallRepository(db.Pool)
		users = cockroach.NewUserRepository(db.Pool)
	}

	// 5. Initialize push fallback
	pushTokenRepo := redisRepo.NewPushTokenRepository(redisDB)

	var pushProvider push.Provider
	switch providerType := env.GetString("PUSH_PROVIDER", "mock"); providerType {
	case "fcm":
		fcmProvider, err := push.NewFCMProvider(&push.FCMConfig{
			CredentialsPath: env.GetString("FCM_CREDENTIALS_FILE", ""),
			ProjectID:       env.GetStringFromFile("FCM_PROJECT_ID", ""),
		})
		if err != nil {
			if productionMode {
				log.Fatalf("❌ Fatal: FCM provider initialization failed: %v", err)
			}
			log.Printf("Warning: FCM provider initialization failed: %v, falling back to mock", err)
			pushProvider = &push.MockProvider{}
		} else {
			pushProvider = fcmProvider
			log.Println("✅ Using FCM push provider")
		}
	case "mock", "":
		if productionMode {
			log.Fatal("❌ Fatal: Mock push provider not allowed in production")
		}
		pushProvider = &push.MockProvider{}
		log.Println("ℹ️  Using mock push provider (development mode)")
	default:
		log.Printf("Warning: Unknown PUSH_PROVIDER '%s', falling back to mock", providerType)
		pushProvider = &push.MockProvider{}
	}

	pushSvc := push.NewService(pushProvider, pushTokenRepo)

	// 6. Initialize Metrics
	appMetrics := metrics.NewMetrics("call-service")
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 7. Presence registry and gateway hub
	registry := presence.NewRegistry()
	presenceMirror := redisRepo.NewPresenceRepository(redisDB)

	maxConnections := env.GetInt("MAX_GATEWAY_CONNECTIONS", constants.DefaultMaxGatewayConnections)
	hub := wsHandler.NewGatewayHub(registry, presenceMirror, recorder, appMetrics, maxConnections)

	// 8. Call coordinator and ring-timeout janitor
	callSvc := callService.NewService(callStore, users, hub, pushSvc, appMetrics)
	callSvc.SetRingTimeout(env.GetDuration("CALL_RING_TIMEOUT", constants.DefaultRingTimeout))
	callSvc.StartJanitor(ctx)

	// 9. Handlers
	callHdlr := callHandler.NewHandler(callSvc)
	presenceHdlr := presenceHandler.NewHandler(registry)
	pushHdlr := pushHandler.NewHandler(pushTokenRepo)

	// 10. Setup Gin Router
	if productionMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.SetTrustedProxies(nil)

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())
	router.Use(prometheusMiddleware.Handler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":       "healthy",
			"service":      "call-service",
			"limited_mode": limitedMode,
			"redis":        !redisDB.IsDegraded(),
			"time":         time.Now().UTC(),
		})
	})

	router.GET("/metrics", middleware.MetricsHandler())

	// WebSocket gateway
	router.GET("/v1/gateway/ws", middleware.WebSocketAuthMiddleware(jwtManager), hub.ServeWS)

	// Call lifecycle routes
	calls := router.Group("/v1/calls")
	calls.Use(middleware.AuthMiddleware(jwtManager))
	{
		calls.POST("/initiate", callHdlr.InitiateCall)
		calls.POST("/:id/accept", callHdlr.AcceptCall)
		calls.POST("/:id/reject", callHdlr.RejectCall)
		calls.POST("/:id/end", callHdlr.EndCall)
		calls.GET("/history", callHdlr.GetCallHistory)
		calls.GET("/:id", callHdlr.GetCall)
	}

	// Presence routes
	presenceRoutes := router.Group("/v1/presence")
	presenceRoutes.Use(middleware.AuthMiddleware(jwtManager))
	{
		presenceRoutes.GET("/online", presenceHdlr.GetOnlineUsers)
		presenceRoutes.GET("/:id", presenceHdlr.GetUserPresence)
	}

	// Push token routes
	pushRoutes := router.Group("/v1/push")
	pushRoutes.Use(middleware.AuthMiddleware(jwtManager))
	{
		pushRoutes.POST("/tokens", pushHdlr.RegisterToken)
		pushRoutes.DELETE("/tokens", pushHdlr.UnregisterToken)
		pushRoutes.GET("/tokens/count", pushHdlr.GetTokenCount)
	}

	// 11. Start server with graceful shutdown
	port := env.GetString("PORT", "8083")
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: router,
	}

	go func() {
		log.Printf("🚀 Call Service starting on port %s\n", port)
		log.Println("📡 Gateway endpoint: /v1/gateway/ws")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}

	log.Println("Call Service stopped")
}
