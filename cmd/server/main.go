package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"glow-backend-go/internal/api"
	"glow-backend-go/internal/cache"
	"glow-backend-go/internal/config"
	"glow-backend-go/internal/core"
	"glow-backend-go/internal/db"
	"glow-backend-go/internal/middleware"
)

func main() {
	// --- 1. Load Application Configuration ---
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to load application configuration: %v", err)
	}

	// --- 2. Initialize Logger (Zap) ---
	var zapLogger *zap.Logger
	if appConfig.IsRelease() {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Application configuration loaded successfully.")

	// --- 3. Initialize Firebase Admin SDK (Firestore and Auth clients) ---
	initCtx, cancelInitCtx := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelInitCtx()
	clients, err := db.InitFirebase(initCtx, appConfig, zapLogger)
	if err != nil {
		zapLogger.Fatal("CRITICAL_ERROR: Failed to initialize Firebase Admin SDK", zap.Error(err))
	}
	defer clients.Close()

	// --- 4. Optional Redis plan cache ---
	var planCache cache.PlanCache
	if appConfig.RedisAddr != "" {
		redisCache, err := cache.NewRedisPlanCache(initCtx, cache.RedisConfig{
			Address:  appConfig.RedisAddr,
			Password: appConfig.RedisPassword,
			DB:       appConfig.RedisDB,
			TTL:      appConfig.PlanCacheTTL,
		}, zapLogger)
		if err != nil {
			// plans are still served from Firestore
			zapLogger.Warn("Redis plan cache disabled", zap.Error(err))
		} else {
			defer redisCache.Close()
			planCache = redisCache
		}
	} else {
		zapLogger.Info("REDIS_ADDR not set; plan cache disabled.")
	}

	// --- 5. Initialize Repositories ---
	userRepo := db.NewFirestoreUserRepository(clients.Firestore)
	planRepo := db.NewFirestorePlanRepository(clients.Firestore)
	recordRepo := db.NewFirestoreRecordRepository(clients.Firestore)
	auditRepo := db.NewFirestoreAuditRepository(clients.Firestore)
	liveSource := db.NewFirestoreLiveSource(clients.Firestore)

	// --- 6. Initialize Services ---
	stripeGateway := core.NewStripeGateway(appConfig.StripeSecretKey)
	auditService := core.NewAuditService(auditRepo, zapLogger)
	userService := core.NewUserService(userRepo)
	planService := core.NewPlanService(userRepo, planRepo, stripeGateway, planCache, zapLogger)
	billingService := core.NewBillingService(stripeGateway, userRepo, core.BillingConfig{
		WebhookSecret: appConfig.StripeWebhookSecret,
		ProPriceID:    appConfig.StripeProPriceID,
		ReturnURL:     strings.TrimSpace(strings.Split(appConfig.ClientURL, ",")[0]),
	}, zapLogger)
	recordService := core.NewRecordService(recordRepo, auditService, zapLogger)
	zapLogger.Info("Core services initialized successfully.")

	// --- 7. Setup Gin HTTP Engine ---
	if appConfig.IsRelease() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(middleware.RequestLogger(zapLogger))
	router.Use(middleware.RecoveryMiddleware(zapLogger))
	if appConfig.ClientURL != "" {
		router.Use(middleware.CORSMiddleware(appConfig))
		zapLogger.Info("CORS Middleware enabled", zap.String("clientURL", appConfig.ClientURL))
	} else {
		zapLogger.Warn("CORS Middleware SKIPPED: CLIENT_URL is not configured.")
	}

	api.SetupRoutes(
		router,
		clients.Auth,
		zapLogger,
		userService,
		planService,
		billingService,
		recordService,
		liveSource,
	)

	// --- 8. Configure and Start HTTP Server ---
	serverAddr := fmt.Sprintf(":%s", appConfig.Port)
	// live streams hold their request open; cancelling the base context ends them on shutdown
	baseCtx, cancelBase := context.WithCancel(context.Background())
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	httpServer.RegisterOnShutdown(cancelBase)

	zapLogger.Info("Starting HTTP server...", zap.String("address", serverAddr), zap.String("ginMode", gin.Mode()))
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// --- 9. Graceful Shutdown Handling ---
	quitChannel := make(chan os.Signal, 1)
	signal.Notify(quitChannel, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChannel
	zapLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	zapLogger.Info("Server exiting gracefully.")
}
