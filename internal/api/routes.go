package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"glow-backend-go/internal/core"
	"glow-backend-go/internal/db"
	"glow-backend-go/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, CORS) is applied to router by the caller.
func SetupRoutes(
	router *gin.Engine,
	verifier middleware.TokenVerifier,
	logger *zap.Logger,
	userService core.UserService,
	planService core.PlanService,
	billingService core.BillingService,
	recordService core.RecordService,
	liveSource db.LiveSource,
) {
	if err := RegisterValidators(); err != nil {
		logger.Fatal("Failed to register request validators", zap.Error(err))
	}
	authMW := middleware.NewAuthMiddleware(verifier, logger)

	authHandler := NewAuthHandler(userService, logger)
	userHandler := NewUserHandler(userService, logger)
	billingHandler := NewBillingHandler(billingService, planService, logger)
	planHandler := NewPlanHandler(planService, logger)
	recordHandler := NewRecordHandler(recordService, logger)
	liveHandler := NewLiveHandler(liveSource, logger)

	apiV1 := router.Group("/api/v1")
	{
		userAuthGroup := apiV1.Group("/users", authMW.VerifyToken())
		{
			userAuthGroup.POST("/initialize", authHandler.InitializeUserProfile)
			userAuthGroup.GET("/me", userHandler.GetCurrentUserProfile)
		}

		apiV1.POST("/plans/update", authMW.VerifyToken(), planHandler.UpdatePlan)

		billingRouteGroup := apiV1.Group("/billing")
		{
			billingRouteGroup.GET("/plan", authMW.VerifyToken(), billingHandler.GetPlan)
			billingRouteGroup.POST("/subscribe", authMW.VerifyToken(), billingHandler.Subscribe)
			billingRouteGroup.POST("/cancel", authMW.VerifyToken(), billingHandler.CancelSubscription)
			billingRouteGroup.POST("/portal", authMW.VerifyToken(), billingHandler.CreatePortalSession)

			// Public: Stripe authenticates with the Stripe-Signature header.
			billingRouteGroup.POST("/webhooks/stripe", billingHandler.HandleStripeWebhook)
		}

		recordsRouteGroup := apiV1.Group("/records/:collection", authMW.VerifyToken())
		{
			recordsRouteGroup.POST("", recordHandler.CreateRecord)
			recordsRouteGroup.GET("", recordHandler.ListRecords)
			recordsRouteGroup.GET("/:id", recordHandler.GetRecord)
			recordsRouteGroup.PUT("/:id", recordHandler.UpdateRecord)
			recordsRouteGroup.DELETE("/:id", recordHandler.DeleteRecord)
		}

		apiV1.GET("/live/:collection", authMW.VerifyToken(), liveHandler.Stream)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Glow backend is healthy."})
	})

	logger.Info("API routes configured successfully under /api/v1 and /health.")
}
