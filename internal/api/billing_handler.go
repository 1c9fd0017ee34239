package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"glow-backend-go/internal/core"
	"glow-backend-go/internal/models"
)

// maxWebhookBodyBytes caps webhook payloads, matching the limit Stripe documents.
const maxWebhookBodyBytes = 65536

// BillingHandler handles billing-related API endpoints.
type BillingHandler struct {
	billingService core.BillingService
	planService    core.PlanService
	logger         *zap.Logger
}

// NewBillingHandler creates a new BillingHandler.
func NewBillingHandler(bs core.BillingService, ps core.PlanService, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: bs,
		planService:    ps,
		logger:         logger,
	}
}

// mapBillingErrorToStatus maps errors from the billing flows to HTTP status codes.
func (h *BillingHandler) mapBillingErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrUnknownPlan), errors.Is(err, core.ErrPlanNotPurchasable):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: "Plan cannot be purchased", Details: err.Error()}
	case errors.Is(err, core.ErrStripeClient):
		statusCode = http.StatusServiceUnavailable
		errResponse = ErrorResponse{Error: "Payment provider error", Details: "Could not complete the operation with the payment provider."}
		h.logger.Error("Stripe client error", zap.Error(err))
	case errors.Is(err, core.ErrUserStripeNotLinked):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: "User not linked to payment provider", Details: err.Error()}
	case errors.Is(err, core.ErrSubscriptionForbidden):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: "Subscription does not belong to the user"}
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: "User profile not found", Details: "Initialize the user profile first."}
	default:
		h.logger.Error("Internal error in billing handler", zap.Error(err))
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// HandleStripeWebhook handles POST /billing/webhooks/stripe.
// Public route; the Stripe-Signature header authenticates the sender.
func (h *BillingHandler) HandleStripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		// oversized bodies are a client error like a bad signature
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("Stripe webhook payload too large", zap.Int64("limit", tooLarge.Limit))
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Webhook payload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read webhook payload"})
		return
	}

	event, err := h.billingService.ConstructEvent(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Warn("Stripe webhook rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Webhook signature verification failed"})
		return
	}

	out := h.planService.HandleEvent(c.Request.Context(), event)
	if out.Kind == core.OutcomeFailed {
		if errors.Is(out.Err, core.ErrMalformedEvent) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Malformed webhook event", Details: out.Err.Error()})
			return
		}
		// a 5xx makes Stripe redeliver later
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Webhook processing failed"})
		return
	}
	c.JSON(http.StatusOK, WebhookAck{Received: true})
}

// Subscribe handles POST /billing/subscribe.
func (h *BillingHandler) Subscribe(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	result, err := h.billingService.Subscribe(c.Request.Context(), identity, models.PlanID(req.PlanID))
	if err != nil {
		h.mapBillingErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CancelSubscription handles POST /billing/cancel.
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	sub, err := h.billingService.CancelSubscription(c.Request.Context(), identity, req.SubscriptionID)
	if err != nil {
		h.mapBillingErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subscriptionId":    sub.ID,
		"cancelAtPeriodEnd": sub.CancelAtPeriodEnd,
		"currentPeriodEnd":  sub.CurrentPeriodEnd,
	})
}

// CreatePortalSession handles POST /billing/portal.
func (h *BillingHandler) CreatePortalSession(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	portalURL, err := h.billingService.CreatePortalSession(c.Request.Context(), identity)
	if err != nil {
		h.mapBillingErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, CreatePortalSessionResponse{URL: portalURL})
}

// GetPlan handles GET /billing/plan and returns the caller's effective plan.
func (h *BillingHandler) GetPlan(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	record, err := h.planService.GetPlan(c.Request.Context(), identity.UID)
	if err != nil {
		h.logger.Error("Failed to load plan", zap.String("userID", identity.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to load plan"})
		return
	}
	c.JSON(http.StatusOK, record)
}
