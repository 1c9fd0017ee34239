package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"glow-backend-go/internal/core"
	"glow-backend-go/internal/models"
)

// PlanHandler serves client-driven plan updates.
type PlanHandler struct {
	planService core.PlanService
	logger      *zap.Logger
}

func NewPlanHandler(ps core.PlanService, logger *zap.Logger) *PlanHandler {
	return &PlanHandler{planService: ps, logger: logger}
}

// UpdatePlan handles POST /plans/update. Callers may only update their own plan.
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req models.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing required fields: userId, planId", Details: err.Error()})
		return
	}

	record, err := h.planService.UpdatePlan(c.Request.Context(), identity.UID, req)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrPlanForbidden):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "Cannot update another user's plan"})
		case errors.Is(err, core.ErrUnknownPlan), errors.Is(err, core.ErrInvalidPlanRequest):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid plan update", Details: err.Error()})
		default:
			h.logger.Error("Failed to update plan", zap.String("userID", identity.UID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to update plan"})
		}
		return
	}
	c.JSON(http.StatusOK, record)
}
