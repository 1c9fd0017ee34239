package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"glow-backend-go/internal/core"
)

// AuthHandler handles authentication related API endpoints.
type AuthHandler struct {
	userService core.UserService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(us core.UserService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{userService: us, logger: logger}
}

// InitializeUserProfile handles POST /api/v1/users/initialize.
// Called by the client after Firebase sign-in so that the user document exists.
func (h *AuthHandler) InitializeUserProfile(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	user, created, err := h.userService.GetOrCreate(c.Request.Context(), identity)
	if err != nil {
		h.logger.Error("Failed to initialize user profile", zap.String("userID", identity.UID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to initialize user profile"})
		return
	}

	if created {
		h.logger.Info("User profile created", zap.String("userID", identity.UID))
		c.JSON(http.StatusCreated, user)
		return
	}
	c.JSON(http.StatusOK, user)
}
