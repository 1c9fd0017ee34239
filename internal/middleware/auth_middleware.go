package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"glow-backend-go/internal/models"
)

const identityKey = "identity"

// ErrorResponse mirrors api.ErrorResponse to avoid an import cycle.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// TokenVerifier verifies Firebase ID tokens. *auth.Client satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthMiddleware provides Gin middleware for Firebase token authentication.
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware instance.
func NewAuthMiddleware(verifier TokenVerifier, logger *zap.Logger) *AuthMiddleware {
	if verifier == nil {
		panic("AuthMiddleware requires a non-nil TokenVerifier")
	}
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// VerifyToken verifies the bearer token and stores the caller's Identity in the context.
func (m *AuthMiddleware) VerifyToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header is required"})
			return
		}

		// Expect "Bearer <token>".
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header format must be 'Bearer {token}'"})
			return
		}

		// Checks signature, expiry, audience and issuer.
		token, err := m.verifier.VerifyIDToken(c.Request.Context(), parts[1])
		if err != nil {
			m.logger.Warn("Firebase ID token verification failed",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired authentication token"})
			return
		}

		// Handlers read the caller through IdentityFromContext.
		c.Set(identityKey, identityFromToken(token))
		c.Next()
	}
}

func identityFromToken(token *auth.Token) models.Identity {
	id := models.Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		id.DisplayName = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		id.PhotoURL = picture
	}
	return id
}

// IdentityFromContext returns the Identity set by VerifyToken.
func IdentityFromContext(c *gin.Context) (models.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	if !ok || id.UID == "" {
		return models.Identity{}, false
	}
	return id, true
}
