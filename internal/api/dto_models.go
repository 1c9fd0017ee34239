package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"glow-backend-go/internal/core"
	"glow-backend-go/internal/middleware"
	"glow-backend-go/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WebhookAck acknowledges a webhook delivery.
type WebhookAck struct {
	Received bool `json:"received"`
}

// CreatePortalSessionResponse returns the URL for the Stripe Customer Portal.
type CreatePortalSessionResponse struct {
	URL string `json:"url"`
}

// SnapshotEvent is the data of one "snapshot" server-sent event.
type SnapshotEvent struct {
	Records []models.Record `json:"records"`
	Loading bool            `json:"loading"`
	Error   string          `json:"error,omitempty"`
}

func newSnapshotEvent(st core.MirrorState) SnapshotEvent {
	ev := SnapshotEvent{Records: st.Records, Loading: st.Loading}
	if st.Err != nil {
		ev.Error = st.Err.Error()
	}
	return ev
}

// RegisterValidators adds the custom binding tags used by request models.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("planid", func(fl validator.FieldLevel) bool {
		return models.PlanID(fl.Field().String()).Valid()
	})
}

// requireIdentity returns the caller's identity or answers 401.
func requireIdentity(c *gin.Context) (models.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication error: identity not found in context"})
		return models.Identity{}, false
	}
	return identity, true
}
