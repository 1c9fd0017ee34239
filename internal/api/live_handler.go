package api

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"glow-backend-go/internal/core"
	"glow-backend-go/internal/db"
	"glow-backend-go/internal/models"
)

// LiveHandler streams live collection mirrors as server-sent events.
type LiveHandler struct {
	source db.LiveSource
	logger *zap.Logger
}

// NewLiveHandler creates a new LiveHandler.
func NewLiveHandler(source db.LiveSource, logger *zap.Logger) *LiveHandler {
	return &LiveHandler{source: source, logger: logger}
}

// Stream handles GET /live/:collection. Every mirror state change is sent as a
// "snapshot" event; the stream ends when the client goes away or the query fails.
func (h *LiveHandler) Stream(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	q := ownerQueryFromRequest(c, identity.UID)
	if !models.IsOwnerScopedCollection(q.Collection) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: "unknown collection " + q.Collection})
		return
	}

	ctx := c.Request.Context()
	mirror := core.NewMirror(h.source, h.logger)
	if err := mirror.Attach(ctx, q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: err.Error()})
		return
	}
	defer mirror.Detach()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	h.logger.Debug("Live stream opened",
		zap.String("userID", identity.UID),
		zap.String("collection", q.Collection))

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-mirror.Changes():
			st := mirror.State()
			c.SSEvent("snapshot", newSnapshotEvent(st))
			return st.Err == nil
		}
	})
}
