package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"glow-backend-go/internal/core"
	"glow-backend-go/internal/models"
)

// RecordHandler serves CRUD over the salon data collections.
type RecordHandler struct {
	recordService core.RecordService
	logger        *zap.Logger
}

// NewRecordHandler creates a new RecordHandler.
func NewRecordHandler(rs core.RecordService, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{recordService: rs, logger: logger}
}

func (h *RecordHandler) mapRecordErrorToStatus(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrUnknownCollection), errors.Is(err, core.ErrInvalidRecordFilter):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request", Details: err.Error()})
	case errors.Is(err, core.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Record not found"})
	case errors.Is(err, core.ErrRecordForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "You do not have access to this record"})
	case errors.Is(err, core.ErrOwnerRequired):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required"})
	default:
		h.logger.Error("Internal error in record handler", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
	}
}

// ownerQueryFromRequest builds the caller's query from :collection and the optional field/value pair.
func ownerQueryFromRequest(c *gin.Context, ownerID string) models.OwnerScopedQuery {
	q := models.OwnerScopedQuery{Collection: c.Param("collection"), OwnerID: ownerID}
	if field := c.Query("field"); field != "" {
		q.Filter = &models.EqualityFilter{Field: field, Value: filterValue(c.Query("value"))}
	}
	return q
}

// filterValue decodes a JSON number, boolean or quoted string so the filter matches the
// stored field type. Anything else, including bare words, is compared as a string.
func filterValue(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case float64, bool, string:
		return v
	default:
		// null, objects and arrays are not equality values
		return raw
	}
}

// CreateRecord handles POST /records/:collection
func (h *RecordHandler) CreateRecord(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	record, err := h.recordService.Create(c.Request.Context(), identity.UID, c.Param("collection"), body)
	if err != nil {
		h.mapRecordErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// ListRecords handles GET /records/:collection
func (h *RecordHandler) ListRecords(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	records, err := h.recordService.List(c.Request.Context(), ownerQueryFromRequest(c, identity.UID))
	if err != nil {
		h.mapRecordErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetRecord handles GET /records/:collection/:id
func (h *RecordHandler) GetRecord(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	record, err := h.recordService.Get(c.Request.Context(), identity.UID, c.Param("collection"), c.Param("id"))
	if err != nil {
		h.mapRecordErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// UpdateRecord handles PUT /records/:collection/:id
func (h *RecordHandler) UpdateRecord(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	record, err := h.recordService.Update(c.Request.Context(), identity.UID, c.Param("collection"), c.Param("id"), body)
	if err != nil {
		h.mapRecordErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// DeleteRecord handles DELETE /records/:collection/:id
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	if err := h.recordService.Delete(c.Request.Context(), identity.UID, c.Param("collection"), c.Param("id")); err != nil {
		h.mapRecordErrorToStatus(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
