package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"downtime-tracker-backend/internal/engine"
	"downtime-tracker-backend/internal/model"
	"downtime-tracker-backend/internal/mw"
	"downtime-tracker-backend/internal/store"
)

type statusChangeRequest struct {
	NewStatus string     `json:"new_status" binding:"required"`
	Comment   string     `json:"comment" binding:"required"`
	Category  string     `json:"category"`
	ChangedAt *time.Time `json:"changed_at"`
}

// PostStatusChange handles the POST /api/equipment/{id}/status request.
func (h *Handler) PostStatusChange(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid equipment ID"})
		return
	}

	var req statusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	transition := engine.Request{
		NewStatus: model.Status(req.NewStatus),
		Comment:   req.Comment,
		Category:  model.Category(req.Category),
		Actor:     mw.ActorFrom(c),
	}
	if req.ChangedAt != nil {
		transition.At = *req.ChangedAt
	}

	entry, err := h.engine.ApplyTransition(c.Request.Context(), id, transition)
	if err != nil {
		status, message := transitionErrorStatus(err)
		h.metrics.TransitionsTotal.WithLabelValues(req.NewStatus, "error").Inc()
		c.AbortWithStatusJSON(status, gin.H{"error": message, "equipment_id": id})
		return
	}

	h.metrics.TransitionsTotal.WithLabelValues(string(entry.ToStatus), "ok").Inc()
	c.JSON(http.StatusCreated, entry)
}

// transitionErrorStatus maps the engine's error taxonomy onto HTTP codes:
// malformed requests are 400, state conflicts (including lost races, which
// a client may retry once after refreshing) are 409.
func transitionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrInvalidStatus),
		errors.Is(err, engine.ErrMissingComment),
		errors.Is(err, engine.ErrMissingCategory):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, engine.ErrNoOpTransition),
		errors.Is(err, engine.ErrDuplicateOpenEvent),
		errors.Is(err, engine.ErrNoOpenEventToClose),
		errors.Is(err, engine.ErrConcurrentModification):
		return http.StatusConflict, err.Error()
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Equipment not found"
	default:
		return http.StatusInternalServerError, "Failed to apply status change"
	}
}
