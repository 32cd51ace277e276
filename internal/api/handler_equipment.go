package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"downtime-tracker-backend/internal/model"
	"downtime-tracker-backend/internal/store"
)

// equipmentStatusResponse is the flattened structure for the API response.
type equipmentStatusResponse struct {
	model.Equipment
	OpenEventSince    *time.Time `json:"openEventSince"`
	OpenEventCategory string     `json:"openEventCategory,omitempty"`
	DownFor           string     `json:"downFor,omitempty"`
}

// GetDepartmentEquipment handles the GET /api/departments/{code}/equipment request.
func (h *Handler) GetDepartmentEquipment(c *gin.Context) {
	ctx := c.Request.Context()
	code := c.Param("code")

	if _, err := h.store.GetDepartmentByCode(ctx, code); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Department not found"})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve department"})
		}
		return
	}

	equipment, err := h.store.ListEquipment(ctx, store.Scope{DepartmentCode: code})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve equipment"})
		return
	}

	// One query for all open events in the department, merged in by map.
	equipmentIDs := make([]int64, len(equipment))
	for i, eq := range equipment {
		equipmentIDs[i] = eq.ID
	}
	var openEvents []model.DowntimeEvent
	if len(equipmentIDs) > 0 {
		if err := h.store.DB().
			Where("equipment_id IN ? AND ended_at IS NULL", equipmentIDs).
			Find(&openEvents).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve open events"})
			return
		}
	}
	openMap := make(map[int64]model.DowntimeEvent, len(openEvents))
	for _, ev := range openEvents {
		openMap[ev.EquipmentID] = ev
	}

	now := time.Now().UTC()
	response := make([]equipmentStatusResponse, 0, len(equipment))
	for _, eq := range equipment {
		item := equipmentStatusResponse{Equipment: eq}
		if ev, ok := openMap[eq.ID]; ok {
			since := ev.StartedAt
			item.OpenEventSince = &since
			item.OpenEventCategory = string(ev.Category)
			item.DownFor = ev.DurationDisplay(now)
		}
		response = append(response, item)
	}
	c.JSON(http.StatusOK, response)
}

// GetEquipmentLogs handles the GET /api/equipment/{id}/logs request,
// returning the status change audit trail, most recent first.
func (h *Handler) GetEquipmentLogs(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid equipment ID"})
		return
	}

	if _, err := h.store.GetEquipment(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Equipment not found"})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve equipment"})
		}
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
	}

	logs, err := h.store.ListLogs(ctx, id, limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve status change logs"})
		return
	}
	c.JSON(http.StatusOK, logs)
}
