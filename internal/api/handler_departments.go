package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"downtime-tracker-backend/internal/model"
)

// DepartmentResponse represents the API response for a single department.
type DepartmentResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Code           string `json:"code"`
	Description    string `json:"description"`
	TotalEquipment int64  `json:"totalEquipment"`
	DownEquipment  int64  `json:"downEquipment"`
}

// GetDepartments handles the GET /api/departments request.
func (h *Handler) GetDepartments(c *gin.Context) {
	departments, err := h.store.ListDepartments(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve departments"})
		return
	}

	// One aggregate query for the per-department equipment counts.
	type aggRow struct {
		DepartmentID   int64
		TotalEquipment int64
		DownEquipment  int64
	}
	var aggs []aggRow
	if err := h.store.DB().
		Model(&model.Equipment{}).
		Select("department_id as department_id, COUNT(*) as total_equipment, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) as down_equipment", model.StatusDown).
		Where("is_active = ?", true).
		Group("department_id").
		Scan(&aggs).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to aggregate equipment"})
		return
	}

	aggMap := make(map[int64]aggRow, len(aggs))
	for _, a := range aggs {
		aggMap[a.DepartmentID] = a
	}

	responses := make([]DepartmentResponse, 0, len(departments))
	for _, d := range departments {
		a := aggMap[d.ID]
		responses = append(responses, DepartmentResponse{
			ID: d.ID, Name: d.Name, Code: d.Code, Description: d.Description,
			TotalEquipment: a.TotalEquipment, DownEquipment: a.DownEquipment,
		})
	}
	c.JSON(http.StatusOK, responses)
}
