package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"downtime-tracker-backend/internal/export"
	"downtime-tracker-backend/internal/model"
	"downtime-tracker-backend/internal/report"
	"downtime-tracker-backend/internal/store"
)

// GetReport handles the GET /api/reports request.
func (h *Handler) GetReport(c *gin.Context) {
	params, err := parseReportParams(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reports.Generate(c.Request.Context(), params)
	if err != nil {
		h.metrics.ReportsTotal.WithLabelValues(scopeLabel(params.Scope), "error").Inc()
		status := reportErrorStatus(err)
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}

	h.metrics.ReportsTotal.WithLabelValues(scopeLabel(params.Scope), "ok").Inc()
	c.JSON(http.StatusOK, result)
}

// ExportReport handles the GET /api/reports/export request, rendering the
// same report as a downloadable file.
func (h *Handler) ExportReport(c *gin.Context) {
	params, err := parseReportParams(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reports.Generate(c.Request.Context(), params)
	if err != nil {
		c.AbortWithStatusJSON(reportErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	filename := "downtime-report-" + result.WindowStart.Format("20060102") +
		"-" + result.WindowEnd.Format("20060102")

	var (
		payload     []byte
		contentType string
	)
	switch format := c.DefaultQuery("format", "csv"); format {
	case "csv":
		payload, err = export.BuildReportCSV(result)
		contentType = "text/csv"
		filename += ".csv"
	case "xlsx":
		payload, err = export.BuildReportXLSX(result)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename += ".xlsx"
	case "pdf":
		payload, err = export.BuildReportPDF(result)
		contentType = "application/pdf"
		filename += ".pdf"
	default:
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unsupported format: " + format})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to render report"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}

// parseReportParams reads the shared report query parameters. The window
// can be given either as a calendar year (year=2024) or as explicit
// from/to timestamps (RFC3339 or YYYY-MM-DD).
func parseReportParams(c *gin.Context) (report.Params, error) {
	var p report.Params

	window, err := parseWindow(c)
	if err != nil {
		return p, err
	}
	p.Window = window

	if raw := c.Query("category"); raw != "" {
		category := model.Category(raw)
		if !category.Valid() {
			return p, fmt.Errorf("invalid category %q", raw)
		}
		p.Category = &category
	}

	if raw := c.Query("equipment"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return p, fmt.Errorf("invalid equipment id %q", raw)
		}
		p.Scope.EquipmentID = id
	}
	p.Scope.DepartmentCode = c.Query("department")

	if raw := c.Query("now"); raw != "" {
		now, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return p, fmt.Errorf("invalid 'now' timestamp: use RFC3339")
		}
		p.Now = now
	}

	if raw := c.Query("top"); raw != "" {
		top, err := strconv.Atoi(raw)
		if err != nil || top < 1 || top > 100 {
			return p, fmt.Errorf("invalid 'top': must be an integer in [1, 100]")
		}
		p.TopN = top
	}

	return p, nil
}

func parseWindow(c *gin.Context) (report.Window, error) {
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil || year < 1970 || year > 9999 {
			return report.Window{}, fmt.Errorf("invalid year %q", raw)
		}
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return report.Window{Start: start, End: start.AddDate(1, 0, 0)}, nil
	}

	from, err := parseTimestamp(c.Query("from"))
	if err != nil {
		return report.Window{}, fmt.Errorf("invalid 'from': %w", err)
	}
	to, err := parseTimestamp(c.Query("to"))
	if err != nil {
		return report.Window{}, fmt.Errorf("invalid 'to': %w", err)
	}
	return report.Window{Start: from, End: to}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("use RFC3339 or YYYY-MM-DD")
}

func reportErrorStatus(err error) int {
	switch {
	case errors.Is(err, report.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func scopeLabel(s store.Scope) string {
	switch {
	case s.EquipmentID != 0:
		return "equipment"
	case s.DepartmentCode != "":
		return "department"
	default:
		return "fleet"
	}
}
