package api

import (
	"downtime-tracker-backend/internal/engine"
	"downtime-tracker-backend/internal/observability"
	"downtime-tracker-backend/internal/report"
	"downtime-tracker-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	engine  *engine.Engine
	reports *report.Service
	metrics *observability.Metrics
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, e *engine.Engine, r *report.Service, m *observability.Metrics) *Handler {
	return &Handler{
		store:   s,
		engine:  e,
		reports: r,
		metrics: m,
	}
}
