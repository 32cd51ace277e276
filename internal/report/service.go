package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"downtime-tracker-backend/internal/model"
	"downtime-tracker-backend/internal/store"
)

// ErrInvalidWindow is returned when the requested window is empty or
// inverted.
var ErrInvalidWindow = errors.New("window end must be after window start")

// Params describes one report request. Now defaults to the current instant
// when zero; TopN falls back to the service default.
type Params struct {
	Window   Window
	Category *model.Category
	Scope    store.Scope
	Now      time.Time
	TopN     int
}

// Result is a full report: per-equipment metrics, the rollup over the
// scope, and the Pareto ranking.
type Result struct {
	WindowStart time.Time          `json:"windowStart"`
	WindowEnd   time.Time          `json:"windowEnd"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Category    string             `json:"category,omitempty"`
	Equipment   []EquipmentMetrics `json:"equipment"`
	Summary     Summary            `json:"summary"`
	Pareto      []ParetoEntry      `json:"pareto"`
}

// Service generates reports. It only reads; report output may be slightly
// stale relative to an in-flight transition.
type Service struct {
	store       store.Store
	defaultTopN int
}

// NewService creates a report service.
func NewService(s store.Store, defaultTopN int) *Service {
	if defaultTopN <= 0 {
		defaultTopN = 10
	}
	return &Service{store: s, defaultTopN: defaultTopN}
}

// Generate computes the report for the given window and scope. With
// identical parameters and no intervening transitions the output is
// identical.
func (s *Service) Generate(ctx context.Context, p Params) (*Result, error) {
	if !p.Window.End.After(p.Window.Start) {
		return nil, ErrInvalidWindow
	}

	now := p.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	topN := p.TopN
	if topN <= 0 {
		topN = s.defaultTopN
	}

	// Resolve the scope up front so an unknown department or equipment is a
	// lookup error, not an empty report.
	if p.Scope.DepartmentCode != "" {
		if _, err := s.store.GetDepartmentByCode(ctx, p.Scope.DepartmentCode); err != nil {
			return nil, err
		}
	}
	if p.Scope.EquipmentID != 0 {
		if _, err := s.store.GetEquipment(ctx, p.Scope.EquipmentID); err != nil {
			return nil, err
		}
	}

	equipment, err := s.store.ListEquipment(ctx, p.Scope)
	if err != nil {
		return nil, err
	}

	events, err := s.store.FindEventsInWindow(ctx, store.EventQuery{
		Scope:       p.Scope,
		Category:    p.Category,
		WindowStart: p.Window.Start,
		WindowEnd:   p.Window.End,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load events for report: %w", err)
	}

	metrics := PerEquipment(equipment, events, p.Window, now)

	res := &Result{
		WindowStart: p.Window.Start,
		WindowEnd:   p.Window.End,
		GeneratedAt: now,
		Equipment:   metrics,
		Summary:     Rollup(metrics),
		Pareto:      Pareto(metrics, topN),
	}
	if p.Category != nil {
		res.Category = string(*p.Category)
	}
	return res, nil
}
