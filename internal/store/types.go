package store

import (
	"time"

	"downtime-tracker-backend/internal/model"
)

// Scope narrows a query to one equipment unit, one department, or (zero
// value) the whole fleet.
type Scope struct {
	EquipmentID    int64
	DepartmentCode string
}

// EventQuery selects downtime events intersecting a half-open time window
// [WindowStart, WindowEnd), optionally narrowed by scope and category.
type EventQuery struct {
	Scope       Scope
	Category    *model.Category
	WindowStart time.Time
	WindowEnd   time.Time
}
