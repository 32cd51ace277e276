package model

import (
	"fmt"
	"time"
)

// Category classifies a downtime event.
type Category string

const (
	CategoryPlanned   Category = "PLANNED"
	CategoryUnplanned Category = "UNPLANNED"
)

// Valid reports whether c is a recognized category value.
func (c Category) Valid() bool {
	return c == CategoryPlanned || c == CategoryUnplanned
}

// DowntimeEvent records one continuous period an equipment unit was DOWN.
// EndedAt is nil while the outage is ongoing. At most one open event may
// exist per equipment; the storage layer enforces this with a partial
// unique index in addition to the engine's checks.
type DowntimeEvent struct {
	ID          int64    `gorm:"primaryKey" json:"id"`
	EquipmentID int64    `gorm:"not null;index:idx_downtime_events_equipment_started,priority:1" json:"equipmentId"`
	Category    Category `gorm:"size:16;not null;index" json:"category"`

	StartedAt time.Time  `gorm:"not null;index:idx_downtime_events_equipment_started,priority:2" json:"startedAt"`
	EndedAt   *time.Time `gorm:"index" json:"endedAt"`

	StartComment string `gorm:"not null" json:"startComment"`
	EndComment   string `json:"endComment"`

	// Actor identities captured at open/close time; empty for anonymous.
	CreatedBy string `gorm:"size:150" json:"createdBy"`
	ClosedBy  string `gorm:"size:150" json:"closedBy"`

	// Back-references to the audit log entries that opened and closed the event.
	StartedByLogID *int64 `json:"startedByLogId"`
	EndedByLogID   *int64 `json:"endedByLogId"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	// Associations
	Equipment Equipment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// IsOpen reports whether the event is still ongoing.
func (e *DowntimeEvent) IsOpen() bool {
	return e.EndedAt == nil
}

// Duration is the event length, using now for open events.
func (e *DowntimeEvent) Duration(now time.Time) time.Duration {
	end := now
	if e.EndedAt != nil {
		end = *e.EndedAt
	}
	return end.Sub(e.StartedAt)
}

// DurationDisplay formats the event length as "Xd HHh MMm".
func (e *DowntimeEvent) DurationDisplay(now time.Time) string {
	seconds := int(e.Duration(now).Seconds())
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dd %02dh %02dm", days, hours, minutes)
}
