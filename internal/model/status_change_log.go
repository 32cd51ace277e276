package model

import "time"

// StatusChangeLog is the append-only audit record of a status transition.
// Rows are created exactly once per transition and never mutated.
type StatusChangeLog struct {
	ID          int64 `gorm:"primaryKey" json:"id"`
	EquipmentID int64 `gorm:"not null;index:idx_status_logs_equipment_changed,priority:1" json:"equipmentId"`

	// ChangedBy is empty for anonymous/system transitions.
	ChangedBy  string    `gorm:"size:150" json:"changedBy"`
	FromStatus Status    `gorm:"size:8;not null" json:"fromStatus"`
	ToStatus   Status    `gorm:"size:8;not null" json:"toStatus"`
	Comment    string    `gorm:"not null" json:"comment"`
	ChangedAt  time.Time `gorm:"not null;index:idx_status_logs_equipment_changed,priority:2" json:"changedAt"`

	// Associations
	Equipment Equipment `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
