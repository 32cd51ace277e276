package model

import "time"

// Status is the operational state of a piece of equipment.
type Status string

const (
	StatusUp   Status = "UP"
	StatusDown Status = "DOWN"
)

// Valid reports whether s is a recognized status value.
func (s Status) Valid() bool {
	return s == StatusUp || s == StatusDown
}

// Equipment represents one tracked asset. Its Status field is mutated only by
// the transition engine and always agrees with whether an open DowntimeEvent
// exists: DOWN means exactly one open event, UP means none.
type Equipment struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	DepartmentID int64  `gorm:"not null;index:idx_equipment_department_status,priority:1" json:"departmentId"`
	AssetNumber  string `gorm:"uniqueIndex;size:64;not null" json:"assetNumber"`
	Description  string `gorm:"size:255;not null" json:"description"`
	Location     string `gorm:"size:255" json:"location"`
	IsActive     bool   `gorm:"not null;default:true" json:"isActive"`

	Status          Status    `gorm:"size:8;not null;default:UP;index:idx_equipment_department_status,priority:2" json:"status"`
	StatusUpdatedAt time.Time `gorm:"not null" json:"statusUpdatedAt"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`

	// Associations
	Department Department `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
}
