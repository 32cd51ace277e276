package model

import "time"

// Department groups equipment by plant area (e.g., QC, PUR, UTIL).
type Department struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:120;not null" json:"name"`
	Code        string    `gorm:"uniqueIndex;size:40;not null" json:"code"`
	Description string    `gorm:"size:512" json:"description"`
	IsActive    bool      `gorm:"not null;default:true" json:"isActive"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`

	// Associations
	Equipment []Equipment `gorm:"foreignKey:DepartmentID" json:"-"`
}
