package models

import "time"

// Unit step statuses.
const (
	StatusPending = "pending"
	StatusPass    = "pass"
	StatusFail    = "fail"
)

// ValidStatus reports whether s is one of the three unit step statuses.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusPass || s == StatusFail
}

// UnitStep records one unit's outcome at one step. At most one row exists
// per (unit, step) pair.
type UnitStep struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UnitID    uint   `gorm:"not null;uniqueIndex:uix_unit_step"`
	StepID    uint   `gorm:"not null;uniqueIndex:uix_unit_step"`
	Status    string `gorm:"size:16;not null;default:pending"`
	UpdatedAt time.Time
	Station   string `gorm:"size:64"`
	Operator  string `gorm:"size:64"`
	Notes     string `gorm:"type:text"`

	Unit Unit `gorm:"foreignKey:UnitID"`
	Step Step `gorm:"foreignKey:StepID"`
}
