package models

import "time"

// Step is an ordered production stage (e.g. Kitting, Assembly, Test).
// Retired steps are archived (Active=false), never hard-deleted, so
// historical records stay intact.
type Step struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"size:64;not null;uniqueIndex"`
	Sequence  int    `gorm:"not null;index"`
	Active    bool   `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time

	UnitSteps []UnitStep `gorm:"foreignKey:StepID;constraint:OnDelete:CASCADE"`
}
