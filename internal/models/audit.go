package models

import "time"

// Audit is the append-only log of status changes. Rows are keyed by
// denormalized serial and step name so they survive unit deletion and
// step renames. Audit rows are never updated or deleted.
type Audit struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	UnitSerial string `gorm:"size:64;not null;index"`
	StepName   string `gorm:"size:64;not null"`
	OldStatus  string `gorm:"size:16"`
	NewStatus  string `gorm:"size:16;not null"`
	Station    string `gorm:"size:64"`
	Operator   string `gorm:"size:64"`
	Notes      string `gorm:"type:text"`
	At         time.Time
}
