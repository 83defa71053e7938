// Package models defines the GORM models for lineside.
package models

import "time"

// Unit is a physical item tracked through production, identified by serial.
type Unit struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Serial    string `gorm:"size:64;not null;uniqueIndex"`
	Meta      string `gorm:"type:text"`
	CreatedAt time.Time

	Steps []UnitStep `gorm:"foreignKey:UnitID;constraint:OnDelete:CASCADE"`
}
