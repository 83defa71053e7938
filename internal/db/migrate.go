package db

import (
	"fmt"

	"github.com/zulandar/lineside/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Unit{},
		&models.Step{},
		&models.UnitStep{},
		&models.Audit{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedSteps inserts the given step names with sequence 1..n, but only when
// the step table is empty. Re-running it against a populated table is a
// no-op, so it is safe to call on every startup.
func SeedSteps(db *gorm.DB, names []string) (int, error) {
	var count int64
	if err := db.Model(&models.Step{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("db: count steps: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for i, name := range names {
			step := models.Step{Name: name, Sequence: i + 1, Active: true}
			if err := tx.Create(&step).Error; err != nil {
				return fmt.Errorf("db: seed step %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(names), nil
}
