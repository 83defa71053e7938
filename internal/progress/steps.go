package progress

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zulandar/lineside/internal/models"
	"gorm.io/gorm"
)

// ActiveSteps returns all active steps ordered by sequence.
func ActiveSteps(db *gorm.DB) ([]models.Step, error) {
	var steps []models.Step
	if err := db.Where("active = ?", true).Order("sequence ASC").Find(&steps).Error; err != nil {
		return nil, fmt.Errorf("progress: list active steps: %w", err)
	}
	return steps, nil
}

// ArchivedSteps returns all archived steps ordered by sequence.
func ArchivedSteps(db *gorm.DB) ([]models.Step, error) {
	var steps []models.Step
	if err := db.Where("active = ?", false).Order("sequence ASC").Find(&steps).Error; err != nil {
		return nil, fmt.Errorf("progress: list archived steps: %w", err)
	}
	return steps, nil
}

// GetStep retrieves a step by ID.
func GetStep(db *gorm.DB, id uint) (*models.Step, error) {
	var step models.Step
	if err := db.Where("id = ?", id).First(&step).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("progress: step %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("progress: get step %d: %w", id, err)
	}
	return &step, nil
}

// AddStep appends an active step at the end of the sequence and backfills
// a pending UnitStep for every existing unit, so units always have full
// coverage across active steps.
func AddStep(db *gorm.DB, name string) (*models.Step, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("progress: step name is required")
	}

	var count int64
	if err := db.Model(&models.Step{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("progress: check step name %q: %w", name, err)
	}
	if count > 0 {
		return nil, fmt.Errorf("progress: add step %q: %w", name, ErrStepExists)
	}

	var step models.Step
	err := db.Transaction(func(tx *gorm.DB) error {
		var maxSeq int
		row := tx.Model(&models.Step{}).Select("COALESCE(MAX(sequence), 0)").Row()
		if err := row.Scan(&maxSeq); err != nil {
			return fmt.Errorf("progress: max sequence: %w", err)
		}

		step = models.Step{Name: name, Sequence: maxSeq + 1, Active: true}
		if err := tx.Create(&step).Error; err != nil {
			return fmt.Errorf("progress: add step %q: %w", name, err)
		}

		var units []models.Unit
		if err := tx.Find(&units).Error; err != nil {
			return fmt.Errorf("progress: list units for backfill: %w", err)
		}
		for _, u := range units {
			us := models.UnitStep{UnitID: u.ID, StepID: step.ID, Status: models.StatusPending}
			if err := tx.Create(&us).Error; err != nil {
				return fmt.Errorf("progress: backfill %s/%s: %w", u.Serial, name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// ArchiveStep marks a step inactive. Its UnitStep and Audit rows remain so
// historical queries keep working; checklist and dashboard views simply
// stop including it.
func ArchiveStep(db *gorm.DB, stepID uint) error {
	step, err := GetStep(db, stepID)
	if err != nil {
		return err
	}
	if err := db.Model(step).Update("active", false).Error; err != nil {
		return fmt.Errorf("progress: archive step %q: %w", step.Name, err)
	}
	return nil
}

// RenameStep changes a step's name. Audit rows keep the name that was
// current when they were written.
func RenameStep(db *gorm.DB, stepID uint, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return fmt.Errorf("progress: new step name is required")
	}
	step, err := GetStep(db, stepID)
	if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&models.Step{}).Where("name = ? AND id != ?", newName, stepID).Count(&count).Error; err != nil {
		return fmt.Errorf("progress: check step name %q: %w", newName, err)
	}
	if count > 0 {
		return fmt.Errorf("progress: rename step to %q: %w", newName, ErrStepExists)
	}

	if err := db.Model(step).Update("name", newName).Error; err != nil {
		return fmt.Errorf("progress: rename step %d: %w", stepID, err)
	}
	return nil
}

// Resequence rewrites step sequence numbers 1..n following the order of
// the given IDs. Every ID must name an existing step.
func Resequence(db *gorm.DB, orderedIDs []uint) error {
	if len(orderedIDs) == 0 {
		return fmt.Errorf("progress: resequence: no step IDs given")
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for i, id := range orderedIDs {
			var count int64
			if err := tx.Model(&models.Step{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return fmt.Errorf("progress: resequence step %d: %w", id, err)
			}
			if count == 0 {
				return fmt.Errorf("progress: resequence step %d: %w", id, ErrNotFound)
			}
			if err := tx.Model(&models.Step{}).Where("id = ?", id).Update("sequence", i+1).Error; err != nil {
				return fmt.Errorf("progress: resequence step %d: %w", id, err)
			}
		}
		return nil
	})
}
