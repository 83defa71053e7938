// Package progress implements the unit/step progression engine: checklist
// creation, status transitions with audit, and step lifecycle management.
package progress

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/lineside/internal/models"
	"gorm.io/gorm"
)

// ApplyOpts holds parameters for a status transition.
type ApplyOpts struct {
	Serial   string
	StepID   uint
	Status   string // pending, pass, fail
	Station  string
	Operator string
	Notes    string
}

// Transition describes the outcome of an Apply call.
type Transition struct {
	Serial    string
	StepName  string
	OldStatus string
	NewStatus string
	Station   string
	Operator  string
	Notes     string
	Changed   bool
	At        time.Time
}

// GetUnit retrieves a unit by serial.
func GetUnit(db *gorm.DB, serial string) (*models.Unit, error) {
	var unit models.Unit
	if err := db.Where("serial = ?", serial).First(&unit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("progress: unit %s: %w", serial, ErrNotFound)
		}
		return nil, fmt.Errorf("progress: get unit %s: %w", serial, err)
	}
	return &unit, nil
}

// CreateUnit creates a unit and one pending UnitStep per active step,
// atomically. Returns ErrDuplicateSerial if the serial is taken.
func CreateUnit(db *gorm.DB, serial string) (*models.Unit, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, fmt.Errorf("progress: serial is required")
	}

	var count int64
	if err := db.Model(&models.Unit{}).Where("serial = ?", serial).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("progress: check serial %s: %w", serial, err)
	}
	if count > 0 {
		return nil, fmt.Errorf("progress: create unit %s: %w", serial, ErrDuplicateSerial)
	}

	unit := models.Unit{Serial: serial}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&unit).Error; err != nil {
			return fmt.Errorf("progress: create unit %s: %w", serial, err)
		}
		steps, err := ActiveSteps(tx)
		if err != nil {
			return err
		}
		for _, s := range steps {
			us := models.UnitStep{UnitID: unit.ID, StepID: s.ID, Status: models.StatusPending}
			if err := tx.Create(&us).Error; err != nil {
				return fmt.Errorf("progress: create checklist row for %s/%s: %w", serial, s.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// Resolve handles the scan flow: an existing serial resolves to its unit,
// an unknown serial is auto-created only when autoCreate is on and the
// scanning station matches the first active step's name
// (case-insensitive). The bool result reports whether a unit was created.
func Resolve(db *gorm.DB, serial, station string, autoCreate bool) (*models.Unit, bool, error) {
	unit, err := GetUnit(db, serial)
	if err == nil {
		return unit, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	first, err := firstActiveStep(db)
	if err != nil {
		return nil, false, err
	}
	station = strings.TrimSpace(station)
	if !autoCreate || first == nil || !strings.EqualFold(station, first.Name) {
		authorized := ""
		if first != nil {
			authorized = first.Name
		}
		return nil, false, &UnauthorizedStationError{Station: station, Authorized: authorized}
	}

	unit, err = CreateUnit(db, serial)
	if err != nil {
		return nil, false, err
	}
	return unit, true, nil
}

// EnsureCoverage creates a pending UnitStep for every active step the unit
// is missing. Idempotent; called on its own and from the transition path.
func EnsureCoverage(db *gorm.DB, unitID uint) error {
	steps, err := ActiveSteps(db)
	if err != nil {
		return err
	}
	for _, s := range steps {
		us := models.UnitStep{UnitID: unitID, StepID: s.ID, Status: models.StatusPending}
		err := db.Where("unit_id = ? AND step_id = ?", unitID, s.ID).
			FirstOrCreate(&us).Error
		if err != nil {
			return fmt.Errorf("progress: ensure coverage for unit %d step %s: %w", unitID, s.Name, err)
		}
	}
	return nil
}

// Apply records a status transition for one unit at one step. A missing
// UnitStep row is backfilled as pending first. Setting the current status
// again is a no-op: no audit row, no timestamp bump. A real change updates
// the row and appends exactly one audit entry in the same transaction.
func Apply(db *gorm.DB, opts ApplyOpts) (*Transition, error) {
	if !models.ValidStatus(opts.Status) {
		return nil, fmt.Errorf("progress: status %q: %w", opts.Status, ErrInvalidStatus)
	}

	unit, err := GetUnit(db, opts.Serial)
	if err != nil {
		return nil, err
	}

	var step models.Step
	if err := db.Where("id = ?", opts.StepID).First(&step).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("progress: step %d: %w", opts.StepID, ErrNotFound)
		}
		return nil, fmt.Errorf("progress: get step %d: %w", opts.StepID, err)
	}

	// Lazy backfill for steps added after the unit was created.
	us := models.UnitStep{UnitID: unit.ID, StepID: step.ID, Status: models.StatusPending}
	err = db.Where("unit_id = ? AND step_id = ?", unit.ID, step.ID).FirstOrCreate(&us).Error
	if err != nil {
		return nil, fmt.Errorf("progress: backfill %s/%s: %w", unit.Serial, step.Name, err)
	}

	tr := &Transition{
		Serial:    unit.Serial,
		StepName:  step.Name,
		OldStatus: us.Status,
		NewStatus: opts.Status,
		Station:   opts.Station,
		Operator:  opts.Operator,
		Notes:     opts.Notes,
	}
	if us.Status == opts.Status {
		return tr, nil
	}

	now := time.Now()
	err = db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     opts.Status,
			"updated_at": now,
			"station":    opts.Station,
			"operator":   opts.Operator,
			"notes":      opts.Notes,
		}
		if err := tx.Model(&models.UnitStep{}).Where("id = ?", us.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("progress: update %s/%s: %w", unit.Serial, step.Name, err)
		}
		audit := models.Audit{
			UnitSerial: unit.Serial,
			StepName:   step.Name,
			OldStatus:  us.Status,
			NewStatus:  opts.Status,
			Station:    opts.Station,
			Operator:   opts.Operator,
			Notes:      opts.Notes,
			At:         now,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return fmt.Errorf("progress: audit %s/%s: %w", unit.Serial, step.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	tr.Changed = true
	tr.At = now
	return tr, nil
}

// DeleteUnit removes a unit and cascades its UnitStep rows. Audit rows are
// keyed by serial and remain. Intended for explicit removal only.
func DeleteUnit(db *gorm.DB, serial string) error {
	unit, err := GetUnit(db, serial)
	if err != nil {
		return err
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("unit_id = ?", unit.ID).Delete(&models.UnitStep{}).Error; err != nil {
			return fmt.Errorf("progress: delete checklist for %s: %w", serial, err)
		}
		if err := tx.Delete(&models.Unit{}, unit.ID).Error; err != nil {
			return fmt.Errorf("progress: delete unit %s: %w", serial, err)
		}
		return nil
	})
	return err
}

// firstActiveStep returns the lowest-sequence active step, or nil when no
// steps are active.
func firstActiveStep(db *gorm.DB) (*models.Step, error) {
	var step models.Step
	err := db.Where("active = ?", true).Order("sequence ASC").First(&step).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("progress: first active step: %w", err)
	}
	return &step, nil
}
