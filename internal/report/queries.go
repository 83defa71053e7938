// Package report provides read-side views: dashboard aggregation, the CSV
// export projection, and audit history queries. Everything is recomputed
// per call; there is no caching layer.
package report

import (
	"fmt"
	"time"

	"github.com/zulandar/lineside/internal/models"
	"github.com/zulandar/lineside/internal/progress"
	"gorm.io/gorm"
)

// StepCount holds per-step status totals for the dashboard.
type StepCount struct {
	StepID   uint
	Name     string
	Sequence int
	Pending  int
	Pass     int
	Fail     int
	Total    int
}

// StepSummary returns status counts for each active step in sequence
// order. Steps with no unit rows yet appear zero-filled.
func StepSummary(db *gorm.DB) ([]StepCount, error) {
	steps, err := progress.ActiveSteps(db)
	if err != nil {
		return nil, err
	}

	type row struct {
		StepID uint
		Status string
		Count  int
	}
	var rows []row
	err = db.Model(&models.UnitStep{}).
		Select("step_id, status, COUNT(*) as count").
		Group("step_id, status").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("report: step summary: %w", err)
	}

	byStep := make(map[uint]*StepCount, len(steps))
	result := make([]StepCount, len(steps))
	for i, s := range steps {
		result[i] = StepCount{StepID: s.ID, Name: s.Name, Sequence: s.Sequence}
		byStep[s.ID] = &result[i]
	}
	for _, r := range rows {
		sc, ok := byStep[r.StepID]
		if !ok {
			// Archived step; not shown on the dashboard.
			continue
		}
		sc.Total += r.Count
		switch r.Status {
		case models.StatusPending:
			sc.Pending += r.Count
		case models.StatusPass:
			sc.Pass += r.Count
		case models.StatusFail:
			sc.Fail += r.Count
		}
	}
	return result, nil
}

// UnitCount returns the total number of units.
func UnitCount(db *gorm.DB) (int64, error) {
	var count int64
	if err := db.Model(&models.Unit{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("report: unit count: %w", err)
	}
	return count, nil
}

// ChecklistRow pairs an active step with the unit's state at that step.
// Missing UnitStep rows show the lazy-backfill default: pending, no notes.
type ChecklistRow struct {
	Step      models.Step
	Status    string
	Station   string
	Operator  string
	Notes     string
	UpdatedAt time.Time
	Scored    bool // false when the row is the implicit pending default
}

// UnitChecklist returns the unit's state across all active steps in
// sequence order.
func UnitChecklist(db *gorm.DB, serial string) (*models.Unit, []ChecklistRow, error) {
	unit, err := progress.GetUnit(db, serial)
	if err != nil {
		return nil, nil, err
	}
	steps, err := progress.ActiveSteps(db)
	if err != nil {
		return nil, nil, err
	}

	var unitSteps []models.UnitStep
	if err := db.Where("unit_id = ?", unit.ID).Find(&unitSteps).Error; err != nil {
		return nil, nil, fmt.Errorf("report: checklist for %s: %w", serial, err)
	}
	byStep := make(map[uint]models.UnitStep, len(unitSteps))
	for _, us := range unitSteps {
		byStep[us.StepID] = us
	}

	rows := make([]ChecklistRow, len(steps))
	for i, s := range steps {
		rows[i] = ChecklistRow{Step: s, Status: models.StatusPending}
		if us, ok := byStep[s.ID]; ok {
			rows[i].Status = us.Status
			rows[i].Station = us.Station
			rows[i].Operator = us.Operator
			rows[i].Notes = us.Notes
			rows[i].UpdatedAt = us.UpdatedAt
			rows[i].Scored = true
		}
	}
	return unit, rows, nil
}

// ExportRows builds the roster export projection: header "serial" plus a
// "<Name> Status"/"<Name> Notes" pair per active step in sequence order,
// one row per unit ordered by serial. Missing UnitStep rows export as
// pending with empty notes, matching the live checklist view.
func ExportRows(db *gorm.DB) ([]string, [][]string, error) {
	steps, err := progress.ActiveSteps(db)
	if err != nil {
		return nil, nil, err
	}

	header := make([]string, 0, 1+2*len(steps))
	header = append(header, "serial")
	for _, s := range steps {
		header = append(header, s.Name+" Status", s.Name+" Notes")
	}

	var units []models.Unit
	if err := db.Order("serial ASC").Find(&units).Error; err != nil {
		return nil, nil, fmt.Errorf("report: list units: %w", err)
	}

	rows := make([][]string, 0, len(units))
	for _, u := range units {
		var unitSteps []models.UnitStep
		if err := db.Where("unit_id = ?", u.ID).Find(&unitSteps).Error; err != nil {
			return nil, nil, fmt.Errorf("report: steps for %s: %w", u.Serial, err)
		}
		byStep := make(map[uint]models.UnitStep, len(unitSteps))
		for _, us := range unitSteps {
			byStep[us.StepID] = us
		}

		row := make([]string, 0, len(header))
		row = append(row, u.Serial)
		for _, s := range steps {
			if us, ok := byStep[s.ID]; ok {
				row = append(row, us.Status, us.Notes)
			} else {
				row = append(row, models.StatusPending, "")
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// AuditFilter narrows an audit trail query. Zero values match everything.
type AuditFilter struct {
	Serial   string
	StepName string
	Limit    int
}

// AuditTrail returns audit entries newest first. Entries match by the
// serial and step name stored at write time, so history for archived or
// renamed steps stays queryable.
func AuditTrail(db *gorm.DB, filter AuditFilter) ([]models.Audit, error) {
	q := db.Model(&models.Audit{})
	if filter.Serial != "" {
		q = q.Where("unit_serial = ?", filter.Serial)
	}
	if filter.StepName != "" {
		q = q.Where("step_name = ?", filter.StepName)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var audits []models.Audit
	if err := q.Order("at DESC, id DESC").Find(&audits).Error; err != nil {
		return nil, fmt.Errorf("report: audit trail: %w", err)
	}
	return audits, nil
}
