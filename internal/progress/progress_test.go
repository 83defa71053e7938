package progress

import (
	"errors"
	"testing"

	"github.com/zulandar/lineside/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Unit{}, &models.Step{}, &models.UnitStep{}, &models.Audit{}); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

// seedSteps inserts active steps with sequence 1..n.
func seedSteps(t *testing.T, db *gorm.DB, names ...string) []models.Step {
	t.Helper()
	steps := make([]models.Step, len(names))
	for i, name := range names {
		steps[i] = models.Step{Name: name, Sequence: i + 1, Active: true}
		if err := db.Create(&steps[i]).Error; err != nil {
			t.Fatalf("seed step %s: %v", name, err)
		}
	}
	return steps
}

func checklist(t *testing.T, db *gorm.DB, unitID uint) []models.UnitStep {
	t.Helper()
	var rows []models.UnitStep
	if err := db.Where("unit_id = ?", unitID).Find(&rows).Error; err != nil {
		t.Fatalf("load checklist: %v", err)
	}
	return rows
}

func auditCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.Audit{}).Count(&count).Error; err != nil {
		t.Fatalf("count audits: %v", err)
	}
	return count
}

func TestCreateUnit_FullChecklist(t *testing.T) {
	db := openTestDB(t)
	seedSteps(t, db, "Kitting", "Assembly", "Test")

	unit, err := CreateUnit(db, "SN001")
	if err != nil {
		t.Fatalf("CreateUnit() error: %v", err)
	}
	if unit.Serial != "SN001" {
		t.Errorf("Serial = %q, want SN001", unit.Serial)
	}

	rows := checklist(t, db, unit.ID)
	if len(rows) != 3 {
		t.Fatalf("checklist rows = %d, want 3", len(rows))
	}
	for _, r := range rows {
		if r.Status != models.StatusPending {
			t.Errorf("row step %d status = %q, want pending", r.StepID, r.Status)
		}
	}
	if n := auditCount(t, db); n != 0 {
		t.Errorf("audit rows = %d, want 0 after creation", n)
	}
}

func TestCreateUnit_SkipsArchivedSteps(t *testing.T) {
	db := openTestDB(t)
	steps := seedSteps(t, db, "Kitting", "Assembly")
	if err := ArchiveStep(db, steps[1].ID); err != nil {
		t.Fatalf("ArchiveStep() error: %v", err)
	}

	unit, err := CreateUnit(db, "SN002")
	if err != nil {
		t.Fatalf("CreateUnit() error: %v", err)
	}
	rows := checklist(t, db, unit.ID)
	if len(rows) != 1 {
		t.Fatalf("checklist rows = %d, want 1 (archived step excluded)", len(rows))
	}
	if rows[0].StepID != steps[0].ID {
		t.Errorf("checklist covers step %d, want %d", rows[0].StepID, steps[0].ID)
	}
}

func TestCreateUnit_DuplicateSerial(t *testing.T) {
	db := openTestDB(t)
	seedSteps(t, db, "Kitting")
	if _, err := CreateUnit(db, "SN003"); err != nil {
		t.Fatalf("first CreateUnit() error: %v", err)
	}

	_, err := CreateUnit(db, "SN003")
	if !errors.Is(err, ErrDuplicateSerial) {
		t.Errorf("error = %v, want ErrDuplicateSerial", err)
	}
}

func TestCreateUnit_EmptySerial(t *testing.T) {
	db := openTestDB(t)
	if _, err := CreateUnit(db, "   "); err == nil {
		t.Error("expected error for blank serial, got nil")
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		station     string
		autoCreate  bool
		wantCreated bool
		wantAuthErr bool
	}{
		{name: "station matches first step", station: "Kitting", autoCreate: true, wantCreated: true},
		{name: "case-insensitive match", station: "kitting", autoCreate: true, wantCreated: true},
		{name: "match with surrounding spaces", station: "  Kitting ", autoCreate: true, wantCreated: true},
		{name: "wrong station refused", station: "Assembly", autoCreate: true, wantAuthErr: true},
		{name: "empty station refused", station: "", autoCreate: true, wantAuthErr: true},
		{name: "auto-create disabled", station: "Kitting", autoCreate: false, wantAuthErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := openTestDB(t)
			seedSteps(t, db, "Kitting", "Assembly")

			unit, created, err := Resolve(db, "SN100", tt.station, tt.autoCreate)
			if tt.wantAuthErr {
				var authErr *UnauthorizedStationError
				if !errors.As(err, &authErr) {
					t.Fatalf("error = %v, want UnauthorizedStationError", err)
				}
				if authErr.Authorized != "Kitting" {
					t.Errorf("Authorized = %q, want Kitting", authErr.Authorized)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if created != tt.wantCreated {
				t.Errorf("created = %v, want %v", created, tt.wantCreated)
			}
			if rows := checklist(t, db, unit.ID); len(rows) != 2 {
				t.Errorf("checklist rows = %d, want 2", len(rows))
			}
		})
	}
}

func TestResolve_ExistingUnitAnyStation(t *testing.T) {
	db := openTestDB(t)
	seedSteps(t, db, "Kitting", "Assembly")
	if _, err := CreateUnit(db, "SN100"); err != nil {
		t.Fatalf("CreateUnit() error: %v", err)
	}

	unit, created, err := Resolve(db, "SN100", "Assembly", true)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if created {
		t.Error("created = true, want false for existing unit")
	}
	if unit.Serial != "SN100" {
		t.Errorf("Serial = %q, want SN100", unit.Serial)
	}
}

func TestResolve_NoActiveSteps(t *testing.T) {
	db := openTestDB(t)

	_, _, err := Resolve(db, "SN100", "Kitting", true)
	var authErr *UnauthorizedStationError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want UnauthorizedStationError", err)
	}
	if authErr.Authorized != "" {
		t.Errorf("Authorized = %q, want empty when no active steps", authErr.Authorized)
	}
}

func TestApply_TransitionWithAudit(t *testing.T) {
	db := openTestDB(t)
	steps := seedSteps(t, db, "Kitting", "Assembly")
	if _, err := CreateUnit(db, "SN100"); err != nil {
		t.Fatalf("CreateUnit() error: %v", err)
	}

	tr, err := Apply(db, ApplyOpts{
		Serial:   "SN100",
		StepID:   steps[0].ID,
		Status:   models.StatusPass,
		Station:  "Kitting",
		Operator: "alice",
		Notes:    "ok",
	})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if !tr.Changed {
		t.Error("Changed = false, want true")
	}
	if tr.OldStatus != models.StatusPending || tr.NewStatus != models.StatusPass {
		t.Errorf("transition = %s→%s, want pending→pass", tr.OldStatus, tr.NewStatus)
	}

	var us models.UnitStep
	if err := db.Where("step_id = ?", steps[0].ID).First(&us).Error; err != nil {
		t.Fatalf("load unit step: %v", err)
	}
	if us.Status != models.StatusPass || us.Operator != "alice" || us.Station != "Kitting" || us.Notes != "ok" {
		t.Errorf("row = {%s %s %s %s}, want {pass Kitting alice ok}", us.Status, us.Station, us.Operator, us.Notes)
	}

	var audits []models.Audit
	if err := db.Find(&audits).Error; err != nil {
		t.Fatalf("load audits: %v", err)
	}
	if len(audits) != 1 {
		t.Fatalf("audit rows = %d, want 1", len(audits))
	}
	a := audits[0]
	if a.UnitSerial != "SN100" || a.StepName != "Kitting" || a.OldStatus != models.StatusPending ||
		a.NewStatus != models.StatusPass || a.Operator != "alice" {
		t.Errorf("audit = %+v, want SN100/Kitting pending→pass by alice", a)
	}
}

func TestApply_Idempotent(t *testing.T) {
	db := openTestDB(t)
	steps := seedSteps(t, db, "Kitting")
	if _, err := CreateUnit(db, "SN100"); err != nil {
		t.Fatalf("CreateUnit() error: %v", err)
	}

	opts := ApplyOpts{Serial: "SN100", StepID: steps[0].ID, Status: models.StatusPass, Operator: "alice"}
	if _, err := Apply(db, opts); err != nil {
		t.Fatalf("first Apply() error: %v", err)
	}
	tr, err := Apply(db, opts)
	if err != nil {
		t.Fatalf("second Apply() error: %v", err)
	}
	if tr.Changed {
		t.Error("Changed = true on repeat apply, want false")
	}
	if n := auditCount(t, db); n != 1 {
		t.Errorf("audit rows = %d, want exactly 1 after repeat apply", n)
	}
}

func TestApply_AnyDirectionAllowed(t *testing.T) {
	db := openTestDB(t)
	steps := seedSteps(t, db, "Kitting")
	if _, err := CreateUnit(db, "SN100"); err != nil {
		t.Fatalf("CreateUnit() error: %v", err)
	}

	// Operator corrections go backwards too: pass → fail → pending.
	sequence := []string{models.StatusPass, models.StatusFail, models.StatusPending}
	for _, status := range sequence {
		tr, err := Apply(db, ApplyOpts{Serial: "SN100", StepID: steps[0].ID, Status: status})
		if err != nil {
			t.Fatalf("Apply(%s) error: %v", status, err)
		}
		if !tr.Changed {
			t.Errorf("Apply(%s).Changed = false, want true", status)
		}
	}
	if n := auditCount(t, db); n != 3 {
		t.Errorf("audit rows = %d, want 3", n)
	}
}

func TestApply_LazyBackfill(t *testing.T) {
	db := openTestDB(t)
	seedSteps(t, db, "Kitting")
	unit, err := CreateUnit(db, "SN100")
	if err != nil {
		t.Fatalf("CreateUnit() error: %v", err)
	}

	// A step added after the unit existed, without AddStep's backfill.
	late := models.Step{Name: "Pack", Sequence: 2, Active: true}
	if err := db.Create(&late).Error; err != nil {
		t.Fatalf("create late step: %v", err)
	}

	tr, err := Apply(db, ApplyOpts{Serial: "SN100", StepID: late.ID, Status: models.StatusPass})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if tr.OldStatus != models.StatusPending {
		t.Errorf("OldStatus = %q, want pending from lazy backfill", tr.OldStatus)
	}

	rows := checklist(t, db, unit.ID)
	if len(rows) != 2 {
		t.Errorf("checklist rows = %d, want 2 after backfill", len(rows))
	}
}

func TestApply_UniquePairInvariant(t *testing.T) {
	db := openTestDB(t)
	steps := seedSteps(t, db, "Kitting")
	unit, err := CreateUnit(db, "SN100")
	if err != nil {
		t.Fatalf("CreateUnit() error: %v", err)
	}

	// Rapid repeated transitions must never duplicate the (unit, step) row.
	for _, status := range []string{"pass", "fail", "pass", "pending", "fail"} {
		if _, err := Apply(db, ApplyOpts{Serial: "SN100", StepID: steps[0].ID, Status: status}); err != nil {
			t.Fatalf("Apply(%s) error: %v", status, err)
		}
	}
	if err := EnsureCoverage(db, unit.ID); err != nil {
		t.Fatalf("EnsureCoverage() error: %v", err)
	}

	var count int64
	db.Model(&models.UnitStep{}).Where("unit_id = ? AND step_id = ?", unit.ID, steps[0].ID).Count(&count)
	if count != 1 {
		t.Errorf("(unit, step) rows = %d, want 1", count)
	}
}

func TestApply_InvalidStatus(t *testing.T) {
	db := openTestDB(t)
	steps := seedSteps(t, db, "Kitting")
	if _, err := CreateUnit(db, "SN100"); err != nil {
		t.Fatalf("CreateUnit() error: %v", err)
	}

	_, err := Apply(db, ApplyOpts{Serial: "SN100", StepID: steps[0].ID, Status: "passed"})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("error = %v, want ErrInvalidStatus", err)
	}
}

func TestApply_UnknownUnitAndStep(t *testing.T) {
	db := openTestDB(t)
	steps := seedSteps(t, db, "Kitting")

	_, err := Apply(db, ApplyOpts{Serial: "NOPE", StepID: steps[0].ID, Status: models.StatusPass})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown unit error = %v, want ErrNotFound", err)
	}

	if _, err := CreateUnit(db, "SN100"); err != nil {
		t.Fatalf("CreateUnit() error: %v", err)
	}
	_, err = Apply(db, ApplyOpts{Serial: "SN100", StepID: 9999, Status: models.StatusPass})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown step error = %v, want ErrNotFound", err)
	}
}

func TestEnsureCoverage_Idempotent(t *testing.T) {
	db := openTestDB(t)
	steps := seedSteps(t, db, "Kitting", "Assembly")
	unit := models.Unit{Serial: "SN200"}
	if err := db.Create(&unit).Error; err != nil {
		t.Fatalf("create bare unit: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := EnsureCoverage(db, unit.ID); err != nil {
			t.Fatalf("EnsureCoverage() error: %v", err)
		}
	}

	rows := checklist(t, db, unit.ID)
	if len(rows) != len(steps) {
		t.Errorf("checklist rows = %d, want %d", len(rows), len(steps))
	}
}

func TestDeleteUnit(t *testing.T) {
	db := openTestDB(t)
	steps := seedSteps(t, db, "Kitting")
	unit, err := CreateUnit(db, "SN100")
	if err != nil {
		t.Fatalf("CreateUnit() error: %v", err)
	}
	if _, err := Apply(db, ApplyOpts{Serial: "SN100", StepID: steps[0].ID, Status: models.StatusFail}); err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if err := DeleteUnit(db, "SN100"); err != nil {
		t.Fatalf("DeleteUnit() error: %v", err)
	}

	if _, err := GetUnit(db, "SN100"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUnit after delete = %v, want ErrNotFound", err)
	}
	if rows := checklist(t, db, unit.ID); len(rows) != 0 {
		t.Errorf("checklist rows = %d, want 0 after cascade", len(rows))
	}
	// Audit history survives the unit.
	if n := auditCount(t, db); n != 1 {
		t.Errorf("audit rows = %d, want 1 retained", n)
	}
}
