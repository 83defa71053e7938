// Package digest computes shift summaries over the audit trail and posts
// them on a cron schedule.
package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/lineside/internal/models"
	"github.com/zulandar/lineside/internal/notify"
	"github.com/zulandar/lineside/internal/report"
	"gorm.io/gorm"
)

// Report holds computed metrics for one shift window.
type Report struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	UnitsCreated   int
	Transitions    int
	Fails          int
	FirstPassYield float64 // pass / (pass + fail) across active steps, 0 when nothing scored
	StepBreakdown  []report.StepCount
}

// Build computes a report for the window [since, until).
func Build(db *gorm.DB, since, until time.Time) (*Report, error) {
	r := &Report{PeriodStart: since, PeriodEnd: until}

	var created int64
	err := db.Model(&models.Unit{}).
		Where("created_at >= ? AND created_at < ?", since, until).
		Count(&created).Error
	if err != nil {
		return nil, fmt.Errorf("digest: units created: %w", err)
	}
	r.UnitsCreated = int(created)

	var transitions int64
	err = db.Model(&models.Audit{}).
		Where("at >= ? AND at < ?", since, until).
		Count(&transitions).Error
	if err != nil {
		return nil, fmt.Errorf("digest: transitions: %w", err)
	}
	r.Transitions = int(transitions)

	var fails int64
	err = db.Model(&models.Audit{}).
		Where("at >= ? AND at < ? AND new_status = ?", since, until, models.StatusFail).
		Count(&fails).Error
	if err != nil {
		return nil, fmt.Errorf("digest: fails: %w", err)
	}
	r.Fails = int(fails)

	breakdown, err := report.StepSummary(db)
	if err != nil {
		return nil, err
	}
	r.StepBreakdown = breakdown

	var pass, fail int
	for _, sc := range breakdown {
		pass += sc.Pass
		fail += sc.Fail
	}
	if pass+fail > 0 {
		r.FirstPassYield = float64(pass) / float64(pass+fail)
	}
	return r, nil
}

// Event formats a report for chat delivery.
func Event(r *Report) notify.Event {
	severity := "success"
	if r.Fails > 0 {
		severity = "warning"
	}

	var lines []string
	for _, sc := range r.StepBreakdown {
		lines = append(lines, fmt.Sprintf("%s: %d pending / %d pass / %d fail",
			sc.Name, sc.Pending, sc.Pass, sc.Fail))
	}

	return notify.Event{
		Title: fmt.Sprintf("Shift digest %s – %s",
			r.PeriodStart.Format("Jan 2 15:04"), r.PeriodEnd.Format("Jan 2 15:04")),
		Body:     strings.Join(lines, "\n"),
		Severity: severity,
		Fields: []notify.Field{
			{Name: "Units created", Value: fmt.Sprintf("%d", r.UnitsCreated)},
			{Name: "Transitions", Value: fmt.Sprintf("%d", r.Transitions)},
			{Name: "Fails", Value: fmt.Sprintf("%d", r.Fails)},
			{Name: "Yield", Value: fmt.Sprintf("%.1f%%", r.FirstPassYield*100)},
		},
	}
}
