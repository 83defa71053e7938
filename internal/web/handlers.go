package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/lineside/internal/models"
	"github.com/zulandar/lineside/internal/notify"
	"github.com/zulandar/lineside/internal/progress"
	"github.com/zulandar/lineside/internal/report"
	"github.com/zulandar/lineside/internal/roster"
)

func (a *app) handleIndex(c *gin.Context) {
	summary, err := report.StepSummary(a.db)
	if err != nil {
		c.String(http.StatusInternalServerError, "dashboard unavailable")
		return
	}
	unitCount, err := report.UnitCount(a.db)
	if err != nil {
		c.String(http.StatusInternalServerError, "dashboard unavailable")
		return
	}
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Summary":   summary,
		"UnitCount": unitCount,
		"Identity":  identity(c),
		"Flash":     popFlash(c),
	})
}

func (a *app) handleScanPage(c *gin.Context) {
	c.HTML(http.StatusOK, "scan.html", gin.H{
		"Identity": identity(c),
		"Flash":    popFlash(c),
	})
}

func (a *app) handleScan(c *gin.Context) {
	code := strings.TrimSpace(c.PostForm("code"))
	if code == "" {
		setFlash(c, "warning", "No code scanned")
		c.Redirect(http.StatusFound, "/scan")
		return
	}

	id := identity(c)
	unit, created, err := progress.Resolve(a.db, code, id.Station, a.autoCreate)
	if err != nil {
		var authErr *progress.UnauthorizedStationError
		if errors.As(err, &authErr) {
			msg := fmt.Sprintf("Unit with serial %s not found.", code)
			if authErr.Authorized != "" {
				msg += fmt.Sprintf(" Only the first station (%q) can create new units.", authErr.Authorized)
			}
			setFlash(c, "danger", msg)
			c.Redirect(http.StatusFound, "/scan")
			return
		}
		setFlash(c, "danger", "Scan failed")
		c.Redirect(http.StatusFound, "/scan")
		return
	}

	if created {
		setFlash(c, "success", fmt.Sprintf("Created new unit %s at first station %q.", code, id.Station))
	}
	c.Redirect(http.StatusFound, "/units/"+unit.Serial)
}

func (a *app) handleUnitDetail(c *gin.Context) {
	serial := c.Param("serial")
	unit, rows, err := report.UnitChecklist(a.db, serial)
	if err != nil {
		if errors.Is(err, progress.ErrNotFound) {
			setFlash(c, "danger", fmt.Sprintf("Unit with serial %s not found.", serial))
			c.Redirect(http.StatusFound, "/scan")
			return
		}
		c.String(http.StatusInternalServerError, "unit unavailable")
		return
	}
	c.HTML(http.StatusOK, "unit.html", gin.H{
		"Unit":     unit,
		"Rows":     rows,
		"Statuses": []string{models.StatusPending, models.StatusPass, models.StatusFail},
		"Identity": identity(c),
		"Flash":    popFlash(c),
	})
}

func (a *app) handleTransition(c *gin.Context) {
	serial := c.Param("serial")
	stepID, err := strconv.ParseUint(c.Param("stepID"), 10, 32)
	if err != nil {
		setFlash(c, "warning", "Bad step")
		c.Redirect(http.StatusFound, "/units/"+serial)
		return
	}

	id := identity(c)
	operator := strings.TrimSpace(c.PostForm("operator"))
	if operator == "" {
		operator = id.Operator
	}

	tr, err := progress.Apply(a.db, progress.ApplyOpts{
		Serial:   serial,
		StepID:   uint(stepID),
		Status:   c.PostForm("status"),
		Station:  id.Station,
		Operator: operator,
		Notes:    strings.TrimSpace(c.PostForm("notes")),
	})
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrNotFound):
			setFlash(c, "danger", fmt.Sprintf("Unit with serial %s not found.", serial))
			c.Redirect(http.StatusFound, "/scan")
		case errors.Is(err, progress.ErrInvalidStatus):
			setFlash(c, "warning", "Unknown status")
			c.Redirect(http.StatusFound, "/units/"+serial)
		default:
			setFlash(c, "danger", "Update failed")
			c.Redirect(http.StatusFound, "/units/"+serial)
		}
		return
	}

	if tr.Changed {
		setFlash(c, "success", "Updated")
		a.notifyFailure(tr)
	} else {
		setFlash(c, "info", "No change")
	}
	c.Redirect(http.StatusFound, "/units/"+serial)
}

// notifyFailure sends a chat notification for fail transitions without
// blocking the response.
func (a *app) notifyFailure(tr *progress.Transition) {
	if a.notifier == nil || tr.NewStatus != models.StatusFail {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Best effort; the transition is already committed.
		_ = a.notifier.Send(ctx, notify.FailureEvent(tr))
	}()
}

func (a *app) handleAudit(c *gin.Context) {
	filter := report.AuditFilter{
		Serial:   strings.TrimSpace(c.Query("serial")),
		StepName: strings.TrimSpace(c.Query("step")),
		Limit:    200,
	}
	audits, err := report.AuditTrail(a.db, filter)
	if err != nil {
		c.String(http.StatusInternalServerError, "audit unavailable")
		return
	}
	c.HTML(http.StatusOK, "audit.html", gin.H{
		"Audits":   audits,
		"Filter":   filter,
		"Identity": identity(c),
		"Flash":    popFlash(c),
	})
}

func (a *app) handleAdmin(c *gin.Context) {
	active, err := progress.ActiveSteps(a.db)
	if err != nil {
		c.String(http.StatusInternalServerError, "admin unavailable")
		return
	}
	archived, err := progress.ArchivedSteps(a.db)
	if err != nil {
		c.String(http.StatusInternalServerError, "admin unavailable")
		return
	}
	c.HTML(http.StatusOK, "admin.html", gin.H{
		"Steps":    active,
		"Archived": archived,
		"Identity": identity(c),
		"Flash":    popFlash(c),
	})
}

func (a *app) handleAddStep(c *gin.Context) {
	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		setFlash(c, "warning", "Step name required")
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	if _, err := progress.AddStep(a.db, name); err != nil {
		if errors.Is(err, progress.ErrStepExists) {
			setFlash(c, "warning", fmt.Sprintf("Step %q already exists", name))
		} else {
			setFlash(c, "danger", "Adding step failed")
		}
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	setFlash(c, "success", "Step added")
	c.Redirect(http.StatusFound, "/admin")
}

func (a *app) handleReorderSteps(c *gin.Context) {
	raw := c.PostFormArray("step_id")
	ids := make([]uint, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			setFlash(c, "warning", "Bad step order")
			c.Redirect(http.StatusFound, "/admin")
			return
		}
		ids = append(ids, uint(id))
	}
	if err := progress.Resequence(a.db, ids); err != nil {
		setFlash(c, "danger", "Reorder failed")
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	setFlash(c, "success", "Reordered")
	c.Redirect(http.StatusFound, "/admin")
}

func (a *app) handleArchiveStep(c *gin.Context) {
	stepID, err := strconv.ParseUint(c.Param("stepID"), 10, 32)
	if err != nil {
		setFlash(c, "warning", "Bad step")
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	step, err := progress.GetStep(a.db, uint(stepID))
	if err != nil {
		setFlash(c, "danger", "Step not found")
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	if err := progress.ArchiveStep(a.db, step.ID); err != nil {
		setFlash(c, "danger", "Archive failed")
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	setFlash(c, "success", fmt.Sprintf("Step %q archived (data retained).", step.Name))
	c.Redirect(http.StatusFound, "/admin")
}

func (a *app) handleRenameStep(c *gin.Context) {
	stepID, err := strconv.ParseUint(c.Param("stepID"), 10, 32)
	if err != nil {
		setFlash(c, "warning", "Bad step")
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	newName := strings.TrimSpace(c.PostForm("name"))
	if newName == "" {
		setFlash(c, "warning", "New name required")
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	if err := progress.RenameStep(a.db, uint(stepID), newName); err != nil {
		if errors.Is(err, progress.ErrStepExists) {
			setFlash(c, "warning", fmt.Sprintf("Step %q already exists", newName))
		} else {
			setFlash(c, "danger", "Rename failed")
		}
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	setFlash(c, "success", fmt.Sprintf("Renamed step to %q", newName))
	c.Redirect(http.StatusFound, "/admin")
}

func (a *app) handleImport(c *gin.Context) {
	file, err := c.FormFile("csv")
	if err != nil {
		setFlash(c, "warning", `Upload a CSV with header "serial"`)
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	f, err := file.Open()
	if err != nil {
		setFlash(c, "danger", "Import failed")
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	defer f.Close()

	added, err := roster.Import(a.db, f)
	if err != nil {
		if errors.Is(err, roster.ErrMissingSerialHeader) {
			setFlash(c, "warning", `Upload a CSV with header "serial"`)
		} else {
			setFlash(c, "danger", "Import failed")
		}
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	setFlash(c, "success", fmt.Sprintf("Imported %d units", added))
	c.Redirect(http.StatusFound, "/admin")
}

func (a *app) handleExport(c *gin.Context) {
	var buf bytes.Buffer
	if err := roster.Export(a.db, &buf); err != nil {
		c.String(http.StatusInternalServerError, "export unavailable")
		return
	}
	c.Header("Content-Disposition", `attachment; filename=status_export.csv`)
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (a *app) handleSetIdentity(c *gin.Context) {
	if station, ok := c.GetPostForm("station"); ok {
		c.SetCookie(cookieStation, strings.TrimSpace(station), identityMaxAge, "/", "", false, false)
	}
	if operator, ok := c.GetPostForm("operator"); ok {
		c.SetCookie(cookieOperator, strings.TrimSpace(operator), identityMaxAge, "/", "", false, false)
	}

	target := c.Request.Referer()
	if target == "" {
		target = "/"
	}
	c.Redirect(http.StatusFound, target)
}
