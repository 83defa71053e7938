package web

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/lineside/internal/notify"
	"gorm.io/gorm"
)

// app carries the shared handler dependencies.
type app struct {
	db         *gorm.DB
	autoCreate bool
	notifier   notify.Adapter
}

// registerRoutes sets up all routes on the Gin router.
func registerRoutes(router *gin.Engine, app *app) {
	// Embedded static assets (served from assets/ subdir of the embed.FS).
	staticFS, _ := fs.Sub(assetsFS, "assets")
	router.StaticFS("/static", http.FS(staticFS))

	// Pages.
	router.GET("/", app.handleIndex)
	router.GET("/scan", app.handleScanPage)
	router.POST("/scan", app.handleScan)
	router.GET("/units/:serial", app.handleUnitDetail)
	router.POST("/units/:serial/steps/:stepID", app.handleTransition)
	router.GET("/audit", app.handleAudit)

	// Admin.
	router.GET("/admin", app.handleAdmin)
	router.POST("/admin/steps", app.handleAddStep)
	router.POST("/admin/steps/reorder", app.handleReorderSteps)
	router.POST("/admin/steps/:stepID/archive", app.handleArchiveStep)
	router.POST("/admin/steps/:stepID/rename", app.handleRenameStep)
	router.POST("/admin/import", app.handleImport)
	router.GET("/admin/export", app.handleExport)

	// Identity cookies.
	router.POST("/identity", app.handleSetIdentity)
}
