package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"tool_custody/app"
	"tool_custody/export"
	"tool_custody/models"
	"tool_custody/views"

	"github.com/gin-gonic/gin"
)

type ReportController struct{ *Srv }

func NewReportController(s *Srv) *ReportController { return &ReportController{Srv: s} }

// GET /api/admin/dashboard
func (rc *ReportController) Dashboard(c *gin.Context) {
	snap, err := rc.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views.BuildDashboard(snap))
}

func (rc *ReportController) history(c *gin.Context) ([]models.Transaction, bool) {
	r, err := views.ParseDateRange(c.Query("from"), c.Query("to"), rc.Loc)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	snap, err := rc.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return views.History(snap, r), true
}

// GET /api/admin/history?from=YYYY-MM-DD&to=YYYY-MM-DD
func (rc *ReportController) History(c *gin.Context) {
	txs, ok := rc.history(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, app.H{"transactions": txs})
}

// GET /api/admin/history.csv 与页面筛选条件一致
func (rc *ReportController) HistoryCSV(c *gin.Context) {
	txs, ok := rc.history(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, txs, rc.Loc); err != nil {
		respondError(c, err)
		return
	}
	name := export.CSVFilename(rc.Now(), rc.Loc)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// GET /api/admin/backup 下载完整备份
func (rc *ReportController) Backup(c *gin.Context) {
	snap, err := rc.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	b := export.NewBackup(snap, rc.Now())
	body, err := b.JSON()
	if err != nil {
		respondError(c, err)
		return
	}
	name := fmt.Sprintf("backup_%s.json", b.ExportedAt.In(rc.Loc).Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// POST /api/admin/backup/archive 上传到配置的备份存储
func (rc *ReportController) Archive(c *gin.Context) {
	snap, err := rc.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	loc, err := export.Archive(c.Request.Context(), rc.Archiver, export.NewBackup(snap, rc.Now()))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app.H{"ok": true, "location": loc})
}

// POST /api/admin/assistant
func (rc *ReportController) Assistant(c *gin.Context) {
	var in struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	q := strings.TrimSpace(in.Query)
	if q == "" {
		badRequest(c, "query is required")
		return
	}
	snap, err := rc.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"answer": rc.Reporter.Report(c.Request.Context(), snap.Transactions, q)})
}
