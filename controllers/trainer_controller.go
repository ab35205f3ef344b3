package controllers

import (
	"net/http"

	"tool_custody/app"
	"tool_custody/config"
	"tool_custody/views"

	"github.com/gin-gonic/gin"
)

type TrainerController struct{ *Srv }

func NewTrainerController(s *Srv) *TrainerController { return &TrainerController{Srv: s} }

// GET /api/admin/trainers
func (tc *TrainerController) ListTrainers(c *gin.Context) {
	snap, err := tc.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"trainers": views.TrainerSummaries(snap)})
}

// POST /api/admin/trainers
func (tc *TrainerController) CreateTrainer(c *gin.Context) {
	var in struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	tr, err := tc.Engine.AddTrainer(c.Request.Context(), in.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tr)
}

// DELETE /api/admin/trainers/:id
func (tc *TrainerController) DeleteTrainer(c *gin.Context) {
	id := c.Param("id")
	closed, err := tc.Engine.DeleteTrainer(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	// 撤销该培训师的所有登录会话
	if err := tc.AppSess.RevokeAllForTrainer(c.Request.Context(), id); err != nil {
		config.Error("revoke sessions for trainer %s: %v", id, err)
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "closed": closed})
}

// PUT /api/admin/trainers/:id/password
func (tc *TrainerController) ResetPassword(c *gin.Context) {
	var in struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := tc.Engine.ResetPassword(c.Request.Context(), c.Param("id"), in.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// PUT /api/portal/password
func (tc *TrainerController) ChangeOwnPassword(c *gin.Context) {
	var in struct {
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	as := app.CurrentSession(c)
	if err := tc.Engine.ChangePassword(c.Request.Context(), as.TrainerID, in.Password); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true})
}
