package controllers

import (
	"errors"
	"net/http"

	"tool_custody/app"
	"tool_custody/config"
	"tool_custody/custody"
	"tool_custody/session"
	"tool_custody/views"

	"github.com/gin-gonic/gin"
)

type AuthController struct{ *Srv }

func NewAuthController(s *Srv) *AuthController { return &AuthController{Srv: s} }

// allowAttempt 拦截短时间内失败过多的 IP
func (ac *AuthController) allowAttempt(c *gin.Context) bool {
	ok, err := ac.Throttle.Allow(c.Request.Context(), c.ClientIP())
	if err != nil {
		// 限流依赖 Redis，故障时放行
		config.Warning("login throttle: %v", err)
		return true
	}
	if !ok {
		app.AbortJSON(c, http.StatusTooManyRequests, app.CodeTooManyAttempts, "too many failed attempts, try again later")
	}
	return ok
}

func (ac *AuthController) recordFailure(c *gin.Context) {
	if err := ac.Throttle.Fail(c.Request.Context(), c.ClientIP()); err != nil {
		config.Warning("login throttle: %v", err)
	}
}

func (ac *AuthController) loggedIn(c *gin.Context, as session.AppSession) {
	_ = ac.Throttle.Reset(c.Request.Context(), c.ClientIP())
	if err := ac.issueSession(c.Request.Context(), c.Writer, as); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"ok": true, "role": as.Role, "trainerId": as.TrainerID, "name": as.Name})
}

// POST /api/auth/admin
func (ac *AuthController) AdminLogin(c *gin.Context) {
	var in struct {
		Passcode string `json:"passcode"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	if !ac.allowAttempt(c) {
		return
	}
	if !ac.adminPasscodeOK(in.Passcode) {
		ac.recordFailure(c)
		respondError(c, custody.ErrInvalidCredentials)
		return
	}
	config.Info("admin login from %s", c.ClientIP())
	ac.loggedIn(c, session.AppSession{Role: session.RoleAdmin})
}

// POST /api/auth/trainer
func (ac *AuthController) TrainerLogin(c *gin.Context) {
	var in struct {
		TrainerID string `json:"trainerId" binding:"required"`
		Password  string `json:"password"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}
	if !ac.allowAttempt(c) {
		return
	}
	tr, err := ac.Engine.Authenticate(c.Request.Context(), in.TrainerID, in.Password)
	if err != nil {
		if errors.Is(err, custody.ErrInvalidCredentials) {
			ac.recordFailure(c)
		}
		respondError(c, err)
		return
	}
	ac.loggedIn(c, session.AppSession{Role: session.RoleTrainer, TrainerID: tr.ID, Name: tr.Name})
}

// POST /api/auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	if ck, err := c.Request.Cookie(app.AppSessionCookie); err == nil && ck.Value != "" {
		_ = ac.AppSess.Delete(c.Request.Context(), ck.Value)
	}
	ac.clearAppCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// GET /api/auth/whoami
func (ac *AuthController) WhoAmI(c *gin.Context) {
	as := app.CurrentSession(c)
	c.JSON(http.StatusOK, app.H{"role": as.Role, "trainerId": as.TrainerID, "name": as.Name, "expiresAt": as.ExpiresAt})
}

// GET /api/trainers/directory 登录页下拉框，只给 id 和姓名
func (ac *AuthController) Directory(c *gin.Context) {
	snap, err := ac.Engine.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"trainers": views.Directory(snap)})
}
