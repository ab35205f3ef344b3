package app

import (
	"context"
	"errors"
	"net/http"

	"tool_custody/config"
	"tool_custody/session"

	"github.com/gin-gonic/gin"
)

const AppSessionCookie = "app_session"

const ctxSession = "session"

type trainerChecker interface {
	TrainerExists(ctx context.Context, trainerID string) (bool, error)
}

func AuthRequired(appSess *session.AppSessionStore, trainers trainerChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ck, err := c.Request.Cookie(AppSessionCookie)
		if err != nil || ck.Value == "" {
			AbortJSON(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
			return
		}
		as, err := appSess.Get(c.Request.Context(), ck.Value)
		if err != nil {
			if !errors.Is(err, session.ErrNoSession) {
				config.Error("load session: %v", err)
			}
			AbortJSON(c, http.StatusUnauthorized, CodeUnauthorized, "invalid session")
			return
		}

		// 培训师会话：确认培训师仍存在（删除与登录可能并发）
		if as.Role == session.RoleTrainer {
			ok, err := trainers.TrainerExists(c.Request.Context(), as.TrainerID)
			if err != nil {
				config.Error("check trainer %s: %v", as.TrainerID, err)
				AbortJSON(c, http.StatusServiceUnavailable, CodeStoreUnavailable, "store unavailable")
				return
			}
			if !ok {
				_ = appSess.Delete(c.Request.Context(), ck.Value)
				AbortJSON(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
				return
			}
		}

		c.Set(ctxSession, as)
		c.Next()
	}
}

// CurrentSession returns the session AuthRequired attached, or nil.
func CurrentSession(c *gin.Context) *session.AppSession {
	v, ok := c.Get(ctxSession)
	if !ok {
		return nil
	}
	as, _ := v.(*session.AppSession)
	return as
}

func requireRole(role session.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		as := CurrentSession(c)
		if as == nil {
			AbortJSON(c, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
			return
		}
		if as.Role != role {
			AbortJSON(c, http.StatusForbidden, CodeForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc { return requireRole(session.RoleAdmin) }
func TrainerOnly() gin.HandlerFunc { return requireRole(session.RoleTrainer) }
