// controllers/srv.go
package controllers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"tool_custody/app"
	"tool_custody/assistant"
	"tool_custody/config"
	"tool_custody/custody"
	"tool_custody/export"
	"tool_custody/session"

	"github.com/google/uuid"
)

type Srv struct {
	Engine   *custody.Engine
	AppSess  *session.AppSessionStore
	Throttle *session.LoginThrottle
	Reporter *assistant.Reporter
	Archiver export.Archiver
	Loc      *time.Location
	Cfg      config.Config
	Now      func() time.Time
}

func GetSrv(a *app.App) *Srv {
	return &Srv{
		Engine:   a.Engine,
		AppSess:  a.AppSessions(),
		Throttle: a.Throttle(),
		Reporter: a.Reporter,
		Archiver: a.Archiver,
		Loc:      a.Location,
		Cfg:      a.Config,
		Now:      time.Now,
	}
}

// --- helpers ---

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.Cfg.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

func (s *Srv) clearAppCookie(w http.ResponseWriter) {
	s.setAppCookie(w, "", -time.Second)
}

// 登录成功：创建会话并下发 Cookie
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, as session.AppSession) error {
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, as); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.Cfg.SessionTTL)
	return nil
}

// adminPasscodeOK compares in constant time against every configured code.
func (s *Srv) adminPasscodeOK(passcode string) bool {
	passcode = strings.TrimSpace(passcode)
	if passcode == "" {
		return false
	}
	ok := false
	for _, code := range s.Cfg.AdminPasscodes {
		if subtle.ConstantTimeCompare([]byte(code), []byte(passcode)) == 1 {
			ok = true
		}
	}
	return ok
}
