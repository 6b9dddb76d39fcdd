package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/utils"
)

const sessionName = "addistalk_session"

// Flash levels.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   string
	Message string
}

// Sessions installs the cookie-backed session used for flash messages.
// Without a configured secret a random one is used, so sessions do not survive restarts.
func Sessions(app config.AppSection) gin.HandlerFunc {
	secret := app.SessionSecret
	if secret == "" {
		utils.Sugar.Warn("app.session_secret not set, using a random per-process secret")
		secret = uuid.NewString() + uuid.NewString()
	}
	store := cookie.NewStore([]byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   14 * 24 * 3600,
		HttpOnly: true,
		Secure:   app.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(sessionName, store)
}

// AddFlash queues a message for the next page the browser renders.
func AddFlash(ctx *gin.Context, level, message string) {
	s := sessions.Default(ctx)
	s.AddFlash(message, level)
	if err := s.Save(); err != nil {
		utils.Sugar.Warnw("save flash failed", "err", err)
	}
}

// PopFlashes returns and clears the pending messages, successes first.
func PopFlashes(ctx *gin.Context) []Flash {
	s := sessions.Default(ctx)
	var out []Flash
	for _, level := range []string{FlashSuccess, FlashError} {
		for _, v := range s.Flashes(level) {
			if msg, ok := v.(string); ok {
				out = append(out, Flash{Level: level, Message: msg})
			}
		}
	}
	if len(out) > 0 {
		if err := s.Save(); err != nil {
			utils.Sugar.Warnw("clear flashes failed", "err", err)
		}
	}
	return out
}

// WantsJSON reports whether r is an API or XHR request.
func WantsJSON(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") ||
		strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.Header.Get("X-Requested-With") == "XMLHttpRequest"
}
