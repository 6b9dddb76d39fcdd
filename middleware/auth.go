package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUsernameKey stores the username inside Gin context.
	ContextUsernameKey = "username"
	// ContextTokenKey stores the raw token so logout can revoke it.
	ContextTokenKey = "token"

	// TokenCookie is the HttpOnly cookie carrying the login token for browsers.
	TokenCookie = "token"
	// LoginPath is where browsers are sent when a page needs a signed-in user.
	LoginPath = "/accounts/login/"
)

// Authenticate identifies the user from the bearer header or token cookie when present.
// Anonymous requests pass through untouched.
func Authenticate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString := requestToken(ctx)
		if tokenString == "" || utils.IsTokenBlacklisted(tokenString) {
			ctx.Next()
			return
		}
		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			ctx.Next()
			return
		}
		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Set(ContextTokenKey, tokenString)
		ctx.Next()
	}
}

func requestToken(ctx *gin.Context) string {
	if authHeader := ctx.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := ctx.Cookie(TokenCookie); err == nil {
		return cookie
	}
	return ""
}

// AuthRequired rejects anonymous API requests with a JSON 401.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentUserID(ctx) == 0 {
			utils.Error(ctx, http.StatusUnauthorized, 40101, "authentication required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// LoginRequired redirects anonymous browsers to the login page, remembering where they were.
func LoginRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if CurrentUserID(ctx) == 0 {
			next := ctx.Request.URL.RequestURI()
			ctx.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(next))
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// StaffRequired allows only staff users. It must run after AuthRequired.
func StaffRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !IsStaff(ctx) {
			utils.Error(ctx, http.StatusForbidden, 40301, "staff only")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}

// CurrentUserID returns the authenticated user id, or 0 for anonymous requests.
func CurrentUserID(ctx *gin.Context) uint {
	if v, ok := ctx.Get(ContextUserIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// CurrentUsername returns the authenticated username, or "".
func CurrentUsername(ctx *gin.Context) string {
	return ctx.GetString(ContextUsernameKey)
}

// IsStaff reports whether the current user is listed in admin.usernames.
func IsStaff(ctx *gin.Context) bool {
	return CurrentUserID(ctx) != 0 && config.Get().IsAdminUsername(CurrentUsername(ctx))
}
