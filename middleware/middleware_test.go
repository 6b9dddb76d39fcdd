package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/gin-gonic/gin"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/internal/testutil"
	"github.com/addistalk/addistalk/middleware"
	"github.com/addistalk/addistalk/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRateLimit(t *testing.T) {
	c := qt.New(t)
	r := gin.New()
	r.POST("/contact/", middleware.RateLimit(2), func(ctx *gin.Context) { ctx.String(http.StatusOK, "ok") })
	r.POST("/api/v1/x", middleware.RateLimit(2), func(ctx *gin.Context) { ctx.String(http.StatusOK, "ok") })

	c.Assert(serve(r, httptest.NewRequest(http.MethodPost, "/contact/", nil)).Code, qt.Equals, http.StatusOK)
	rec := serve(r, httptest.NewRequest(http.MethodPost, "/contact/", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusTooManyRequests)
	c.Assert(rec.Body.String(), qt.Contains, "Too many requests")

	// each RateLimit call keeps its own buckets
	c.Assert(serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/x", nil)).Code, qt.Equals, http.StatusOK)
	rec = serve(r, httptest.NewRequest(http.MethodPost, "/api/v1/x", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusTooManyRequests)
	c.Assert(rec.Body.String(), qt.Contains, `"code":42901`)

	other := httptest.NewRequest(http.MethodPost, "/contact/", nil)
	other.RemoteAddr = "10.1.2.3:5555"
	c.Assert(serve(r, other).Code, qt.Equals, http.StatusOK)
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.Authenticate())
	ok := func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "%d:%s:%v", middleware.CurrentUserID(ctx), middleware.CurrentUsername(ctx), middleware.IsStaff(ctx))
	}
	r.GET("/whoami", ok)
	r.GET("/post/:slug/comment/", middleware.LoginRequired(), ok)
	r.GET("/api/v1/me", middleware.AuthRequired(), ok)
	r.GET("/api/v1/admin", middleware.AuthRequired(), middleware.StaffRequired(), ok)
	return r
}

func TestAuthenticate(t *testing.T) {
	c := qt.New(t)
	config.Set(testutil.Config())
	testutil.NoRedis(t)
	r := authRouter()

	tok, err := utils.GenerateToken(7, "staff", time.Hour)
	c.Assert(err, qt.IsNil)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	c.Assert(serve(r, req).Body.String(), qt.Equals, "0::false")

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	c.Assert(serve(r, req).Body.String(), qt.Equals, "7:staff:true")

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: middleware.TokenCookie, Value: tok})
	c.Assert(serve(r, req).Body.String(), qt.Equals, "7:staff:true")

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	c.Assert(serve(r, req).Body.String(), qt.Equals, "0::false")

	utils.BlacklistToken(tok, time.Now().Add(time.Hour))
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	c.Assert(serve(r, req).Body.String(), qt.Equals, "0::false")
}

func TestLoginRequiredRedirects(t *testing.T) {
	c := qt.New(t)
	config.Set(testutil.Config())
	testutil.NoRedis(t)
	r := authRouter()

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/post/hello/comment/?x=1", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusFound)
	c.Assert(rec.Header().Get("Location"), qt.Equals, "/accounts/login/?next=%2Fpost%2Fhello%2Fcomment%2F%3Fx%3D1")

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusUnauthorized)
	c.Assert(rec.Body.String(), qt.Contains, `"code":40101`)
}

func TestStaffRequired(t *testing.T) {
	c := qt.New(t)
	config.Set(testutil.Config())
	testutil.NoRedis(t)
	r := authRouter()

	for _, tt := range []struct {
		username string
		want     int
	}{
		{username: "alice", want: http.StatusForbidden},
		{username: "staff", want: http.StatusOK},
	} {
		tok, err := utils.GenerateToken(3, tt.username, time.Hour)
		c.Assert(err, qt.IsNil)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		c.Assert(serve(r, req).Code, qt.Equals, tt.want, qt.Commentf("user %s", tt.username))
	}
}

func TestFlashesSurviveOneRedirect(t *testing.T) {
	c := qt.New(t)
	config.Set(testutil.Config())
	r := gin.New()
	r.Use(middleware.Sessions(config.Get().App))
	r.POST("/save", func(ctx *gin.Context) {
		middleware.AddFlash(ctx, middleware.FlashError, "second")
		middleware.AddFlash(ctx, middleware.FlashSuccess, "first")
		ctx.Redirect(http.StatusFound, "/show")
	})
	r.GET("/show", func(ctx *gin.Context) {
		var parts []string
		for _, f := range middleware.PopFlashes(ctx) {
			parts = append(parts, f.Level+"="+f.Message)
		}
		ctx.String(http.StatusOK, strings.Join(parts, ","))
	})

	rec := serve(r, httptest.NewRequest(http.MethodPost, "/save", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusFound)
	cookies := rec.Result().Cookies()
	c.Assert(cookies, qt.Not(qt.HasLen), 0)
	session := cookies[len(cookies)-1]

	req := httptest.NewRequest(http.MethodGet, "/show", nil)
	req.AddCookie(session)
	rec = serve(r, req)
	c.Assert(rec.Body.String(), qt.Equals, "success=first,error=second")

	cleared := rec.Result().Cookies()
	c.Assert(cleared, qt.Not(qt.HasLen), 0)
	req = httptest.NewRequest(http.MethodGet, "/show", nil)
	req.AddCookie(cleared[len(cleared)-1])
	c.Assert(serve(r, req).Body.String(), qt.Equals, "")
}

func TestWantsJSON(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   bool
	}{
		{name: "api path", path: "/api/v1/stats", want: true},
		{name: "html page", path: "/post/x/", want: false},
		{name: "accept json", path: "/post/x/like/", header: map[string]string{"Accept": "application/json"}, want: true},
		{name: "xhr", path: "/post/x/like/", header: map[string]string{"X-Requested-With": "XMLHttpRequest"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			qt.Assert(t, middleware.WantsJSON(req), qt.Equals, tt.want)
		})
	}
}
