package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/middleware"
	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

// render writes an HTML page with the values every page needs: current user, staff flag,
// pending flash messages and site name.
func render(ctx *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["current_user"] = middleware.CurrentUsername(ctx)
	data["current_user_id"] = middleware.CurrentUserID(ctx)
	data["is_staff"] = middleware.IsStaff(ctx)
	data["site_name"] = config.Get().App.SiteName
	data["year"] = time.Now().Year()
	data["flashes"] = middleware.PopFlashes(ctx)
	ctx.HTML(status, name, data)
}

// redirectWithFlash queues a flash message and sends the browser to location.
func redirectWithFlash(ctx *gin.Context, level, message, location string) {
	middleware.AddFlash(ctx, level, message)
	ctx.Redirect(http.StatusFound, location)
}

// NotFound renders the 404 page for browsers and the JSON envelope for API clients.
func NotFound(ctx *gin.Context) {
	if middleware.WantsJSON(ctx.Request) {
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
		return
	}
	render(ctx, http.StatusNotFound, "error.html", gin.H{
		"title":   "Not found",
		"status":  http.StatusNotFound,
		"message": "The page you are looking for does not exist.",
	})
}

func serverError(ctx *gin.Context, err error, msg string) {
	_ = ctx.Error(err)
	utils.Sugar.Errorw(msg, "path", ctx.Request.URL.Path, "err", err)
	if middleware.WantsJSON(ctx.Request) {
		utils.Error(ctx, http.StatusInternalServerError, 50000, msg)
		return
	}
	render(ctx, http.StatusInternalServerError, "error.html", gin.H{
		"title":   "Server error",
		"status":  http.StatusInternalServerError,
		"message": "Something went wrong. Please try again later.",
	})
}

func postURL(slug string) string {
	return "/post/" + slug + "/"
}

func parsePage(pageStr string) int {
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		return min(p, models.MaxPage)
	}
	return 1
}

func parsePagination(pageStr, sizeStr string, defSize int) (int, int) {
	pageSize := defSize
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return parsePage(pageStr), pageSize
}

func parseID(s string) (uint, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// trimmed is the form value with surrounding whitespace removed.
func trimmed(ctx *gin.Context, key string) string {
	return strings.TrimSpace(ctx.PostForm(key))
}
