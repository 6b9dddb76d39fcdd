package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

// PageViewRecorder counts successful GET page views per day and path.
func PageViewRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		path := c.Request.URL.Path
		if path == "/health" || strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/static/") ||
			strings.HasPrefix(path, "/accounts/") {
			return
		}

		now := time.Now()

		err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"views":      gorm.Expr("page_views.views + 1"),
				"updated_at": now,
			}),
		}).Create(&models.PageView{Date: models.Midnight(now), Path: path, Views: 1}).Error
		if err != nil {
			utils.Sugar.Warnw("record page view failed", "path", path, "err", err)
		}
	}
}
