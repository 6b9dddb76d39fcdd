package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-extras/go-kit/must"
	"gorm.io/gorm"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/controllers"
	"github.com/addistalk/addistalk/middleware"
	"github.com/addistalk/addistalk/templates"
	"github.com/addistalk/addistalk/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.App.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// request log goes to its own rolling file when log.gin_path is set
	gl, err := utils.NewRollingFileLogger(cfg.Log.GinPath, cfg.Log)
	if err != nil {
		utils.Sugar.Warnf("gin log file unavailable, using app logger: %v", err)
		gl = utils.Logger
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, true))

	r.SetHTMLTemplate(must.Must(templates.Load()))

	r.Use(apiCORS(cfg.App.AllowedOrigins))
	r.Use(middleware.Sessions(cfg.App))
	r.Use(middleware.Authenticate())
	r.Use(middleware.PageViewRecorder(db))

	postController := controllers.NewPostController(db)
	commentController := controllers.NewCommentController(db)
	contactController := controllers.NewContactController(db)
	accountController := controllers.NewAccountController(db)
	adminController := controllers.NewAdminController(db)
	statsController := controllers.NewStatsController(db)
	configController := controllers.NewConfigController()

	// one bucket set shared by every state-changing route
	limited := middleware.RateLimit(cfg.App.RateLimitPerMinute)

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	r.GET("/", postController.ListPosts)
	r.GET("/post/:slug/", postController.GetPost)
	r.POST("/post/:slug/like/", limited, middleware.AuthRequired(), postController.ToggleLike)

	comments := r.Group("/post/:slug", limited, middleware.LoginRequired())
	comments.POST("/comment/", commentController.AddComment)
	comments.Match([]string{http.MethodGet, http.MethodPost}, "/comment/:id/edit/", commentController.EditComment)
	comments.Match([]string{http.MethodGet, http.MethodPost}, "/comment/:id/delete/", commentController.DeleteComment)
	comments.Match([]string{http.MethodGet, http.MethodPost}, "/edit/:id/", commentController.EditComment)
	comments.Match([]string{http.MethodGet, http.MethodPost}, "/delete/:id/", commentController.DeleteComment)

	r.GET("/contact/", contactController.ShowForm)
	r.POST("/contact/", limited, contactController.Submit)

	accounts := r.Group("/accounts")
	accounts.GET("/signup/", accountController.SignupForm)
	accounts.POST("/signup/", limited, accountController.Signup)
	accounts.GET("/login/", accountController.LoginForm)
	accounts.POST("/login/", limited, accountController.Login)
	accounts.POST("/logout/", accountController.Logout)
	accounts.GET("/oauth/:provider/login/", limited, accountController.OAuthRedirect)
	accounts.GET("/oauth/:provider/callback/", limited, accountController.OAuthCallback)

	api := r.Group("/api/v1")
	api.GET("/stats", statsController.GetStats)
	api.GET("/posts/:slug/stats", statsController.GetPostStats)
	api.GET("/config/site", configController.GetSite)

	auth := api.Group("/auth", limited)
	auth.POST("/login", accountController.APILogin)
	auth.POST("/logout", middleware.AuthRequired(), accountController.APILogout)
	auth.GET("/me", middleware.AuthRequired(), accountController.Me)

	admin := api.Group("/admin", middleware.AuthRequired(), middleware.StaffRequired())
	admin.POST("/posts", adminController.CreatePost)
	admin.PUT("/posts/:id", adminController.UpdatePost)
	admin.POST("/posts/:id/publish", adminController.PublishPost)
	admin.POST("/posts/:id/unpublish", adminController.UnpublishPost)
	admin.GET("/comments", adminController.ListComments)
	admin.POST("/comments/approve", adminController.ApproveComments)
	admin.DELETE("/comments/:id", adminController.DeleteComment)
	admin.GET("/contact", adminController.ListContactMessages)
	admin.POST("/contact/mark-read", adminController.MarkContactRead)
	admin.POST("/contact/mark-resolved", adminController.MarkContactResolved)

	r.NoRoute(controllers.NotFound)

	return r
}

// apiCORS applies the CORS policy to /api routes only; HTML pages are same-origin.
func apiCORS(origins []string) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = origins
	}
	handler := cors.New(corsCfg)

	return func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			handler(ctx)
		}
	}
}
