package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

// StatsController provides site statistics such as counts and today's page views.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate statistics for the site. Failed counts fall back to zero.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount, postCount, commentCount, likeCount int64

	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := s.db.Model(&models.Post{}).Scopes(models.Published).Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := s.db.Model(&models.Comment{}).Where("approved = ?", true).Count(&commentCount).Error; err != nil {
		commentCount = 0
	}
	if err := s.db.Model(&models.PostLike{}).Count(&likeCount).Error; err != nil {
		likeCount = 0
	}
	todayViews, err := models.ViewsOn(s.db, time.Now())
	if err != nil {
		todayViews = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":       userCount,
		"post_count":       postCount,
		"comment_count":    commentCount,
		"like_count":       likeCount,
		"today_page_views": todayViews,
	})
}

// GetPostStats returns page views, approved comments and likes for a published post.
func (s *StatsController) GetPostStats(ctx *gin.Context) {
	post, err := models.FindPublishedPost(s.db, ctx.Param("slug"))
	if err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	var pv int64
	if err := s.db.Model(&models.PageView{}).
		Where("path = ?", postURL(post.Slug)).
		Select("COALESCE(SUM(views),0)").
		Scan(&pv).Error; err != nil {
		pv = 0
	}
	var commentsCount int64
	if err := s.db.Model(&models.Comment{}).Where("post_id = ? AND approved = ?", post.ID, true).Count(&commentsCount).Error; err != nil {
		commentsCount = 0
	}
	likes, err := models.LikeCount(s.db, post.ID)
	if err != nil {
		likes = 0
	}

	utils.Success(ctx, gin.H{
		"pv":             pv,
		"comments_count": commentsCount,
		"like_count":     likes,
	})
}
