package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/middleware"
	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

const (
	postListCachePrefix   = "cache:posts:list:"
	postDetailCachePrefix = "cache:posts:detail:"
	postCacheTTL          = 10 * time.Minute
)

// PostController serves the public blog pages and the like endpoint.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

type postPage struct {
	Posts []models.Post `json:"posts"`
	Total int64         `json:"total"`
}

// ListPosts renders the home page: published posts, newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page := parsePage(ctx.Query("page"))
	pageSize := config.Get().App.PostsPerPage
	if pageSize <= 0 {
		pageSize = 6
	}

	cacheKey := fmt.Sprintf("%spage=%d", postListCachePrefix, page)
	var pp postPage
	if !utils.CacheGetJSON(cacheKey, &pp) {
		posts, total, err := models.ListPublishedPosts(p.db, page, pageSize)
		if err != nil {
			serverError(ctx, err, "failed to list posts")
			return
		}
		pp = postPage{Posts: posts, Total: total}
		utils.CacheSetJSON(cacheKey, pp, postCacheTTL)
	}

	render(ctx, http.StatusOK, "index.html", gin.H{
		"posts":      pp.Posts,
		"pagination": utils.Pagination(page, pageSize, pp.Total),
	})
}

// GetPost renders a published post with its visible comments and like state.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, ok := p.publishedPost(ctx)
	if !ok {
		return
	}
	uid := middleware.CurrentUserID(ctx)

	comments, err := models.VisibleComments(p.db, post.ID, uid)
	if err != nil {
		serverError(ctx, err, "failed to load comments")
		return
	}
	likeCount, err := models.LikeCount(p.db, post.ID)
	if err != nil {
		serverError(ctx, err, "failed to count likes")
		return
	}
	liked, err := models.HasLiked(p.db, post.ID, uid)
	if err != nil {
		serverError(ctx, err, "failed to load like state")
		return
	}

	render(ctx, http.StatusOK, "post_detail.html", gin.H{
		"title":      post.Title,
		"post":       post,
		"comments":   comments,
		"like_count": likeCount,
		"liked":      liked,
	})
}

// ToggleLike adds or removes the current user's like and reports the new state as JSON.
func (p *PostController) ToggleLike(ctx *gin.Context) {
	post, ok := p.publishedPost(ctx)
	if !ok {
		return
	}
	uid := middleware.CurrentUserID(ctx)

	liked, count, err := models.TogglePostLike(p.db, post.ID, uid)
	if err != nil {
		utils.Sugar.Errorw("toggle like failed", "post", post.ID, "user", uid, "err", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update like"})
		return
	}

	message := "Post unliked."
	if liked {
		message = "Post liked!"
	}
	ctx.JSON(http.StatusOK, gin.H{
		"liked":      liked,
		"like_count": count,
		"message":    message,
	})
}

// publishedPost loads the post named by :slug, answering 404 itself when it is missing or a draft.
func (p *PostController) publishedPost(ctx *gin.Context) (*models.Post, bool) {
	slug := ctx.Param("slug")
	cacheKey := postDetailCachePrefix + slug

	var post models.Post
	if utils.CacheGetJSON(cacheKey, &post) {
		return &post, true
	}
	found, err := models.FindPublishedPost(p.db, slug)
	if errors.Is(err, models.ErrPostNotFound) {
		NotFound(ctx)
		return nil, false
	}
	if err != nil {
		serverError(ctx, err, "failed to load post")
		return nil, false
	}
	utils.CacheSetJSON(cacheKey, found, postCacheTTL)
	return found, true
}

// invalidatePostCaches drops every cached post page after a post write.
func invalidatePostCaches() {
	utils.InvalidateByPrefix(postListCachePrefix)
	utils.InvalidateByPrefix(postDetailCachePrefix)
}
