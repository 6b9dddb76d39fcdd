package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/addistalk/addistalk/middleware"
	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

const contactPageSize = 20

// AdminController exposes the staff moderation API: posts, comment approval and the contact inbox.
type AdminController struct {
	db *gorm.DB
}

// NewAdminController creates a new AdminController instance.
func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{db: db}
}

type postRequest struct {
	Title   string `json:"title" binding:"required,max=200"`
	Slug    string `json:"slug" binding:"max=200"`
	Body    string `json:"body" binding:"required"`
	Excerpt string `json:"excerpt" binding:"max=500"`
	Status  *int   `json:"status" binding:"omitempty,oneof=0 1"`
}

type idsRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1"`
}

// CreatePost adds a post authored by the calling staff user.
func (a *AdminController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	uid := middleware.CurrentUserID(ctx)
	post := models.Post{
		Title:    strings.TrimSpace(req.Title),
		Slug:     strings.TrimSpace(req.Slug),
		Body:     req.Body,
		Excerpt:  strings.TrimSpace(req.Excerpt),
		AuthorID: &uid,
	}
	if req.Status != nil {
		post.Status = *req.Status
	}
	if err := models.CreatePost(a.db, &post); err != nil {
		if errors.Is(err, models.ErrSlugTaken) {
			utils.Error(ctx, http.StatusConflict, 40920, "slug already in use")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}
	invalidatePostCaches()
	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"post": post}})
}

// UpdatePost replaces a post's editable fields.
func (a *AdminController) UpdatePost(ctx *gin.Context) {
	post, ok := a.loadPost(ctx)
	if !ok {
		return
	}
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	post.Title = strings.TrimSpace(req.Title)
	post.Slug = strings.TrimSpace(req.Slug)
	post.Body = req.Body
	post.Excerpt = strings.TrimSpace(req.Excerpt)
	if req.Status != nil {
		post.Status = *req.Status
	}
	if err := models.UpdatePost(a.db, post); err != nil {
		if errors.Is(err, models.ErrSlugTaken) {
			utils.Error(ctx, http.StatusConflict, 40920, "slug already in use")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to update post")
		return
	}
	invalidatePostCaches()
	utils.Success(ctx, gin.H{"post": post})
}

// PublishPost makes a post visible to visitors.
func (a *AdminController) PublishPost(ctx *gin.Context) {
	a.setStatus(ctx, models.StatusPublished)
}

// UnpublishPost turns a post back into a draft.
func (a *AdminController) UnpublishPost(ctx *gin.Context) {
	a.setStatus(ctx, models.StatusDraft)
}

func (a *AdminController) setStatus(ctx *gin.Context, status int) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return
	}
	post, err := models.SetPostStatus(a.db, id, status)
	if errors.Is(err, models.ErrPostNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to update post status")
		return
	}
	invalidatePostCaches()
	utils.Success(ctx, gin.H{"post": post})
}

func (a *AdminController) loadPost(ctx *gin.Context) (*models.Post, bool) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40023, "invalid post id")
		return nil, false
	}
	var post models.Post
	if err := a.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to load post")
		return nil, false
	}
	return &post, true
}

// ListComments returns the moderation queue. Only ?approved=false is supported.
func (a *AdminController) ListComments(ctx *gin.Context) {
	if v := ctx.Query("approved"); v != "" && v != "false" && v != "0" {
		utils.Error(ctx, http.StatusBadRequest, 40030, "only approved=false is supported")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"), contactPageSize)
	comments, total, err := models.PendingComments(a.db, page, pageSize)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to list comments")
		return
	}
	utils.Success(ctx, gin.H{
		"items":      comments,
		"pagination": utils.Pagination(page, pageSize, total),
	})
}

// ApproveComments approves the selected comments.
func (a *AdminController) ApproveComments(ctx *gin.Context) {
	var req idsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40031, "ids required")
		return
	}
	n, err := models.ApproveComments(a.db, req.IDs)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to approve comments")
		return
	}
	utils.Success(ctx, gin.H{"updated": n, "message": utils.CountMessage(n, "comment", "approved")})
}

// DeleteComment removes any comment.
func (a *AdminController) DeleteComment(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40032, "invalid comment id")
		return
	}
	err := models.DeleteComment(a.db, id)
	if errors.Is(err, models.ErrCommentNotFound) {
		utils.Error(ctx, http.StatusNotFound, 40402, "comment not found")
		return
	}
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to delete comment")
		return
	}
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

// ListContactMessages lists inquiries, filterable by is_read, resolved and received date (since/until).
func (a *AdminController) ListContactMessages(ctx *gin.Context) {
	var f models.ContactFilter
	var err error
	if f.IsRead, err = optionalBool(ctx.Query("is_read")); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "invalid is_read filter")
		return
	}
	if f.Resolved, err = optionalBool(ctx.Query("resolved")); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "invalid resolved filter")
		return
	}
	f.Search = strings.TrimSpace(ctx.Query("search"))
	if f.Since, err = models.ParseDay(ctx.Query("since")); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40043, "invalid since date, want YYYY-MM-DD")
		return
	}
	if f.Until, err = models.ParseDay(ctx.Query("until")); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40044, "invalid until date, want YYYY-MM-DD")
		return
	}

	page := parsePage(ctx.Query("page"))
	items, total, err := models.ListContactMessages(a.db, f, page, contactPageSize)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to list contact messages")
		return
	}
	utils.Success(ctx, gin.H{
		"items":      items,
		"pagination": utils.Pagination(page, contactPageSize, total),
	})
}

// MarkContactRead flags the selected inquiries as read.
func (a *AdminController) MarkContactRead(ctx *gin.Context) {
	a.bulkContact(ctx, models.MarkContactMessagesRead, "read")
}

// MarkContactResolved flags the selected inquiries as resolved (and read).
func (a *AdminController) MarkContactResolved(ctx *gin.Context) {
	a.bulkContact(ctx, models.MarkContactMessagesResolved, "resolved")
}

func (a *AdminController) bulkContact(ctx *gin.Context, action func(*gorm.DB, []uint) (int64, error), label string) {
	var req idsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40042, "ids required")
		return
	}
	n, err := action(a.db, req.IDs)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to update contact messages")
		return
	}
	utils.Sugar.Infow("contact messages updated", "action", label, "count", n, "by", middleware.CurrentUsername(ctx))
	utils.Success(ctx, gin.H{"updated": n, "message": utils.CountMessage(n, "message", "marked as "+label)})
}

func optionalBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
