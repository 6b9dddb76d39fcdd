package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/addistalk/addistalk/middleware"
	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

const (
	msgCommentEmpty     = "Comment cannot be empty."
	msgCommentSubmitted = "Your comment has been submitted and is awaiting approval."
	msgEditNotOwner     = "You can only edit your own comments."
	msgCommentUpdated   = "Comment updated successfully."
	msgDeleteNotOwner   = "You can only delete your own comments."
	msgCommentDeleted   = "Comment deleted successfully."
)

// CommentController handles comment submission, editing and deletion from the post page.
type CommentController struct {
	db    *gorm.DB
	posts *PostController
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db, posts: NewPostController(db)}
}

// AddComment stores a new comment for moderation and redirects back to the post.
func (c *CommentController) AddComment(ctx *gin.Context) {
	post, ok := c.posts.publishedPost(ctx)
	if !ok {
		return
	}

	body := utils.SanitizeText(ctx.PostForm("body"))
	_, err := models.AddComment(c.db, post, middleware.CurrentUserID(ctx), body)
	switch {
	case errors.Is(err, models.ErrEmptyComment):
		middleware.AddFlash(ctx, middleware.FlashError, msgCommentEmpty)
	case err != nil:
		serverError(ctx, err, "failed to create comment")
		return
	default:
		middleware.AddFlash(ctx, middleware.FlashSuccess, msgCommentSubmitted)
	}
	ctx.Redirect(http.StatusFound, postURL(post.Slug))
}

// EditComment shows the edit form (GET) or saves the new body (POST). Saved edits go back
// into the moderation queue.
func (c *CommentController) EditComment(ctx *gin.Context) {
	slug := ctx.Param("slug")
	cmt, ok := c.comment(ctx)
	if !ok {
		return
	}
	if cmt.UserID != middleware.CurrentUserID(ctx) {
		redirectWithFlash(ctx, middleware.FlashError, msgEditNotOwner, postURL(slug))
		return
	}

	body := cmt.Body
	if ctx.Request.Method == http.MethodPost {
		body = utils.SanitizeText(ctx.PostForm("body"))
		err := models.EditComment(c.db, cmt, middleware.CurrentUserID(ctx), body)
		switch {
		case err == nil:
			redirectWithFlash(ctx, middleware.FlashSuccess, msgCommentUpdated, postURL(slug))
			return
		case errors.Is(err, models.ErrEmptyComment):
			middleware.AddFlash(ctx, middleware.FlashError, msgCommentEmpty)
		default:
			serverError(ctx, err, "failed to update comment")
			return
		}
	}

	render(ctx, http.StatusOK, "comment_edit.html", gin.H{
		"title":   "Edit comment",
		"comment": cmt,
		"post":    cmt.Post,
		"body":    body,
	})
}

// DeleteComment removes a comment when the current user wrote it or is staff.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	slug := ctx.Param("slug")
	cmt, ok := c.comment(ctx)
	if !ok {
		return
	}
	if cmt.UserID != middleware.CurrentUserID(ctx) && !middleware.IsStaff(ctx) {
		redirectWithFlash(ctx, middleware.FlashError, msgDeleteNotOwner, postURL(slug))
		return
	}

	if err := models.DeleteComment(c.db, cmt.ID); err != nil && !errors.Is(err, models.ErrCommentNotFound) {
		serverError(ctx, err, "failed to delete comment")
		return
	}
	redirectWithFlash(ctx, middleware.FlashSuccess, msgCommentDeleted, postURL(slug))
}

func (c *CommentController) comment(ctx *gin.Context) (*models.Comment, bool) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		NotFound(ctx)
		return nil, false
	}
	cmt, err := models.FindComment(c.db, id)
	if errors.Is(err, models.ErrCommentNotFound) {
		NotFound(ctx)
		return nil, false
	}
	if err != nil {
		serverError(ctx, err, "failed to load comment")
		return nil, false
	}
	if cmt.Post == nil {
		NotFound(ctx)
		return nil, false
	}
	return cmt, true
}
