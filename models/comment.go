package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrEmptyComment    = errors.New("comment cannot be empty")
	ErrNotCommentOwner = errors.New("not the comment author")
)

// Comment is a reply to a post. New and edited comments wait for staff approval.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    uint      `gorm:"index;not null" json:"post_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Approved  bool      `gorm:"not null;default:false;index" json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
	Post      *Post     `json:"post,omitempty"`
}

// BeforeCreate forces moderation for every new comment regardless of caller input.
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	c.Approved = false
	return nil
}

// FindComment loads a comment together with its author and post.
func FindComment(db *gorm.DB, id uint) (*Comment, error) {
	var cmt Comment
	err := db.Preload("User").Preload("Post").First(&cmt, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cmt, nil
}

// AddComment creates an unapproved comment by userID on post.
func AddComment(db *gorm.DB, post *Post, userID uint, body string) (*Comment, error) {
	if body == "" {
		return nil, ErrEmptyComment
	}
	cmt := Comment{PostID: post.ID, UserID: userID, Body: body}
	if err := db.Create(&cmt).Error; err != nil {
		return nil, err
	}
	return &cmt, nil
}

// EditComment replaces the body of the author's comment and sends it back to moderation.
func EditComment(db *gorm.DB, cmt *Comment, userID uint, body string) error {
	if cmt.UserID != userID {
		return ErrNotCommentOwner
	}
	if body == "" {
		return ErrEmptyComment
	}
	err := db.Model(&Comment{ID: cmt.ID}).Updates(map[string]interface{}{"body": body, "approved": false}).Error
	if err != nil {
		return err
	}
	cmt.Body = body
	cmt.Approved = false
	return nil
}

// VisibleComments returns the approved comments of a post plus, when viewerID is set,
// the viewer's own comments still waiting for approval. Oldest first.
func VisibleComments(db *gorm.DB, postID, viewerID uint) ([]Comment, error) {
	var comments []Comment
	q := db.Preload("User").Where("post_id = ?", postID)
	if viewerID != 0 {
		q = q.Where("approved = ? OR user_id = ?", true, viewerID)
	} else {
		q = q.Where("approved = ?", true)
	}
	err := q.Order("created_at ASC").Order("id ASC").Find(&comments).Error
	return comments, err
}

// PendingComments lists comments waiting for approval, oldest first.
func PendingComments(db *gorm.DB, page, pageSize int) ([]Comment, int64, error) {
	var total int64
	q := db.Model(&Comment{}).Where("approved = ?", false)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var comments []Comment
	err := db.Preload("User").Preload("Post").Where("approved = ?", false).
		Order("created_at ASC").Order("id ASC").
		Offset(pageOffset(page, pageSize)).Limit(pageSize).
		Find(&comments).Error
	return comments, total, err
}

// ApproveComments marks the given comments approved and returns how many rows changed.
func ApproveComments(db *gorm.DB, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.Model(&Comment{}).Where("id IN ?", ids).Update("approved", true)
	return res.RowsAffected, res.Error
}

// DeleteComment removes a comment by id.
func DeleteComment(db *gorm.DB, id uint) error {
	res := db.Delete(&Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}
