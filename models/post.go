package models

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Post status values.
const (
	StatusDraft     = 0
	StatusPublished = 1
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrSlugTaken    = errors.New("slug already in use")
)

// Post is a blog article. Only published posts are visible to site visitors.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Slug      string    `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	AuthorID  *uint     `gorm:"index" json:"author_id"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	Excerpt   string    `gorm:"size:500" json:"excerpt"`
	Status    int       `gorm:"not null;default:0;index" json:"status"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Comments  []Comment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Likes     []User    `gorm:"many2many:post_likes;" json:"-"`
}

// PostLike is the join row behind Post.Likes. The composite primary key makes likes a set.
type PostLike struct {
	PostID    uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"primaryKey;index"`
	CreatedAt time.Time
}

// IsPublished reports whether the post is visible to visitors.
func (p Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// Published restricts a query to published posts.
func Published(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", StatusPublished)
}

// FindPublishedPost loads a published post by slug, returning ErrPostNotFound otherwise.
func FindPublishedPost(db *gorm.DB, slug string) (*Post, error) {
	var post Post
	err := db.Scopes(Published).Preload("Author").Where("slug = ?", slug).First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPublishedPosts returns one page of published posts, newest first, and the total count.
func ListPublishedPosts(db *gorm.DB, page, pageSize int) ([]Post, int64, error) {
	var total int64
	if err := db.Model(&Post{}).Scopes(Published).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var posts []Post
	err := db.Scopes(Published).Preload("Author").
		Order("created_at DESC").Order("id DESC").
		Offset(pageOffset(page, pageSize)).Limit(pageSize).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// CreatePost inserts a post, deriving a unique slug from the title when the given slug is empty
// or has no usable characters.
func CreatePost(db *gorm.DB, post *Post) error {
	post.Slug = Slugify(post.Slug)
	if post.Slug == "" {
		slug, err := UniqueSlug(db, post.Title)
		if err != nil {
			return err
		}
		post.Slug = slug
	} else {
		taken, err := slugTaken(db, post.Slug, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlugTaken
		}
	}
	return db.Create(post).Error
}

// UpdatePost saves title/body/excerpt/slug changes, keeping the slug unique.
// An explicit slug that collides is an error; one derived from the title gets a suffix.
func UpdatePost(db *gorm.DB, post *Post) error {
	post.Slug = Slugify(post.Slug)
	if post.Slug == "" {
		slug, err := uniqueSlug(db, post.Title, post.ID)
		if err != nil {
			return err
		}
		post.Slug = slug
	} else {
		taken, err := slugTaken(db, post.Slug, post.ID)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlugTaken
		}
	}
	return db.Model(&Post{ID: post.ID}).Updates(map[string]interface{}{
		"title":   post.Title,
		"slug":    post.Slug,
		"body":    post.Body,
		"excerpt": post.Excerpt,
		"status":  post.Status,
	}).Error
}

// SetPostStatus publishes or unpublishes a post by id.
func SetPostStatus(db *gorm.DB, id uint, status int) (*Post, error) {
	if status != StatusDraft && status != StatusPublished {
		return nil, fmt.Errorf("invalid post status %d", status)
	}
	res := db.Model(&Post{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, res.Error
	}
	var post Post
	if err := db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return &post, nil
}

// UniqueSlug derives a slug from title, appending -2, -3, ... until it is unused.
// The base is shortened as needed so the result never exceeds MaxSlugLength.
func UniqueSlug(db *gorm.DB, title string) (string, error) {
	return uniqueSlug(db, title, 0)
}

func uniqueSlug(db *gorm.DB, title string, exceptID uint) (string, error) {
	base := Slugify(title)
	if base == "" {
		base = "post"
	}
	candidate := base
	for n := 2; ; n++ {
		taken, err := slugTaken(db, candidate, exceptID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		suffix := fmt.Sprintf("-%d", n)
		candidate = truncateSlug(base, MaxSlugLength-len(suffix)) + suffix
	}
}

func slugTaken(db *gorm.DB, slug string, exceptID uint) (bool, error) {
	var count int64
	q := db.Model(&Post{}).Where("slug = ?", slug)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// TogglePostLike removes the user's like when present and adds it otherwise.
// It returns the resulting state and the post's like count.
func TogglePostLike(db *gorm.DB, postID, userID uint) (liked bool, count int64, err error) {
	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// a concurrent toggle may have inserted the row already
			like := PostLike{PostID: postID, UserID: userID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			liked = true
		}
		return tx.Model(&PostLike{}).Where("post_id = ?", postID).Count(&count).Error
	})
	if err != nil {
		return false, 0, err
	}
	return liked, count, nil
}

// LikeCount returns the number of users that like the post.
func LikeCount(db *gorm.DB, postID uint) (int64, error) {
	var count int64
	err := db.Model(&PostLike{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

// HasLiked reports whether userID likes postID.
func HasLiked(db *gorm.DB, postID, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var count int64
	err := db.Model(&PostLike{}).Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error
	return count > 0, err
}
