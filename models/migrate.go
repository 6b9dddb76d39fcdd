package models

import (
	"fmt"

	"gorm.io/gorm"
)

// AutoMigrate creates or extends every table the site uses.
func AutoMigrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&Post{}, "Likes", &PostLike{}); err != nil {
		return fmt.Errorf("setup post_likes join table: %w", err)
	}
	return db.AutoMigrate(&User{}, &Post{}, &PostLike{}, &Comment{}, &ContactMessage{}, &PageView{})
}
