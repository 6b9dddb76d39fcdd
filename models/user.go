package models

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// User is a site account. Passwords are stored as bcrypt hashes only; OAuth accounts have none.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string         `gorm:"size:255" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Provider     string         `gorm:"size:32;index:idx_users_provider" json:"provider"`
	ProviderID   string         `gorm:"size:255;index:idx_users_provider" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Comments     []Comment      `json:"-"`
}

// UsernameTaken reports whether username is already registered (soft-deleted users included).
func UsernameTaken(db *gorm.DB, username string) (bool, error) {
	var count int64
	err := db.Unscoped().Model(&User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// UniqueUsername derives a free username from base, falling back to fallback when base has no
// usable characters. Suffixes _1, _2, ... are appended until the name is unused.
func UniqueUsername(db *gorm.DB, base, fallback string) (string, error) {
	name := cleanUsername(base)
	if name == "" {
		name = cleanUsername(fallback)
	}
	if name == "" {
		name = "user"
	}
	candidate := name
	for n := 1; ; n++ {
		taken, err := UsernameTaken(db, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d", name, n)
	}
}

func cleanUsername(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > 60 {
		out = out[:60]
	}
	return out
}
