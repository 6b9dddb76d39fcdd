// Package testutil builds throwaway databases and configuration for package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/models"
	"github.com/addistalk/addistalk/utils"
)

// Config returns a configuration suitable for tests: sqlite, no redis, generous rate limit.
func Config() config.AppConfig {
	return config.AppConfig{
		App: config.AppSection{
			Port:               "0",
			JWTSecret:          "test-secret",
			SessionSecret:      "test-session-secret-0123456789abcdef",
			RateLimitPerMinute: 10000,
			AllowedOrigins:     []string{"*"},
			OAuthRedirectBase:  "http://localhost:8080",
			PostsPerPage:       6,
			GinMode:            "test",
			SiteName:           "AddisTalk",
		},
		Database: config.DatabaseSection{Driver: "sqlite"},
		Log:      config.LogSection{Level: "silent"},
		Admin:    config.AdminSection{Usernames: []string{"staff"}},
	}
}

// DB opens a private in-memory sqlite database with all tables migrated.
func DB(t testing.TB) *gorm.DB {
	t.Helper()
	cfg := Config()
	cfg.Database.URI = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := config.OpenDatabase(cfg)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// User inserts a user with the given username.
func User(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com"}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &u
}

// Post inserts a post with the given slug and status.
func Post(t testing.TB, db *gorm.DB, slug string, status int) *models.Post {
	t.Helper()
	p := models.Post{Title: "Title " + slug, Slug: slug, Body: "Body of " + slug, Status: status}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create post %s: %v", slug, err)
	}
	return &p
}

// Redis installs a miniredis-backed client as the shared redis client until the test ends.
func Redis(t testing.TB) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	utils.SetRedis(rc)
	t.Cleanup(func() {
		utils.SetRedis(nil)
		_ = rc.Close()
	})
	return mr
}

// NoRedis disables redis for the duration of the test.
func NoRedis(t testing.TB) {
	t.Helper()
	utils.SetRedis(nil)
}
