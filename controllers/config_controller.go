package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/addistalk/addistalk/config"
	"github.com/addistalk/addistalk/utils"
)

// ConfigController serves the public, non-secret part of the site configuration.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetSite returns settings front-end scripts need: site name, page size, enabled features.
func (c *ConfigController) GetSite(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"site_name":       cfg.App.SiteName,
		"posts_per_page":  cfg.App.PostsPerPage,
		"captcha_enabled": cfg.Contact.CaptchaEnabled,
		"oauth_providers": configuredProviders(),
	})
}
